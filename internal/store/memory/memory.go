// Package memory is an in-process store used in development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/schoolmaps/drivelink/internal/model"
	"github.com/schoolmaps/drivelink/internal/store"
)

const (
	attrUserID       = "user_id"
	attrToken        = "encrypted_refresh_token"
	attrUpdatedAt    = "updated_at"
	attrLinked       = "linked"
	attrLastLinkedAt = "last_linked_at"
)

type document map[string]any

// Store implements store.Store with maps guarded by a single mutex. User
// documents are kept as attribute maps so that unrelated attributes survive
// link updates the same way they do in DynamoDB.
type Store struct {
	mu     sync.RWMutex
	tokens map[string]document
	links  map[string]document
	files  map[string]model.UploadedFileRecord
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		tokens: make(map[string]document),
		links:  make(map[string]document),
		files:  make(map[string]model.UploadedFileRecord),
	}
}

func (s *Store) GetLinkState(_ context.Context, userID string) (*model.LinkState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, hasTok := s.tokens[userID]
	link, hasLink := s.links[userID]
	if !hasTok && !hasLink {
		return nil, store.ErrNotFound
	}

	state := &model.LinkState{UserID: userID}
	state.RefreshToken, _ = tok[attrToken].(string)
	state.Linked, _ = link[attrLinked].(bool)
	state.LastLinkedAt, _ = link[attrLastLinkedAt].(time.Time)
	return state, nil
}

func (s *Store) SaveLink(_ context.Context, userID, encryptedToken string, linkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.doc(s.tokens, userID)
	tok[attrToken] = encryptedToken
	tok[attrUpdatedAt] = linkedAt

	link := s.doc(s.links, userID)
	link[attrLinked] = true
	link[attrLastLinkedAt] = linkedAt
	return nil
}

func (s *Store) ClearLink(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok, ok := s.tokens[userID]; ok {
		delete(tok, attrToken)
		tok[attrUpdatedAt] = time.Now().UTC()
	}
	if link, ok := s.links[userID]; ok {
		link[attrLinked] = false
	}
	return nil
}

func (s *Store) doc(coll map[string]document, userID string) document {
	d, ok := coll[userID]
	if !ok {
		d = document{attrUserID: userID}
		coll[userID] = d
	}
	return d
}

func (s *Store) PutFileRecord(_ context.Context, rec *model.UploadedFileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[rec.ID] = *rec
	return nil
}

func (s *Store) GetFileRecord(_ context.Context, id string) (*model.UploadedFileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.files[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) DeleteFileRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
	return nil
}

func (s *Store) ListFileRecords(_ context.Context, ownerID string) ([]model.UploadedFileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.UploadedFileRecord{}
	for _, rec := range s.files {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	store.SortNewestFirst(out)
	return out, nil
}
