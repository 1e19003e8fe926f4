package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

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

// Store implements store.Store on top of a Driver.
type Store struct {
	driver *Driver
}

var _ store.Store = (*Store)(nil)

func NewStore(driver *Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) GetLinkState(_ context.Context, userID string) (*model.LinkState, error) {
	var tok, link map[string]any
	err := s.driver.store.View(func(tx *bolt.Tx) error {
		var err error
		if tok, err = readDoc(tx.Bucket(tokenBucket), userID); err != nil {
			return err
		}
		link, err = readDoc(tx.Bucket(linkBucket), userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tok == nil && link == nil {
		return nil, store.ErrNotFound
	}

	state := &model.LinkState{UserID: userID}
	state.RefreshToken, _ = tok[attrToken].(string)
	state.Linked, _ = link[attrLinked].(bool)
	if raw, ok := link[attrLastLinkedAt].(string); ok {
		state.LastLinkedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return state, nil
}

func (s *Store) SaveLink(_ context.Context, userID, encryptedToken string, linkedAt time.Time) error {
	ts := linkedAt.UTC().Format(time.RFC3339Nano)
	return s.driver.store.Update(func(tx *bolt.Tx) error {
		err := mergeDoc(tx.Bucket(tokenBucket), userID, false, func(doc map[string]any) {
			doc[attrToken] = encryptedToken
			doc[attrUpdatedAt] = ts
		})
		if err != nil {
			return err
		}
		return mergeDoc(tx.Bucket(linkBucket), userID, false, func(doc map[string]any) {
			doc[attrLinked] = true
			doc[attrLastLinkedAt] = ts
		})
	})
}

func (s *Store) ClearLink(_ context.Context, userID string) error {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	return s.driver.store.Update(func(tx *bolt.Tx) error {
		err := mergeDoc(tx.Bucket(tokenBucket), userID, true, func(doc map[string]any) {
			delete(doc, attrToken)
			doc[attrUpdatedAt] = ts
		})
		if err != nil {
			return err
		}
		return mergeDoc(tx.Bucket(linkBucket), userID, true, func(doc map[string]any) {
			doc[attrLinked] = false
		})
	})
}

func readDoc(bucket *bolt.Bucket, key string) (map[string]any, error) {
	data := bucket.Get([]byte(key))
	if data == nil {
		return nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}

// mergeDoc applies fn to the stored document. With existingOnly set, a missing
// document is left absent.
func mergeDoc(bucket *bolt.Bucket, userID string, existingOnly bool, fn func(map[string]any)) error {
	doc, err := readDoc(bucket, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		if existingOnly {
			return nil
		}
		doc = map[string]any{attrUserID: userID}
	}
	fn(doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(userID), data)
}

func (s *Store) PutFileRecord(_ context.Context, rec *model.UploadedFileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(fileBucket).Put([]byte(rec.ID), data)
	})
}

func (s *Store) GetFileRecord(_ context.Context, id string) (*model.UploadedFileRecord, error) {
	var rec *model.UploadedFileRecord
	err := s.driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(fileBucket).Get([]byte(id))
		if data == nil {
			return store.ErrNotFound
		}
		rec = &model.UploadedFileRecord{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) DeleteFileRecord(_ context.Context, id string) error {
	return s.driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(fileBucket).Delete([]byte(id))
	})
}

func (s *Store) ListFileRecords(_ context.Context, ownerID string) ([]model.UploadedFileRecord, error) {
	out := []model.UploadedFileRecord{}
	err := s.driver.store.View(func(tx *bolt.Tx) error {
		return tx.Bucket(fileBucket).ForEach(func(_, data []byte) error {
			var rec model.UploadedFileRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			if rec.OwnerID == ownerID {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	store.SortNewestFirst(out)
	return out, nil
}
