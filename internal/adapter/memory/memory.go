// Package memory is an in-process stand-in for Google Drive used in DEV_MODE
// and in tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schoolmaps/drivelink/internal/adapter"
)

const (
	maxDemoContentSize = 10 << 20
	maxDemoNameLength  = 255
	maxDemoItemCount   = 50
)

// Operation names recorded in the call log.
const (
	OpFindFolder   = "find-folder"
	OpCreateFolder = "create-folder"
	OpCreateFile   = "create-file"
	OpShare        = "share"
	OpDelete       = "delete"
)

type item struct {
	meta    adapter.FileMetadata
	content []byte
	public  bool
}

type userDrive struct {
	items   map[string]*item
	calls   []string
	revoked bool
	failOn  map[string]error
}

// Drive holds one fake Drive per user.
type Drive struct {
	mu    sync.Mutex
	users map[string]*userDrive
	now   func() time.Time
}

func NewDrive() *Drive {
	return &Drive{users: make(map[string]*userDrive), now: time.Now}
}

func (d *Drive) user(userID string) *userDrive {
	u, ok := d.users[userID]
	if !ok {
		u = &userDrive{items: make(map[string]*item), failOn: make(map[string]error)}
		d.users[userID] = u
	}
	return u
}

// Revoke makes every later call for userID fail as if the grant was revoked.
func (d *Drive) Revoke(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.user(userID).revoked = true
}

// FailOn makes the next call of op for userID return err.
func (d *Drive) FailOn(userID, op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.user(userID).failOn[op] = err
}

// Calls returns the operations performed for userID, in order.
func (d *Drive) Calls(userID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.user(userID).calls...)
}

// File returns a copy of the stored file metadata and whether it is public.
func (d *Drive) File(userID, fileID string) (adapter.FileMetadata, bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	it, ok := d.user(userID).items[fileID]
	if !ok {
		return adapter.FileMetadata{}, false, false
	}
	return it.meta, it.public, true
}

// Put seeds a file for userID.
func (d *Drive) Put(userID string, meta adapter.FileMetadata) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.user(userID).items[meta.ID] = &item{meta: meta}
}

// ForUser returns an adapter acting as userID.
func (d *Drive) ForUser(userID string) *Adapter {
	return &Adapter{drive: d, userID: userID}
}

// begin records op and returns the user's drive, or the error the call must fail with.
func (d *Drive) begin(userID, op string) (*userDrive, error) {
	u := d.user(userID)
	u.calls = append(u.calls, op)
	if u.revoked {
		return nil, fmt.Errorf("%s: %w", op, adapter.ErrUnauthorized)
	}
	if err, ok := u.failOn[op]; ok {
		delete(u.failOn, op)
		return nil, err
	}
	return u, nil
}

// Adapter implements adapter.StorageAdapter on a Drive.
type Adapter struct {
	drive  *Drive
	userID string
}

var _ adapter.StorageAdapter = (*Adapter)(nil)

func (a *Adapter) EnsureFolder(_ context.Context, name string) (string, error) {
	d := a.drive
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.begin(a.userID, OpFindFolder)
	if err != nil {
		return "", err
	}
	for id, it := range u.items {
		if it.meta.Name == name && it.meta.MIMEType == adapter.FolderMIMEType && hasParent(it.meta.Parents, "root") {
			return id, nil
		}
	}

	if u, err = d.begin(a.userID, OpCreateFolder); err != nil {
		return "", err
	}
	if err := checkLimits(u, name, 0); err != nil {
		return "", err
	}
	id := uuid.New().String()
	u.items[id] = &item{meta: adapter.FileMetadata{
		ID:          id,
		Name:        name,
		MIMEType:    adapter.FolderMIMEType,
		Parents:     []string{"root"},
		CreatedTime: d.now(),
	}}
	return id, nil
}

func (a *Adapter) CreateFile(_ context.Context, name, mimeType string, content []byte, folderID string) (*adapter.FileMetadata, error) {
	d := a.drive
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.begin(a.userID, OpCreateFile)
	if err != nil {
		return nil, err
	}
	if err := checkLimits(u, name, len(content)); err != nil {
		return nil, err
	}
	if folderID == "" {
		folderID = "root"
	} else if _, ok := u.items[folderID]; !ok {
		return nil, fmt.Errorf("parent %s: %w", folderID, adapter.ErrNotFound)
	}

	id := uuid.New().String()
	meta := adapter.FileMetadata{
		ID:             id,
		Name:           name,
		MIMEType:       mimeType,
		Size:           int64(len(content)),
		Parents:        []string{folderID},
		WebViewLink:    "https://drive.google.com/file/d/" + id + "/view",
		WebContentLink: "https://drive.google.com/uc?id=" + id + "&export=download",
		CreatedTime:    d.now(),
	}
	u.items[id] = &item{meta: meta, content: append([]byte(nil), content...)}
	return &meta, nil
}

func (a *Adapter) ShareWithAnyone(_ context.Context, fileID string) error {
	d := a.drive
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.begin(a.userID, OpShare)
	if err != nil {
		return err
	}
	it, ok := u.items[fileID]
	if !ok {
		return fmt.Errorf("file %s: %w", fileID, adapter.ErrNotFound)
	}
	it.public = true
	return nil
}

func (a *Adapter) DeleteFile(_ context.Context, fileID string) error {
	d := a.drive
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.begin(a.userID, OpDelete)
	if err != nil {
		return err
	}
	if _, ok := u.items[fileID]; !ok {
		return fmt.Errorf("file %s: %w", fileID, adapter.ErrNotFound)
	}
	delete(u.items, fileID)
	return nil
}

func checkLimits(u *userDrive, name string, size int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxDemoNameLength {
		return fmt.Errorf("name too long (max %d characters)", maxDemoNameLength)
	}
	if size > maxDemoContentSize {
		return fmt.Errorf("content too large (max %d bytes)", maxDemoContentSize)
	}
	if len(u.items) >= maxDemoItemCount {
		return fmt.Errorf("item limit reached (max %d items)", maxDemoItemCount)
	}
	return nil
}

func hasParent(parents []string, id string) bool {
	for _, p := range parents {
		if p == id {
			return true
		}
	}
	return false
}
