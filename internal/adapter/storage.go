package adapter

import (
	"context"
	"time"
)

// FolderMIMEType is the MIME type Drive uses for folders.
const FolderMIMEType = "application/vnd.google-apps.folder"

// FileMetadata describes a file created in the user's Drive.
type FileMetadata struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	MIMEType       string    `json:"mimeType"`
	Size           int64     `json:"size"`
	Parents        []string  `json:"parents,omitempty"`
	WebViewLink    string    `json:"webViewLink"`
	WebContentLink string    `json:"webContentLink"`
	CreatedTime    time.Time `json:"createdTime"`
}

// StorageAdapter is the set of Drive operations the upload flow needs.
// Implementations wrap ErrUnauthorized when the user's grant is no longer
// valid so callers can unlink the account.
type StorageAdapter interface {
	// EnsureFolder returns the id of the folder named name directly under the
	// Drive root, creating it when absent. Lookup and creation are not atomic.
	EnsureFolder(ctx context.Context, name string) (string, error)

	// CreateFile uploads content as a new file inside folderID.
	CreateFile(ctx context.Context, name, mimeType string, content []byte, folderID string) (*FileMetadata, error)

	// ShareWithAnyone grants reader access to anyone with the link.
	ShareWithAnyone(ctx context.Context, fileID string) error

	// DeleteFile deletes a file. A missing file yields ErrNotFound.
	DeleteFile(ctx context.Context, fileID string) error
}
