package googledrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/schoolmaps/drivelink/internal/adapter"
)

const fileFields = "id, name, mimeType, size, parents, webViewLink, webContentLink, createdTime"

// reauthCodes are OAuth error codes meaning the user has to consent again.
var reauthCodes = map[string]bool{
	"invalid_grant": true,
	"invalid_token": true,
}

// DriveAdapter implements adapter.StorageAdapter for Google Drive.
type DriveAdapter struct {
	service *drive.Service
}

// NewDriveAdapter creates a DriveAdapter. client should carry the user's
// credentials; opts are appended after it (tests point the endpoint at a fake).
func NewDriveAdapter(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*DriveAdapter, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}
	return &DriveAdapter{service: srv}, nil
}

// EnsureFolder finds the folder under root or creates it.
func (d *DriveAdapter) EnsureFolder(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and 'root' in parents and trashed = false",
		escapeQuery(name), adapter.FolderMIMEType)
	r, err := d.service.Files.List().
		Q(q).
		Spaces("drive").
		Fields("files(id)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify("search for folder", err)
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	res, err := d.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: adapter.FolderMIMEType,
		Parents:  []string{"root"},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", classify("create folder", err)
	}
	return res.Id, nil
}

// CreateFile uploads content into folderID.
func (d *DriveAdapter) CreateFile(ctx context.Context, name, mimeType string, content []byte, folderID string) (*adapter.FileMetadata, error) {
	parents := []string{"root"}
	if folderID != "" {
		parents = []string{folderID}
	}

	res, err := d.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  parents,
	}).
		Media(bytes.NewReader(content), googleapi.ContentType(mimeType)).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("create file", err)
	}
	return toMetadata(res), nil
}

// ShareWithAnyone adds a reader/anyone permission.
func (d *DriveAdapter) ShareWithAnyone(ctx context.Context, fileID string) error {
	_, err := d.service.Permissions.Create(fileID, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return classify("share file", err)
	}
	return nil
}

// DeleteFile deletes a file by its ID.
func (d *DriveAdapter) DeleteFile(ctx context.Context, fileID string) error {
	if err := d.service.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return classify("delete file", err)
	}
	return nil
}

func toMetadata(f *drive.File) *adapter.FileMetadata {
	created, _ := time.Parse(time.RFC3339, f.CreatedTime)
	return &adapter.FileMetadata{
		ID:             f.Id,
		Name:           f.Name,
		MIMEType:       f.MimeType,
		Size:           f.Size,
		Parents:        f.Parents,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		CreatedTime:    created,
	}
}

// escapeQuery quotes a value for use inside a Drive query string literal.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// classify maps Drive and OAuth failures onto the adapter sentinels.
func classify(op string, err error) error {
	switch {
	case isReauth(err):
		return fmt.Errorf("unable to %s: %w: %v", op, adapter.ErrUnauthorized, err)
	case isNotFound(err):
		return fmt.Errorf("unable to %s: %w", op, adapter.ErrNotFound)
	default:
		return fmt.Errorf("unable to %s: %w", op, err)
	}
}

func isReauth(err error) bool {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		return reauthCodes[rErr.ErrorCode]
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusUnauthorized
	}
	return false
}

func isNotFound(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusNotFound
	}
	return false
}
