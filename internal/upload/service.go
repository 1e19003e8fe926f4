// Package upload moves files into the user's Drive and keeps the metadata
// records that point at them.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schoolmaps/drivelink/core/markdown"
	"github.com/schoolmaps/drivelink/internal/adapter"
	"github.com/schoolmaps/drivelink/internal/apperr"
	"github.com/schoolmaps/drivelink/internal/logger"
	"github.com/schoolmaps/drivelink/internal/metrics"
	"github.com/schoolmaps/drivelink/internal/model"
	"github.com/schoolmaps/drivelink/internal/store"
)

const directDownloadBase = "https://drive.google.com/uc?export=download&id="

// DirectDownloadLink returns the link that downloads a public Drive file
// instead of previewing it.
func DirectDownloadLink(fileID string) string {
	return directDownloadBase + fileID
}

// Input is an upload request. FileContent is base64 encoded.
type Input struct {
	FileContent string
	FileName    string
	FileType    string
	Title       string
	Description string
	Subject     string
	FolderName  string
}

// Result describes an uploaded file.
type Result struct {
	FileID             string `json:"fileId"`
	RecordID           string `json:"recordId"`
	WebViewLink        string `json:"webViewLink"`
	DirectDownloadLink string `json:"directDownloadLink"`
}

// Options configures a Service.
type Options struct {
	FolderName     string
	MaxUploadBytes int64
}

// Service runs uploads and deletes on behalf of a user.
type Service struct {
	provider adapter.StorageProvider
	links    store.LinkStore
	files    store.FileStore
	opts     Options
	md       *markdown.Renderer
	now      func() time.Time
	newID    func() string
}

func NewService(provider adapter.StorageProvider, links store.LinkStore, files store.FileStore, opts Options) *Service {
	return &Service{
		provider: provider,
		links:    links,
		files:    files,
		opts:     opts,
		md:       markdown.NewRenderer(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Upload stores the file in the upload folder, makes it readable by anyone
// with the link and records it. If sharing or recording fails the new Drive
// file is deleted again.
func (s *Service) Upload(ctx context.Context, userID string, in Input) (res *Result, err error) {
	defer func() { metrics.Uploads.WithLabelValues(metrics.Result(err)).Inc() }()

	if userID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "User must be authenticated.")
	}
	content, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{"user_id": userID, "file_name": in.FileName})

	a, err := s.provider.GetAdapter(ctx, userID)
	if err != nil {
		return nil, s.driveError(ctx, userID, "Failed to connect to Google Drive.", err)
	}

	folderName := in.FolderName
	if folderName == "" {
		folderName = s.opts.FolderName
	}
	folderID, err := a.EnsureFolder(ctx, folderName)
	if err != nil {
		return nil, s.driveError(ctx, userID, "Failed to prepare the upload folder.", err)
	}

	meta, err := a.CreateFile(ctx, in.FileName, in.FileType, content, folderID)
	if err != nil {
		return nil, s.driveError(ctx, userID, "Failed to upload the file to Google Drive.", err)
	}
	metrics.UploadedBytes.Add(float64(len(content)))

	if err := a.ShareWithAnyone(ctx, meta.ID); err != nil {
		s.rollback(ctx, log, a, meta.ID)
		return nil, s.driveError(ctx, userID, "Failed to share the uploaded file.", err)
	}

	link := DirectDownloadLink(meta.ID)
	rec := &model.UploadedFileRecord{
		ID:          s.newID(),
		DriveFileID: meta.ID,
		OwnerID:     userID,
		Title:       in.Title,
		Description: in.Description,
		Subject:     in.Subject,
		FileName:    in.FileName,
		MIMEType:    in.FileType,
		Size:        int64(len(content)),
		FolderID:    folderID,
		FileURL:     link,
		WebViewLink: meta.WebViewLink,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.files.PutFileRecord(ctx, rec); err != nil {
		s.rollback(ctx, log, a, meta.ID)
		return nil, apperr.Wrap(apperr.Internal, "Failed to save file details.", err)
	}

	log.WithFields(logrus.Fields{"drive_file_id": meta.ID, "record_id": rec.ID, "size": rec.Size}).Info("file uploaded")
	return &Result{
		FileID:             meta.ID,
		RecordID:           rec.ID,
		WebViewLink:        meta.WebViewLink,
		DirectDownloadLink: link,
	}, nil
}

func (s *Service) validate(in Input) ([]byte, error) {
	var missing []string
	if in.FileContent == "" {
		missing = append(missing, "fileContent")
	}
	if in.FileName == "" {
		missing = append(missing, "fileName")
	}
	if in.FileType == "" {
		missing = append(missing, "fileType")
	}
	if len(missing) > 0 {
		return nil, apperr.New(apperr.InvalidArgument, "Missing required fields: "+strings.Join(missing, ", ")+".")
	}

	content, err := decodeContent(in.FileContent)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, "File content is not valid base64.", err)
	}
	if s.opts.MaxUploadBytes > 0 && int64(len(content)) > s.opts.MaxUploadBytes {
		return nil, apperr.New(apperr.InvalidArgument, fmt.Sprintf("File is too large (max %d bytes).", s.opts.MaxUploadBytes))
	}
	return content, nil
}

// decodeContent accepts padded or unpadded base64, optionally as a data URL.
func decodeContent(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ";base64,"); i >= 0 {
			s = s[i+len(";base64,"):]
		}
	}
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func (s *Service) rollback(ctx context.Context, log *logrus.Entry, a adapter.StorageAdapter, fileID string) {
	if err := a.DeleteFile(ctx, fileID); err != nil && !errors.Is(err, adapter.ErrNotFound) {
		log.WithError(err).WithField("drive_file_id", fileID).Error("failed to remove orphaned upload")
		return
	}
	log.WithField("drive_file_id", fileID).Warn("removed orphaned upload")
}

// Delete connects to the caller's Drive, then removes the file and its record.
// A file Drive no longer has is not an error. Without driveFileID the id stored on the record
// is used.
func (s *Service) Delete(ctx context.Context, userID, recordID, driveFileID string) (err error) {
	defer func() { metrics.Deletes.WithLabelValues(metrics.Result(err)).Inc() }()

	if userID == "" {
		return apperr.New(apperr.Unauthenticated, "User must be authenticated.")
	}
	if recordID == "" {
		return apperr.New(apperr.InvalidArgument, "Missing required field: fileId.")
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{"user_id": userID, "record_id": recordID})

	a, err := s.provider.GetAdapter(ctx, userID)
	if err != nil {
		return s.driveError(ctx, userID, "Failed to connect to Google Drive.", err)
	}

	rec, err := s.files.GetFileRecord(ctx, recordID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = nil
	case err != nil:
		return apperr.Wrap(apperr.Internal, "Failed to read file details.", err)
	case rec.OwnerID != userID:
		return apperr.New(apperr.PermissionDenied, "You can only delete your own files.")
	}
	if driveFileID == "" && rec != nil {
		driveFileID = rec.DriveFileID
	}

	if driveFileID != "" {
		err := a.DeleteFile(ctx, driveFileID)
		switch {
		case errors.Is(err, adapter.ErrNotFound):
			log.WithField("drive_file_id", driveFileID).Info("drive file already gone")
		case err != nil:
			return s.driveError(ctx, userID, "Failed to delete the file from Google Drive.", err)
		}
	}

	if err := s.files.DeleteFileRecord(ctx, recordID); err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to delete file details.", err)
	}
	log.WithField("drive_file_id", driveFileID).Info("file deleted")
	return nil
}

// List returns the user's records, newest first, with each description also
// rendered to HTML for the list view.
func (s *Service) List(ctx context.Context, userID string) ([]model.UploadedFileRecord, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "User must be authenticated.")
	}
	recs, err := s.files.ListFileRecords(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Failed to list files.", err)
	}
	for i := range recs {
		if recs[i].Description == "" {
			continue
		}
		html, err := s.md.RenderString(recs[i].Description)
		if err != nil {
			logger.FromContext(ctx).WithError(err).WithField("record_id", recs[i].ID).Warn("failed to render description")
			continue
		}
		recs[i].DescriptionHTML = html
	}
	return recs, nil
}

// driveError converts adapter failures to API errors. A revoked grant clears
// the stored link so the user is asked to link again.
func (s *Service) driveError(ctx context.Context, userID, msg string, err error) error {
	switch {
	case errors.Is(err, adapter.ErrNotLinked):
		return apperr.Wrap(apperr.Unauthenticated, "Google Drive is not linked. Please link your account.", err)
	case errors.Is(err, adapter.ErrUnauthorized):
		log := logger.FromContext(ctx).WithField("user_id", userID)
		if cerr := s.links.ClearLink(ctx, userID); cerr != nil {
			log.WithError(cerr).Error("failed to clear revoked drive link")
		} else {
			metrics.LinkEvents.WithLabelValues(metrics.EventInvalidGrant).Inc()
			log.Warn("drive grant revoked, link cleared")
		}
		return apperr.Wrap(apperr.Unauthenticated, "Google Drive access expired. Please relink your account.", err)
	default:
		return apperr.Wrap(apperr.Internal, msg, err)
	}
}
