package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/schoolmaps/drivelink/internal/upload"
)

// FileHandler serves uploads and deletes.
type FileHandler struct {
	uploads   *upload.Service
	jwtSecret string
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(uploads *upload.Service, jwtSecret string) *FileHandler {
	return &FileHandler{uploads: uploads, jwtSecret: jwtSecret}
}

type uploadRequest struct {
	FileContent string `json:"fileContent" validate:"required"`
	FileName    string `json:"fileName" validate:"required,max=255"`
	FileType    string `json:"fileType" validate:"required,max=255"`
	Title       string `json:"title" validate:"max=255"`
	Description string `json:"description" validate:"max=5000"`
	Subject     string `json:"subject" validate:"max=255"`
	FolderName  string `json:"folderName" validate:"omitempty,max=255"`
}

type uploadResponse struct {
	Success bool `json:"success"`
	*upload.Result
}

type deleteRequest struct {
	FileID      string `json:"fileId" validate:"required"`
	DriveFileID string `json:"driveFileId"`
}

// Upload stores a base64 encoded file in the caller's Drive.
func (h *FileHandler) Upload(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := authenticate(ctx, req, h.jwtSecret)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	var body uploadRequest
	if err := decodeBody(req, &body); err != nil {
		return ErrorResponse(ctx, err), nil
	}

	res, err := h.uploads.Upload(ctx, userID, upload.Input{
		FileContent: body.FileContent,
		FileName:    body.FileName,
		FileType:    body.FileType,
		Title:       body.Title,
		Description: body.Description,
		Subject:     body.Subject,
		FolderName:  body.FolderName,
	})
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return jsonResponse(http.StatusOK, uploadResponse{Success: true, Result: res}), nil
}

// List returns the caller's uploaded files.
func (h *FileHandler) List(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := authenticate(ctx, req, h.jwtSecret)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	recs, err := h.uploads.List(ctx, userID)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return jsonResponse(http.StatusOK, recs), nil
}

// Delete handles POST /drive/files/delete with a JSON body.
func (h *FileHandler) Delete(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := authenticate(ctx, req, h.jwtSecret)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	var body deleteRequest
	if err := decodeBody(req, &body); err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return h.delete(ctx, userID, body.FileID, body.DriveFileID), nil
}

// DeleteByID handles DELETE /drive/files/{id}?driveFileId=...
func (h *FileHandler) DeleteByID(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := authenticate(ctx, req, h.jwtSecret)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return h.delete(ctx, userID, req.PathParameters["id"], req.QueryStringParameters["driveFileId"]), nil
}

func (h *FileHandler) delete(ctx context.Context, userID, recordID, driveFileID string) events.APIGatewayProxyResponse {
	if err := h.uploads.Delete(ctx, userID, recordID, driveFileID); err != nil {
		return ErrorResponse(ctx, err)
	}
	return successResponse("File deleted.")
}
