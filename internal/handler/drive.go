package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/schoolmaps/drivelink/internal/auth"
)

// DriveHandler serves the linking endpoints.
type DriveHandler struct {
	authService *auth.AuthService
	jwtSecret   string
}

// NewDriveHandler creates a new DriveHandler.
func NewDriveHandler(s *auth.AuthService, jwtSecret string) *DriveHandler {
	return &DriveHandler{authService: s, jwtSecret: jwtSecret}
}

type exchangeRequest struct {
	Code string `json:"code" validate:"max=4096"`
}

// AuthURL returns the consent URL for the caller.
func (h *DriveHandler) AuthURL(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := authenticate(ctx, req, h.jwtSecret)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	url, err := h.authService.CreateAuthorizationURL(userID)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"url": url}), nil
}

// Exchange trades the authorization code delivered to the popup.
func (h *DriveHandler) Exchange(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := authenticate(ctx, req, h.jwtSecret)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	var body exchangeRequest
	if err := decodeBody(req, &body); err != nil {
		return ErrorResponse(ctx, err), nil
	}
	if err := h.authService.ExchangeCode(ctx, userID, body.Code); err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return successResponse("Google Drive linked successfully."), nil
}

// Disconnect unlinks the caller's Drive.
func (h *DriveHandler) Disconnect(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := authenticate(ctx, req, h.jwtSecret)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	if err := h.authService.Disconnect(ctx, userID); err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return successResponse("Google Drive disconnected."), nil
}

// Status reports whether the caller's Drive is linked.
func (h *DriveHandler) Status(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := authenticate(ctx, req, h.jwtSecret)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	st, err := h.authService.Status(ctx, userID)
	if err != nil {
		return ErrorResponse(ctx, err), nil
	}
	return jsonResponse(http.StatusOK, st), nil
}
