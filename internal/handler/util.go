// Package handler implements the API Gateway handlers.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/schoolmaps/drivelink/internal/apperr"
	"github.com/schoolmaps/drivelink/internal/logger"
)

// ErrNoToken is returned by GetUserID when the request carries no session.
var ErrNoToken = errors.New("no authorization token found")

var validate = validator.New(validator.WithRequiredStructEnabled())

// GetUserID extracts the user ID from the Authorization header or session cookie.
func GetUserID(req events.APIGatewayProxyRequest, jwtSecret string) (string, error) {
	tokenString := ""
	if authHeader := header(req, "Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Cookie format: session_token=xxx; ...
	if tokenString == "" {
		for _, part := range strings.Split(header(req, "Cookie"), ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "session_token=") {
				tokenString = strings.TrimPrefix(part, "session_token=")
				break
			}
		}
	}

	if tokenString == "" {
		return "", ErrNoToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			return sub, nil
		}
	}
	return "", fmt.Errorf("invalid token claims")
}

// header looks a header up case-insensitively.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// authenticate resolves the caller or returns an Unauthenticated error.
func authenticate(ctx context.Context, req events.APIGatewayProxyRequest, jwtSecret string) (string, error) {
	userID, err := GetUserID(req, jwtSecret)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Debug("request not authenticated")
		return "", apperr.Wrap(apperr.Unauthenticated, "User must be authenticated.", err)
	}
	return userID, nil
}

// decodeBody parses a JSON body into v and validates it.
func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return apperr.Wrap(apperr.InvalidArgument, "Invalid request body.", err)
		}
		body = string(raw)
	}
	if strings.TrimSpace(body) == "" {
		body = "{}"
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "Invalid request body.", err)
	}
	if err := validate.Struct(v); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, validationMessage(err), err)
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body."
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", lowerFirst(fe.Field()), fe.Tag()))
	}
	return "Invalid fields: " + strings.Join(fields, ", ") + "."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse renders err as {"error":{"status","message"}} with the HTTP
// status of its kind. Internal errors are logged with their cause.
func ErrorResponse(ctx context.Context, err error) events.APIGatewayProxyResponse {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		logger.FromContext(ctx).WithError(err).Error("request failed")
	} else {
		logger.FromContext(ctx).WithField("kind", kind.String()).Info(apperr.MessageOf(err))
	}
	return jsonResponse(kind.HTTPStatus(), errorBody{Error: errorDetail{
		Status:  kind.String(),
		Message: apperr.MessageOf(err),
	}})
}

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func successResponse(msg string) events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusOK, successBody{Success: true, Message: msg})
}
