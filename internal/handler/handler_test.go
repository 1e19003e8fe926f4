package handler_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	drivemem "github.com/schoolmaps/drivelink/internal/adapter/memory"
	"github.com/schoolmaps/drivelink/internal/auth"
	"github.com/schoolmaps/drivelink/internal/crypto"
	"github.com/schoolmaps/drivelink/internal/handler"
	storemem "github.com/schoolmaps/drivelink/internal/store/memory"
	"github.com/schoolmaps/drivelink/internal/upload"
)

const (
	testJWTSecret = "test-secret"
	testUserID    = "test-user-123"
)

func makeToken(userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testJWTSecret))
	return signed
}

func makeRequest(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers: map[string]string{
			"Authorization": "Bearer " + makeToken(testUserID),
			"Content-Type":  "application/json",
		},
		PathParameters:        map[string]string{},
		QueryStringParameters: map[string]string{},
	}
}

func anonymous(req events.APIGatewayProxyRequest) events.APIGatewayProxyRequest {
	req.Headers = map[string]string{"Content-Type": "application/json"}
	return req
}

type testEnv struct {
	drive *handler.DriveHandler
	files *handler.FileHandler
	store *storemem.Store
	fake  *drivemem.Drive
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	st := storemem.New()
	fake := drivemem.NewDrive()
	cfg := &oauth2.Config{
		ClientID: "client",
		Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenSrv.URL},
	}
	authService := auth.NewAuthService(cfg, st, crypto.NewMockEncryptor())
	uploads := upload.NewService(drivemem.NewProvider(fake, st), st, st, upload.Options{FolderName: "Schoolmaps Uploads", MaxUploadBytes: 1 << 20})

	return &testEnv{
		drive: handler.NewDriveHandler(authService, testJWTSecret),
		files: handler.NewFileHandler(uploads, testJWTSecret),
		store: st,
		fake:  fake,
	}
}

type apiError struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp events.APIGatewayProxyResponse) apiError {
	t.Helper()
	var e apiError
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &e), resp.Body)
	return e
}

func (e *testEnv) link(t *testing.T) {
	t.Helper()
	resp, err := e.drive.Exchange(context.Background(), makeRequest("POST", "/drive/exchange", `{"code":"abc"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
}

func uploadBody(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"fileContent": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
		"fileName":    "a.pdf",
		"fileType":    "application/pdf",
		"title":       "Worksheet",
		"subject":     "Math",
	})
	require.NoError(t, err)
	return string(b)
}
