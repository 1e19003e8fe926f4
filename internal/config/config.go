// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendDynamo = "dynamo"
	BackendBolt   = "bolt"
	BackendMemory = "memory"

	DefaultFolderName     = "Schoolmaps Uploads"
	DefaultMaxUploadBytes = 10 << 20
	DefaultTokenCacheSize = 512
)

// DefaultScopes are requested when GOOGLE_SCOPES is not set.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Config holds the application configuration. Secret values are not part of it;
// only the names under which the secret resolver finds them.
type Config struct {
	DevMode  bool
	LogLevel string
	Port     int

	StoreBackend       string
	BoltPath           string
	UserTokensTable    string
	DriveLinksTable    string
	UploadedFilesTable string
	KMSKeyID           string

	GoogleClientID    string
	GoogleRedirectURL string
	GoogleScopes      []string
	FrontendURL       string

	FolderName     string
	MaxUploadBytes int64
	TokenCacheSize int

	GoogleClientSecretParam string
	JWTSecretParam          string
	APIGatewaySecretParam   string
}

// Load reads the configuration. A .env file is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	devMode := getEnv("DEV_MODE", "") == "true"

	cfg := &Config{
		DevMode:  devMode,
		LogLevel: getEnv("LOG_LEVEL", ""),

		BoltPath:           getEnv("BOLT_PATH", "drivelink.db"),
		UserTokensTable:    getEnv("USER_TOKENS_TABLE", "UserTokens"),
		DriveLinksTable:    getEnv("DRIVE_LINKS_TABLE", "DriveLinks"),
		UploadedFilesTable: getEnv("UPLOADED_FILES_TABLE", "UploadedFiles"),
		KMSKeyID:           getEnv("KMS_KEY_ID", "alias/drivelink-token-key"),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		FolderName:     getEnv("DRIVE_FOLDER_NAME", DefaultFolderName),

		GoogleClientSecretParam: getEnv("GOOGLE_CLIENT_SECRET_PARAM", "/drivelink/google-client-secret"),
		JWTSecretParam:          getEnv("JWT_SECRET_PARAM", "/drivelink/jwt-secret"),
		APIGatewaySecretParam:   getEnv("API_GATEWAY_SECRET_PARAM", "/drivelink/api-gateway-secret"),
	}

	defaultBackend := BackendDynamo
	if devMode {
		defaultBackend = BackendMemory
	}
	cfg.StoreBackend = getEnv("STORE_BACKEND", defaultBackend)
	switch cfg.StoreBackend {
	case BackendDynamo, BackendBolt, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}

	// The callback page posts the code to its opener, which only accepts
	// messages from its own origin. In development the frontend dev server
	// proxies /api to the backend.
	cfg.GoogleRedirectURL = getEnv("GOOGLE_REDIRECT_URL", cfg.FrontendURL+"/api/drive/callback")
	if err := sameOrigin(cfg.FrontendURL, cfg.GoogleRedirectURL); err != nil {
		return nil, err
	}

	cfg.GoogleScopes = DefaultScopes
	if scopes := getEnv("GOOGLE_SCOPES", ""); scopes != "" {
		cfg.GoogleScopes = splitList(scopes)
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.TokenCacheSize, err = getInt("TOKEN_CACHE_SIZE", DefaultTokenCacheSize); err != nil {
		return nil, err
	}
	maxBytes, err := getInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", maxBytes)
	}
	cfg.MaxUploadBytes = int64(maxBytes)

	return cfg, nil
}

func sameOrigin(frontendURL, redirectURL string) error {
	f, err := url.Parse(frontendURL)
	if err != nil || f.Scheme == "" || f.Host == "" {
		return fmt.Errorf("invalid FRONTEND_URL %q", frontendURL)
	}
	r, err := url.Parse(redirectURL)
	if err != nil || r.Scheme == "" || r.Host == "" {
		return fmt.Errorf("invalid GOOGLE_REDIRECT_URL %q", redirectURL)
	}
	if !strings.EqualFold(f.Scheme, r.Scheme) || !strings.EqualFold(f.Host, r.Host) {
		return fmt.Errorf("GOOGLE_REDIRECT_URL origin %s://%s does not match FRONTEND_URL origin %s://%s",
			r.Scheme, r.Host, f.Scheme, f.Host)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value when unset or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
