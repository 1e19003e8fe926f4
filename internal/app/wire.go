package app

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/schoolmaps/drivelink/internal/adapter"
	"github.com/schoolmaps/drivelink/internal/adapter/googledrive"
	drivemem "github.com/schoolmaps/drivelink/internal/adapter/memory"
	"github.com/schoolmaps/drivelink/internal/auth"
	"github.com/schoolmaps/drivelink/internal/config"
	"github.com/schoolmaps/drivelink/internal/crypto"
	"github.com/schoolmaps/drivelink/internal/logger"
	"github.com/schoolmaps/drivelink/internal/secret"
	"github.com/schoolmaps/drivelink/internal/store"
	boltstore "github.com/schoolmaps/drivelink/internal/store/bolt"
	"github.com/schoolmaps/drivelink/internal/store/dynamo"
	storemem "github.com/schoolmaps/drivelink/internal/store/memory"
	"github.com/schoolmaps/drivelink/internal/upload"
)

// Services is the wired service graph shared by the Lambda, the local server
// and the admin CLI.
type Services struct {
	Auth    *auth.AuthService
	Uploads *upload.Service
	Store   store.Store
	Secrets secret.Secrets

	closers []func() error
}

// Close releases resources held by the store backend.
func (s *Services) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewServices builds the service graph described by cfg. In DEV_MODE secrets
// come from the environment, tokens are encrypted with the mock encryptor and
// Drive is simulated in memory.
func NewServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	log := logger.FromContext(ctx)
	svc := &Services{}

	var awsLoaded bool
	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		if !cfg.DevMode || cfg.StoreBackend == config.BackendDynamo {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		log.WithError(err).Warn("AWS config unavailable")
	} else {
		awsLoaded = true
	}

	// Store
	switch cfg.StoreBackend {
	case config.BackendDynamo:
		svc.Store = dynamo.New(dynamodb.NewFromConfig(sdkCfg), dynamo.Tables{
			UserTokens:    cfg.UserTokensTable,
			DriveLinks:    cfg.DriveLinksTable,
			UploadedFiles: cfg.UploadedFilesTable,
		})
	case config.BackendBolt:
		driver := &boltstore.Driver{}
		if err := driver.Open(cfg.BoltPath); err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		svc.closers = append(svc.closers, driver.Close)
		svc.Store = boltstore.NewStore(driver)
	default:
		svc.Store = storemem.New()
	}
	log.WithField("backend", cfg.StoreBackend).Info("store ready")

	// Encryptor and secrets
	var encryptor crypto.Encryptor
	var resolver secret.Resolver
	if cfg.DevMode || !awsLoaded {
		encryptor = crypto.NewMockEncryptor()
		resolver = secret.NewEnvResolver()
		log.Info("using mock encryptor and environment secrets")
	} else {
		encryptor = crypto.NewKMSService(kms.NewFromConfig(sdkCfg), cfg.KMSKeyID)
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(sdkCfg))
	}

	svc.Secrets, err = secret.ResolveAll(ctx, resolver, secret.Names{
		GoogleClientSecret: cfg.GoogleClientSecretParam,
		JWTSecret:          cfg.JWTSecretParam,
		APIGatewaySecret:   cfg.APIGatewaySecretParam,
	})
	if err != nil {
		svc.Close()
		return nil, err
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: svc.Secrets.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       cfg.GoogleScopes,
		Endpoint:     google.Endpoint,
	}
	svc.Auth = auth.NewAuthService(oauthConfig, svc.Store, encryptor)

	// Drive
	var provider adapter.StorageProvider
	if cfg.DevMode {
		provider = drivemem.NewProvider(drivemem.NewDrive(), svc.Store)
		log.Info("using in-memory Drive")
	} else {
		provider, err = googledrive.NewProvider(oauthConfig, svc.Store, encryptor, cfg.TokenCacheSize)
		if err != nil {
			svc.Close()
			return nil, err
		}
	}

	svc.Uploads = upload.NewService(provider, svc.Store, svc.Store, upload.Options{
		FolderName:     cfg.FolderName,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	return svc, nil
}
