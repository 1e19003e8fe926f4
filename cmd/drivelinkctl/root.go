package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schoolmaps/drivelink/internal/app"
	"github.com/schoolmaps/drivelink/internal/config"
	"github.com/schoolmaps/drivelink/internal/logger"
)

var (
	// flags
	backend  string
	boltPath string
)

func init() {
	RootCmd.PersistentFlags().StringVar(&backend, "backend", "", "store backend (dynamo, bolt, memory); defaults to STORE_BACKEND")
	RootCmd.PersistentFlags().StringVar(&boltPath, "bolt-path", "", "bolt database file; defaults to BOLT_PATH")
}

var RootCmd = cobra.Command{
	Use:           "drivelinkctl",
	Short:         "Inspect and manage Google Drive links",
	Long:          "Inspect and manage the Google Drive links of Schoolmaps users",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// services wires the backend from the environment plus flag overrides.
func services(cmd *cobra.Command) (*app.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	switch backend {
	case "":
	case config.BackendDynamo, config.BackendBolt, config.BackendMemory:
		cfg.StoreBackend = backend
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
	if boltPath != "" {
		cfg.BoltPath = boltPath
	}

	logger.Init(cfg.DevMode, cfg.LogLevel)
	logger.SetOutput(cmd.ErrOrStderr())

	svc, err := app.NewServices(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("wire services: %w", err)
	}
	return svc, nil
}
