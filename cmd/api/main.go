package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/schoolmaps/drivelink/internal/app"
	"github.com/schoolmaps/drivelink/internal/config"
	"github.com/schoolmaps/drivelink/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Base().WithError(err).Fatal("failed to load configuration")
	}
	logger.Init(cfg.DevMode, cfg.LogLevel)

	application, _, err := app.NewApp(context.Background(), cfg)
	if err != nil {
		logger.Base().WithError(err).Fatal("failed to initialize application")
	}
	lambda.Start(application.HandleRequest)
}
