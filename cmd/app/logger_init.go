package main

import (
	"github.com/syncline/syncline/internal/config"
	"github.com/syncline/syncline/internal/handler"
	"github.com/syncline/syncline/internal/logger"
)

// initLogger initializes the logger using centralized app configuration
func initLogger(cfg *config.Config) {
	// Source info only in dev
	addSource := cfg.Environment == "dev" || cfg.Environment == "development"

	loggerConfig := logger.NewConfig(
		cfg.LogLevel,
		cfg.LogFormat,
		"syncline",
		handler.Version,
		cfg.Environment,
		addSource,
	)

	logger.Init(loggerConfig)
}
