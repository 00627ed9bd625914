//go:build linux

package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runekey/runekey/internal/config"
)

// configureLogger creates the daemon logger from validated config values.
func configureLogger(cfg *config.Config) (*logrus.Logger, error) {
	var level logrus.Level
	switch cfg.LogLevel {
	case "debug":
		level = logrus.DebugLevel
	case "info":
		level = logrus.InfoLevel
	case "warn":
		level = logrus.WarnLevel
	case "error":
		level = logrus.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	switch cfg.LogFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}
	return logger, nil
}
