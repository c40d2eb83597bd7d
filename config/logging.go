package config

import (
	"fmt"
	"os"
	"strconv"
)

// LoggingConfig controls where logs go. File is optional; when set, logs are
// also written there with size-based rotation.
type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func GetLoggingConfig() (*LoggingConfig, error) {
	maxSize, err := strconv.Atoi(getEnvOrDefault("LOG_FILE_MAX_SIZE_MB", "50"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse LOG_FILE_MAX_SIZE_MB: %w", err)
	}
	maxBackups, err := strconv.Atoi(getEnvOrDefault("LOG_FILE_MAX_BACKUPS", "5"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse LOG_FILE_MAX_BACKUPS: %w", err)
	}

	return &LoggingConfig{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		File:       os.Getenv("LOG_FILE"),
		MaxSizeMB:  maxSize,
		MaxBackups: maxBackups,
	}, nil
}
