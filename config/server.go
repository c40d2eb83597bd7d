package config

import (
	"fmt"
	"strconv"
	"time"
)

const (
	RecordStoreDynamo = "dynamo"
	RecordStoreSqlite = "sqlite"
)

type ServerConfig struct {
	Address         string
	RecordStore     string
	PipelineWorkers int
	CookieMaxAge    time.Duration
}

func GetServerConfig() (*ServerConfig, error) {
	recordStore := getEnvOrDefault("RECORD_STORE", RecordStoreDynamo)
	if recordStore != RecordStoreDynamo && recordStore != RecordStoreSqlite {
		return nil, fmt.Errorf("RECORD_STORE must be %q or %q, got %q", RecordStoreDynamo, RecordStoreSqlite, recordStore)
	}

	workers, err := strconv.Atoi(getEnvOrDefault("PIPELINE_WORKERS", "32"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PIPELINE_WORKERS: %w", err)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("PIPELINE_WORKERS must be positive")
	}

	return &ServerConfig{
		Address:         getEnvOrDefault("LISTEN_ADDRESS", ":8080"),
		RecordStore:     recordStore,
		PipelineWorkers: workers,
		CookieMaxAge:    30 * 24 * time.Hour,
	}, nil
}
