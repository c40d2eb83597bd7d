package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const defaultSalesScript = "You are Tim, a friendly sales representative. Write a short voicemail " +
	"(under 45 seconds when spoken) greeting the lead by first name, referencing their reason for " +
	"interest, and asking them to call back. Plain spoken text only, no stage directions."

// PipelineConfig collects the per-run settings shared by every entry point.
type PipelineConfig struct {
	SystemPrompt   string
	VoiceID        string
	CallerID       string
	AudioFormat    string
	CampaignTitle  string
	DeliveryOffset time.Duration
	StageTimeout   time.Duration
	SpoolDir       string

	SpoolSweepSchedule string
	SpoolMaxAge        time.Duration

	DedupPersistent bool
	DedupCooldown   time.Duration
}

func GetPipelineConfig() (*PipelineConfig, error) {
	voiceID := os.Getenv("ELEVEN_LABS_VOICE_ID")
	if voiceID == "" {
		return nil, fmt.Errorf("ELEVEN_LABS_VOICE_ID must be set")
	}
	callerID := os.Getenv("CALLER_ID")
	if callerID == "" {
		return nil, fmt.Errorf("CALLER_ID must be set")
	}

	deliveryOffset, err := time.ParseDuration(getEnvOrDefault("DELIVERY_OFFSET", "2m"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DELIVERY_OFFSET: %w", err)
	}
	stageTimeout, err := time.ParseDuration(getEnvOrDefault("STAGE_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse STAGE_TIMEOUT: %w", err)
	}
	if stageTimeout <= 0 {
		return nil, fmt.Errorf("STAGE_TIMEOUT must be positive")
	}
	dedupPersistent, err := strconv.ParseBool(getEnvOrDefault("DEDUP_PERSISTENT", "false"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DEDUP_PERSISTENT: %w", err)
	}
	dedupCooldown, err := time.ParseDuration(getEnvOrDefault("DEDUP_COOLDOWN", "0s"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DEDUP_COOLDOWN: %w", err)
	}

	spoolMaxAge, err := time.ParseDuration(getEnvOrDefault("SPOOL_MAX_AGE", "1h"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SPOOL_MAX_AGE: %w", err)
	}
	// A staged file lives for at most one publish stage.
	if spoolMaxAge <= stageTimeout {
		return nil, fmt.Errorf("SPOOL_MAX_AGE (%s) must exceed STAGE_TIMEOUT (%s)", spoolMaxAge, stageTimeout)
	}

	return &PipelineConfig{
		SystemPrompt:       getEnvOrDefault("SALES_SCRIPT", defaultSalesScript),
		VoiceID:            voiceID,
		CallerID:           callerID,
		AudioFormat:        getEnvOrDefault("GATEWAY_AUDIO_FORMAT", "Mp3"),
		CampaignTitle:      getEnvOrDefault("CAMPAIGN_TITLE", "test_campaign"),
		DeliveryOffset:     deliveryOffset,
		StageTimeout:       stageTimeout,
		SpoolDir:           getEnvOrDefault("AUDIO_SPOOL_DIR", filepath.Join(os.TempDir(), "voicemail-audio")),
		SpoolSweepSchedule: getEnvOrDefault("SPOOL_SWEEP_SCHEDULE", "@every 10m"),
		SpoolMaxAge:        spoolMaxAge,
		DedupPersistent:    dedupPersistent,
		DedupCooldown:      dedupCooldown,
	}, nil
}
