package config

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestGetPipelineConfig_Defaults(t *testing.T) {
	t.Setenv("ELEVEN_LABS_VOICE_ID", "voice-1")
	t.Setenv("CALLER_ID", "8148261207")

	conf, err := GetPipelineConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, conf.DeliveryOffset)
	assert.Equal(t, 60*time.Second, conf.StageTimeout)
	assert.Equal(t, "Mp3", conf.AudioFormat)
	assert.Equal(t, "test_campaign", conf.CampaignTitle)
	assert.NotEmpty(t, conf.SystemPrompt)
	assert.False(t, conf.DedupPersistent)
	assert.Zero(t, conf.DedupCooldown)
}

func TestGetPipelineConfig_MissingCallerID(t *testing.T) {
	t.Setenv("ELEVEN_LABS_VOICE_ID", "voice-1")
	t.Setenv("CALLER_ID", "")

	_, err := GetPipelineConfig()
	assert.Error(t, err)
}

func TestGetPipelineConfig_BadOffset(t *testing.T) {
	t.Setenv("ELEVEN_LABS_VOICE_ID", "voice-1")
	t.Setenv("CALLER_ID", "8148261207")
	t.Setenv("DELIVERY_OFFSET", "soon")

	_, err := GetPipelineConfig()
	assert.Error(t, err)
}

func TestGetPipelineConfig_SpoolMaxAgeMustExceedStageTimeout(t *testing.T) {
	t.Setenv("ELEVEN_LABS_VOICE_ID", "voice-1")
	t.Setenv("CALLER_ID", "8148261207")
	t.Setenv("STAGE_TIMEOUT", "60s")

	t.Setenv("SPOOL_MAX_AGE", "30s")
	_, err := GetPipelineConfig()
	assert.Error(t, err)

	t.Setenv("SPOOL_MAX_AGE", "60s")
	_, err = GetPipelineConfig()
	assert.Error(t, err)

	t.Setenv("SPOOL_MAX_AGE", "2m")
	conf, err := GetPipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, conf.SpoolMaxAge)
}

func TestGetElevenLabsConfig_RejectsOutOfRangeSettings(t *testing.T) {
	t.Setenv("ELEVEN_LABS_API_KEY", "key")
	t.Setenv("ELEVEN_LABS_STABILITY", "1.5")

	_, err := GetElevenLabsConfig()
	assert.Error(t, err)
}

func TestGetElevenLabsConfig_Defaults(t *testing.T) {
	t.Setenv("ELEVEN_LABS_API_KEY", "key")

	conf, err := GetElevenLabsConfig()
	require.NoError(t, err)

	assert.Equal(t, "eleven_multilingual_v2", conf.ModelId)
	assert.Equal(t, 0.7, conf.Stability)
	assert.Equal(t, 0.8, conf.SimilarityBoost)
	assert.Equal(t, 0.3, conf.Style)
	assert.True(t, conf.UseSpeakerBoost)
}

func TestGetServerConfig_RejectsUnknownStore(t *testing.T) {
	t.Setenv("RECORD_STORE", "csv")

	_, err := GetServerConfig()
	assert.Error(t, err)
}

func TestGetGatewayConfig(t *testing.T) {
	t.Setenv("SLYBROADCAST_USERNAME", "user")
	t.Setenv("SLYBROADCAST_PASSWORD", "secret")
	t.Setenv("GATEWAY_TIMEZONE", "UTC")

	conf, err := GetGatewayConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://www.mobile-sphere.com/gateway/vmb.php", conf.ApiUrl)
	assert.Equal(t, time.UTC, conf.Location)
}

func TestGetGatewayConfig_UnknownTimezone(t *testing.T) {
	t.Setenv("SLYBROADCAST_USERNAME", "user")
	t.Setenv("SLYBROADCAST_PASSWORD", "secret")
	t.Setenv("GATEWAY_TIMEZONE", "Mars/Olympus_Mons")

	_, err := GetGatewayConfig()
	assert.Error(t, err)
}

func TestGetLoggingConfig(t *testing.T) {
	t.Setenv("LOG_FILE", "/var/log/voicemail.log")
	t.Setenv("LOG_FILE_MAX_SIZE_MB", "10")

	conf, err := GetLoggingConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", conf.Level)
	assert.Equal(t, "/var/log/voicemail.log", conf.File)
	assert.Equal(t, 10, conf.MaxSizeMB)
	assert.Equal(t, 5, conf.MaxBackups)
}
