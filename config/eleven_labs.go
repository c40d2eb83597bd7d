package config

import (
	"fmt"
	"os"
	"strconv"
)

type ElevenLabsConfig struct {
	ApiUrl          string
	ApiKey          string
	ModelId         string
	Stability       float64
	SimilarityBoost float64
	Style           float64
	UseSpeakerBoost bool
}

func GetElevenLabsConfig() (*ElevenLabsConfig, error) {
	apiUrl := getEnvOrDefault("ELEVEN_LABS_API_URL", "https://api.elevenlabs.io/v1/text-to-speech")
	apiKey := os.Getenv("ELEVEN_LABS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ELEVEN_LABS_API_KEY must be set")
	}
	modelId := getEnvOrDefault("ELEVEN_LABS_MODEL_ID", "eleven_multilingual_v2")

	stability, err := parseUnitInterval("ELEVEN_LABS_STABILITY", "0.7")
	if err != nil {
		return nil, err
	}
	similarityBoost, err := parseUnitInterval("ELEVEN_LABS_SIMILARITY_BOOST", "0.8")
	if err != nil {
		return nil, err
	}
	style, err := parseUnitInterval("ELEVEN_LABS_STYLE", "0.3")
	if err != nil {
		return nil, err
	}
	speakerBoost, err := strconv.ParseBool(getEnvOrDefault("ELEVEN_LABS_SPEAKER_BOOST", "true"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELEVEN_LABS_SPEAKER_BOOST: %w", err)
	}

	return &ElevenLabsConfig{
		ApiUrl:          apiUrl,
		ApiKey:          apiKey,
		ModelId:         modelId,
		Stability:       stability,
		SimilarityBoost: similarityBoost,
		Style:           style,
		UseSpeakerBoost: speakerBoost,
	}, nil
}

func parseUnitInterval(key string, fallback string) (float64, error) {
	val, err := strconv.ParseFloat(getEnvOrDefault(key, fallback), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	if val < 0 || val > 1 {
		return 0, fmt.Errorf("%s must be between 0 and 1, got %f", key, val)
	}
	return val, nil
}
