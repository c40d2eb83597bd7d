package config

import (
	"fmt"
	"os"
	"strconv"
)

type GptConfig struct {
	ApiUrl      string
	ApiKey      string
	Model       string
	Temperature float64
}

func GetGptConfig() (*GptConfig, error) {
	model := os.Getenv("GPT_MODEL")
	if model == "" {
		return nil, fmt.Errorf("GPT_MODEL must be set")
	}
	apiUrl := getEnvOrDefault("GPT_API_URL", "https://api.openai.com/v1/chat/completions")
	apiKey := os.Getenv("GPT_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GPT_API_KEY must be set")
	}
	temperature, err := strconv.ParseFloat(getEnvOrDefault("GPT_TEMPERATURE", "0.2"), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPT_TEMPERATURE: %w", err)
	}
	return &GptConfig{
		ApiUrl:      apiUrl,
		ApiKey:      apiKey,
		Model:       model,
		Temperature: temperature,
	}, nil
}
