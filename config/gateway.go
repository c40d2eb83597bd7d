package config

import (
	"fmt"
	"os"
	"time"
)

// GatewayConfig holds the voicemail broadcast account. Username and password
// are sent as form fields on every dispatch.
type GatewayConfig struct {
	ApiUrl   string
	Username string
	Password string
	// Location is the zone c_date is written in; the gateway reads it as local time.
	Location *time.Location
}

func GetGatewayConfig() (*GatewayConfig, error) {
	apiUrl := getEnvOrDefault("GATEWAY_URL", "https://www.mobile-sphere.com/gateway/vmb.php")

	username := os.Getenv("SLYBROADCAST_USERNAME")
	if username == "" {
		return nil, fmt.Errorf("SLYBROADCAST_USERNAME must be set")
	}
	password := os.Getenv("SLYBROADCAST_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("SLYBROADCAST_PASSWORD must be set")
	}

	location, err := time.LoadLocation(getEnvOrDefault("GATEWAY_TIMEZONE", "America/New_York"))
	if err != nil {
		return nil, fmt.Errorf("failed to load GATEWAY_TIMEZONE: %w", err)
	}

	return &GatewayConfig{
		ApiUrl:   apiUrl,
		Username: username,
		Password: password,
		Location: location,
	}, nil
}
