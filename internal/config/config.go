package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppEnv string

	// Account directory (REST backend).
	DirectoryBaseURL string

	// Identity provider (phone OTP API).
	IdentityBaseURL string
	IdentityAPIKey  string

	// Bot-detection challenge service.
	ChallengeSiteKey       string
	ChallengeTokenURL      string
	ChallengeMountRetries  int
	ChallengeMountInterval time.Duration

	// Outbound HTTP.
	HTTPTimeout time.Duration

	// Phone entry defaults.
	DefaultCountry string

	// Client-side throttle on verification starts, per phone number.
	OTPStartsPerMinute int
	OTPStartBurst      int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),
		DirectoryBaseURL:       getEnv("DIRECTORY_BASE_URL", "http://localhost:5001"),
		IdentityBaseURL:        getEnv("IDENTITY_BASE_URL", "https://identitytoolkit.googleapis.com/v1"),
		IdentityAPIKey:         getEnv("IDENTITY_API_KEY", ""),
		ChallengeSiteKey:       getEnv("CHALLENGE_SITE_KEY", ""),
		ChallengeTokenURL:      getEnv("CHALLENGE_TOKEN_URL", ""),
		ChallengeMountRetries:  getEnvInt("CHALLENGE_MOUNT_RETRIES", 50),
		ChallengeMountInterval: getEnvDuration("CHALLENGE_MOUNT_INTERVAL", 100*time.Millisecond),
		HTTPTimeout:            getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
		DefaultCountry:         getEnv("DEFAULT_COUNTRY", "IN"),
		OTPStartsPerMinute:     getEnvInt("OTP_STARTS_PER_MINUTE", 5),
		OTPStartBurst:          getEnvInt("OTP_START_BURST", 2),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
