package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/atomtune/atomtune/internal/log"
	"github.com/rs/zerolog"
)

// Environment variable keys. ENV always wins over file values.
const (
	EnvLogLevel     = "ATOMTUNE_LOG_LEVEL"
	EnvDataDir      = "ATOMTUNE_DATA_DIR"
	EnvListen       = "ATOMTUNE_LISTEN"
	EnvMPAPIKey     = "ATOMTUNE_MP_API_KEY"
	EnvMPBaseURL    = "ATOMTUNE_MP_BASE_URL"
	EnvHFBaseURL    = "ATOMTUNE_HF_BASE_URL"
	EnvStoreBackend = "ATOMTUNE_STORE_BACKEND"
	EnvStorePath    = "ATOMTUNE_STORE_PATH"
	EnvRedisAddr    = "ATOMTUNE_REDIS_ADDR"
)

// ParseString reads a string from an environment variable or returns the
// default value. It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		lowerKey := strings.ToLower(key)
		switch {
		case strings.Contains(lowerKey, "key") || strings.Contains(lowerKey, "password"):
			// For sensitive vars, just log that it was set
			logger.Debug().
				Str("key", key).
				Str("source", "environment").
				Bool("sensitive", true).
				Msg("using environment variable")
		case value == "":
			logger.Debug().
				Str("key", key).
				Str("default", defaultValue).
				Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		default:
			logger.Debug().
				Str("key", key).
				Str("value", value).
				Str("source", "environment").
				Msg("using environment variable")
		}
		return value
	}
	logger.Debug().
		Str("key", key).
		Str("default", defaultValue).
		Str("source", "default").
		Msg("using default value")
	return defaultValue
}

// ParseInt reads an integer from an environment variable or returns the
// default value on absence or parse failure.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", value).
			Int("default", defaultValue).
			Msg("invalid integer in environment, using default")
		return defaultValue
	}
	return parsed
}

// ParseBool reads a boolean from an environment variable or returns the
// default value on absence or parse failure.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", value).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment, using default")
		return defaultValue
	}
	return parsed
}

// ParseFloat reads a float from an environment variable or returns the
// default value on absence or parse failure.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", value).
			Float64("default", defaultValue).
			Msg("invalid float in environment, using default")
		return defaultValue
	}
	return parsed
}
