package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the console settings
type Config struct {
	BackendURL        string
	GraphAPIURL       string
	FacebookAppID     string
	FacebookAppSecret string
	AppURL            string
	Port              string
	CommandTimeout    time.Duration
	MongoURI          string
	MongoDatabase     string
	RedisURL          string
	LogLevel          zerolog.Level
}

const (
	defaultBackendURL     = "https://api.myecomer.me/"
	defaultGraphAPIURL    = "https://graph.facebook.com/v16.0"
	defaultAppURL         = "http://localhost:8080"
	defaultPort           = "8080"
	defaultCommandTimeout = 15 * time.Second
	defaultMongoDatabase  = "pagebot"
)

// Load reads .env when present, then the environment
func Load(logger zerolog.Logger) Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment only")
	}
	return FromEnv(os.Getenv, logger)
}

// FromEnv builds the config from a lookup function
func FromEnv(getenv func(string) string, logger zerolog.Logger) Config {
	cfg := Config{
		BackendURL:        envOr(getenv, "BACKEND_URL", defaultBackendURL),
		GraphAPIURL:       envOr(getenv, "GRAPH_API_URL", defaultGraphAPIURL),
		FacebookAppID:     getenv("FACEBOOK_APP_ID"),
		FacebookAppSecret: getenv("FACEBOOK_APP_SECRET"),
		AppURL:            strings.TrimRight(envOr(getenv, "APP_URL", defaultAppURL), "/"),
		Port:              envOr(getenv, "PORT", defaultPort),
		CommandTimeout:    defaultCommandTimeout,
		MongoURI:          getenv("MONGODB_URI"),
		MongoDatabase:     envOr(getenv, "MONGODB_DATABASE", defaultMongoDatabase),
		RedisURL:          getenv("REDIS_URL"),
		LogLevel:          zerolog.InfoLevel,
	}

	if raw := getenv("COMMAND_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			logger.Warn().Str("value", raw).Msg("Invalid COMMAND_TIMEOUT, using default")
		} else {
			cfg.CommandTimeout = d
		}
	}

	if raw := getenv("LOG_LEVEL"); raw != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			logger.Warn().Str("value", raw).Msg("Invalid LOG_LEVEL, using info")
		} else {
			cfg.LogLevel = level
		}
	}

	return cfg
}

// OAuthRedirectURL is where the provider sends the operator back to
func (c Config) OAuthRedirectURL() string {
	return c.AppURL + "/auth/callback"
}

// OAuthEnabled reports whether the code flow can be offered
func (c Config) OAuthEnabled() bool {
	return c.FacebookAppID != "" && c.FacebookAppSecret != ""
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}
