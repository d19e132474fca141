package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTimezone is the platform's home timezone; every timestamp leaving
// the normalizers is expressed in this location unless overridden.
const DefaultTimezone = "Europe/Copenhagen"

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// Platform credentials. Required — the bridge is useless without them.
	Username string
	Password string

	// Feature flags for the calendar sources.
	SchoolSchedule bool // primary schedule from the platform calendar
	Ugeplan        bool // supplementary weekly plan (MinUddannelse)
	MUOpgaver      bool // supplementary homework tasks (MinUddannelse)

	HTTPTimeout     time.Duration
	CalendarDays    int
	RefreshInterval time.Duration
	Timezone        *time.Location
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// ErrMissingCredentials is returned by Load when AULA_USERNAME or
// AULA_PASSWORD is absent.
var ErrMissingCredentials = errors.New("AULA_USERNAME and AULA_PASSWORD must be set")

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error — .env is optional

	username := os.Getenv("AULA_USERNAME")
	password := os.Getenv("AULA_PASSWORD")
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", DefaultTimezone))
	if err != nil {
		loc = time.UTC
	}

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "pretty"),
		Username:        username,
		Password:        password,
		SchoolSchedule:  getEnvBool("FEATURE_SCHOOLSCHEDULE", true),
		Ugeplan:         getEnvBool("FEATURE_UGEPLAN", true),
		MUOpgaver:       getEnvBool("FEATURE_MU_OPGAVER", true),
		HTTPTimeout:     time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		CalendarDays:    getEnvInt("CALENDAR_DEFAULT_DAYS", 7),
		RefreshInterval: time.Duration(getEnvInt("REFRESH_INTERVAL_MINUTES", 15)) * time.Minute,
		Timezone:        loc,
		AllowedOrigins:  parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
