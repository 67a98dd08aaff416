package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Common carries the credentials and client settings shared by every binary.
type Common struct {
	MongoURI      string
	MongoDatabase string
	GeminiAPIKey  string
	GeminiModel   string
	PubMedAPIKey  string
	MaxResults    int
	FetchTimeout  time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr   string
	UpdateHour int
}

// Updater configures the one-shot daily cycle binary.
type Updater struct {
	Common
	CycleTimeout time.Duration
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:     *common,
		BindAddr:   getEnv("API_BIND_ADDR", "0.0.0.0:8000"),
		UpdateHour: getInt("UPDATE_HOUR", 0),
	}

	if c.UpdateHour < 0 || c.UpdateHour > 23 {
		return nil, fmt.Errorf("UPDATE_HOUR must be between 0 and 23")
	}

	return c, nil
}

// LoadUpdater builds an Updater config from environment variables.
func LoadUpdater() (*Updater, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &Updater{
		Common:       *common,
		CycleTimeout: getDuration("UPDATER_CYCLE_TIMEOUT", "30m"),
	}

	if c.CycleTimeout <= 0 {
		return nil, fmt.Errorf("UPDATER_CYCLE_TIMEOUT must be positive")
	}

	return c, nil
}

func loadCommon() (*Common, error) {
	c := &Common{
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DATABASE", "medical_data"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		PubMedAPIKey:  os.Getenv("PUBMED_API_KEY"),
		MaxResults:    getInt("SOURCE_MAX_RESULTS", 5),
		FetchTimeout:  getDuration("SOURCE_FETCH_TIMEOUT", "30s"),
	}

	// Missing credentials abort initialization; everything else has a default.
	if c.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if c.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	if c.MaxResults <= 0 {
		return nil, fmt.Errorf("SOURCE_MAX_RESULTS must be positive")
	}
	if c.FetchTimeout <= 0 {
		return nil, fmt.Errorf("SOURCE_FETCH_TIMEOUT must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}
