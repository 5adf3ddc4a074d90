package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the environment defaults for the verifier flags.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
	LogFile  string `envconfig:"LOG_FILE"`

	Concurrency int           `envconfig:"CONCURRENCY" default:"1000"`
	Rate        float64       `envconfig:"RATE" default:"0"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"15s"`

	InputDir   string `envconfig:"INPUT_DIR"`
	OutputPath string `envconfig:"OUTPUT_PATH" default:"verified.txt"`
	CSVPath    string `envconfig:"CSV_PATH"`
	GeoIPPath  string `envconfig:"GEOIP_PATH"`
	DSN        string `envconfig:"DB_DSN"`
}

const envPrefix = "VERIFY"

// Load reads an optional .env file and then VERIFY_* variables.
func Load() (*Config, error) {
	// A missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return &cfg, nil
}
