package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	OTLP     OTLPConfig     `envconfig:"OTEL"`
	Database DatabaseConfig `envconfig:"DATABASE"`
	Upload   UploadConfig   `envconfig:"UPLOAD"`
	Catalog  CatalogConfig  `envconfig:"CATALOG"`
}

type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

type OTLPConfig struct {
	Enabled     bool   `envconfig:"ENABLED" default:"true"`
	Endpoint    string `envconfig:"EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"products-api"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// DatabaseConfig selects the product store. An empty URL keeps products in memory.
type DatabaseConfig struct {
	URL string `envconfig:"URL"`
}

type UploadConfig struct {
	Dir       string `envconfig:"DIR" default:"public/uploads"`
	URLPrefix string `envconfig:"URL_PREFIX" default:"/uploads"`
	MaxMemory int64  `envconfig:"MAX_MEMORY" default:"33554432"`
}

type CatalogConfig struct {
	Seed bool `envconfig:"SEED" default:"false"`
}

// LoadConfig loads configuration from environment variables, after applying
// a .env file from the working directory when one exists
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	return &cfg, nil
}
