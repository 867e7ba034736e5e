// Package config reads the service configuration from the environment once at
// startup. The configuration is immutable afterwards.
package config

import (
	"os"

	"github.com/pkg/errors"
)

// Config holds the process-wide, read-only configuration.
type Config struct {
	// RoadworksBaseURL is the obstacle service endpoint.
	RoadworksBaseURL string
	// RoadworksServiceKey authenticates against the obstacle service.
	RoadworksServiceKey string
	// ValhallaBaseURL is the routing engine endpoint.
	ValhallaBaseURL string
	// ListenAddr is the HTTP listen address.
	ListenAddr string
}

// FromEnv builds the configuration from environment variables. The two
// upstream base URLs are required.
func FromEnv() (*Config, error) {
	cfg := &Config{
		RoadworksBaseURL:    os.Getenv("ROADWORKS_BASE_URL"),
		RoadworksServiceKey: os.Getenv("ROADWORKS_SERVICE_KEY"),
		ValhallaBaseURL:     os.Getenv("VALHALLA_BASE_URL"),
		ListenAddr:          os.Getenv("LISTEN_ADDR"),
	}
	if cfg.RoadworksBaseURL == "" {
		return nil, errors.New("ROADWORKS_BASE_URL is required")
	}
	if cfg.ValhallaBaseURL == "" {
		return nil, errors.New("VALHALLA_BASE_URL is required")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	return cfg, nil
}
