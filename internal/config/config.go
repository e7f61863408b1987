// Package config reads the environment-backed settings for the
// optional cloud integrations. Everything about a single evaluation is
// flag-driven; only the GCP wiring lives here.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config holds the GCP settings shared by the export and migration
// commands.
type Config struct {
	// ProjectID is required only when an export or migration runs.
	ProjectID string `env:"FMIGRATION_GCP_PROJECT"`
	// Dataset is the BigQuery dataset holding the export tables.
	Dataset string `env:"FMIGRATION_BQ_DATASET" envDefault:"migration"`
	// Bucket is the default GCS bucket for report uploads.
	Bucket string `env:"FMIGRATION_GCS_BUCKET"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// RequireProject fails when no GCP project is configured, either via
// flag or environment.
func (c *Config) RequireProject(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if c.ProjectID != "" {
		return c.ProjectID, nil
	}
	return "", fmt.Errorf("GCP project not set: pass -project or set FMIGRATION_GCP_PROJECT")
}
