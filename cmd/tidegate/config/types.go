// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// TidegateConfig is the per-user configuration for the tidegate CLI.
//
// Loaded from ~/.tidegate/tidegate.yaml, auto-created with defaults on
// first run. Field validation runs at load time via validator tags so a
// malformed config fails fast instead of surfacing mid-teardown.
type TidegateConfig struct {
	// Product names the platform the environments host. It is part of
	// the deterministic state bucket name, so changing it re-homes all
	// terraform state.
	Product string `yaml:"product" validate:"required,hostname_rfc1123"`

	// StateRoot is the directory containing per-environment terraform
	// roots: {StateRoot}/{env}/infrastructure and .../application for
	// two-phase layouts, or {StateRoot}/{env} for legacy ones.
	StateRoot string `yaml:"state_root" validate:"required"`

	// Environments maps environment names to their settings.
	Environments map[string]EnvironmentConfig `yaml:"environments" validate:"required,dive"`

	// Backup controls backup bundle placement and retention.
	Backup BackupConfig `yaml:"backup"`

	// Logging controls the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// EnvironmentConfig holds the per-environment settings.
type EnvironmentConfig struct {
	// Region is the provider region (e.g. fr-par).
	Region string `yaml:"region" validate:"required"`

	// Zone is the provider zone (e.g. fr-par-1).
	Zone string `yaml:"zone"`

	// Domain is the base domain serving the environment.
	Domain string `yaml:"domain"`

	// Layout selects the terraform root structure.
	Layout string `yaml:"layout" validate:"omitempty,oneof=two-phase legacy"`

	// InstanceType is the database instance class for cost estimates
	// and resize operations.
	InstanceType string `yaml:"instance_type"`

	// DrainTimeoutSeconds bounds the best-effort workspace drain wait
	// during teardown. Zero means the built-in default.
	DrainTimeoutSeconds int `yaml:"drain_timeout_seconds" validate:"gte=0"`
}

// BackupConfig controls backup bundle placement and retention.
type BackupConfig struct {
	// Dir is where backup bundles are written. Supports ~ expansion.
	Dir string `yaml:"dir" validate:"required"`

	// RetentionDays is the default retention for purge operations.
	RetentionDays int `yaml:"retention_days" validate:"gte=0"`

	// Upload enables best-effort upload of finished bundles to the
	// environment's state bucket.
	Upload bool `yaml:"upload"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir enables file logging when set. Supports ~ expansion.
	Dir string `yaml:"dir"`
}

// Validate checks the config against its validator tags.
func (c *TidegateConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Environment returns the settings for the named environment.
//
// Unknown environments are an error; tidegate never invents settings
// for an environment the config doesn't declare.
func (c *TidegateConfig) Environment(name string) (EnvironmentConfig, error) {
	env, ok := c.Environments[name]
	if !ok {
		return EnvironmentConfig{}, fmt.Errorf("environment %q is not declared in the configuration", name)
	}
	return env, nil
}

// validate is the shared validator instance. validator.Validate caches
// struct metadata, so a single instance is the intended usage.
var validate = validator.New()

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() TidegateConfig {
	stateRoot := "environments"
	backupDir := filepath.Join("~", ".tidegate", "backups")
	if home, err := os.UserHomeDir(); err == nil {
		stateRoot = filepath.Join(home, "environments")
	}

	return TidegateConfig{
		Product:   "coder",
		StateRoot: stateRoot,
		Environments: map[string]EnvironmentConfig{
			"dev": {
				Region:       "fr-par",
				Zone:         "fr-par-1",
				Domain:       "dev.coder.example.com",
				Layout:       "two-phase",
				InstanceType: "db-dev-s",
			},
			"staging": {
				Region:       "fr-par",
				Zone:         "fr-par-1",
				Domain:       "staging.coder.example.com",
				Layout:       "two-phase",
				InstanceType: "db-gp-xs",
			},
			"prod": {
				Region:       "fr-par",
				Zone:         "fr-par-1",
				Domain:       "coder.example.com",
				Layout:       "two-phase",
				InstanceType: "db-gp-s",
			},
		},
		Backup: BackupConfig{
			Dir:           backupDir,
			RetentionDays: 30,
			Upload:        true,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join("~", ".tidegate", "logs"),
		},
	}
}
