// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/tidegate/cmd/tidegate/storage"
	"github.com/AleutianAI/tidegate/pkg/logging"
)

// =============================================================================
// Backend Descriptor
// =============================================================================

// BackendDescriptor records where an environment's provider state
// lives. It is written next to the environment's provider roots and
// read back on every subsequent run.
//
// The on-disk format uses a structured endpoints block. The obsolete
// flat `endpoint:` key is rejected with ErrDeprecatedConfiguration
// rather than silently reinterpreted; newer provider versions changed
// its meaning, so guessing would be worse than failing.
type BackendDescriptor struct {
	// Bucket is the state bucket name.
	Bucket string `yaml:"bucket"`

	// Region is the bucket's region.
	Region string `yaml:"region"`

	// Endpoints maps service names to endpoint URLs.
	Endpoints map[string]string `yaml:"endpoints"`

	// The skip markers disable cloud-vendor validation paths that do
	// not apply to a compatible third-party object store. All three
	// must be present and true.
	SkipCredentialsValidation bool `yaml:"skip_credentials_validation"`
	SkipMetadataAPICheck      bool `yaml:"skip_metadata_api_check"`
	SkipRegionValidation      bool `yaml:"skip_region_validation"`

	// Configured is set once the backend is verified usable. Not
	// serialized; descriptors on disk are re-verified every run.
	Configured bool `yaml:"-"`
}

// ValidateDescriptor checks a raw descriptor document.
//
// Returns ErrDeprecatedConfiguration for the flat endpoint format and
// ErrInvalidConfiguration for structurally incomplete descriptors.
func ValidateDescriptor(data []byte) (BackendDescriptor, error) {
	// Detect the deprecated flat key before strict parsing; it would
	// otherwise just be an unknown field.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return BackendDescriptor{}, fmt.Errorf("%w: descriptor is not valid YAML: %v",
			ErrInvalidConfiguration, err)
	}
	if _, ok := raw["endpoint"]; ok {
		return BackendDescriptor{}, fmt.Errorf(
			"%w: flat `endpoint` key found; migrate to the structured `endpoints` block",
			ErrDeprecatedConfiguration)
	}

	var desc BackendDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return BackendDescriptor{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	if desc.Bucket == "" {
		return BackendDescriptor{}, fmt.Errorf("%w: descriptor missing bucket", ErrInvalidConfiguration)
	}
	if desc.Region == "" {
		return BackendDescriptor{}, fmt.Errorf("%w: descriptor missing region", ErrInvalidConfiguration)
	}
	if len(desc.Endpoints) == 0 {
		return BackendDescriptor{}, fmt.Errorf("%w: descriptor missing `endpoints` block",
			ErrInvalidConfiguration)
	}
	if !desc.SkipCredentialsValidation || !desc.SkipMetadataAPICheck || !desc.SkipRegionValidation {
		return BackendDescriptor{}, fmt.Errorf(
			"%w: descriptor must set all skip_* markers for a compatible object store",
			ErrInvalidConfiguration)
	}

	return desc, nil
}

// =============================================================================
// Interface Definition
// =============================================================================

// BackendManager bootstraps and verifies environment state backends.
//
// # Description
//
// EnsureBackend is idempotent: calling it on an already-bootstrapped
// environment verifies and returns the existing backend without
// creating anything. The bucket name is a pure function of product
// and environment, so repeated runs always converge.
//
// # Error Semantics
//
// A probe failure is ErrBackendUnreachable, never treated as absence.
// Creating a bucket over live state because the probe timed out is the
// exact failure mode this component exists to prevent.
type BackendManager interface {
	// EnsureBackend makes the environment's state backend usable and
	// returns its descriptor.
	EnsureBackend(ctx context.Context, env EnvironmentContext, forceRecreate bool) (BackendDescriptor, error)

	// DescriptorPath returns where the environment's descriptor lives.
	DescriptorPath(env EnvironmentContext) string
}

// =============================================================================
// Implementation
// =============================================================================

// DefaultBackendManager implements BackendManager over an ObjectStore.
type DefaultBackendManager struct {
	store storage.ObjectStore
	// stateRoot is the directory containing per-environment roots.
	stateRoot string
	output    io.Writer
	logger    *logging.Logger
}

// NewDefaultBackendManager creates a backend manager.
func NewDefaultBackendManager(store storage.ObjectStore, stateRoot string, output io.Writer, logger *logging.Logger) *DefaultBackendManager {
	return &DefaultBackendManager{
		store:     store,
		stateRoot: stateRoot,
		output:    output,
		logger:    logger,
	}
}

// DescriptorPath returns {stateRoot}/{env}/backend.yaml.
func (m *DefaultBackendManager) DescriptorPath(env EnvironmentContext) string {
	return filepath.Join(m.stateRoot, env.Name.String(), "backend.yaml")
}

// EnsureBackend makes the environment's state backend usable.
//
// Sequence: validate any existing descriptor, probe the bucket, create
// it only on confirmed absence, then write the descriptor. The write
// happens last so a descriptor on disk always refers to a bucket that
// existed at write time; it is skipped entirely when a valid
// descriptor already exists and forceRecreate is false.
func (m *DefaultBackendManager) EnsureBackend(ctx context.Context, env EnvironmentContext, forceRecreate bool) (BackendDescriptor, error) {
	bucket := env.StateBucketName()
	descPath := m.DescriptorPath(env)

	// Validate an existing descriptor first: a malformed or deprecated
	// descriptor must stop the run before any remote call.
	var existing *BackendDescriptor
	if data, err := os.ReadFile(descPath); err == nil && !forceRecreate {
		desc, err := ValidateDescriptor(data)
		if err != nil {
			return BackendDescriptor{}, fmt.Errorf("descriptor %s: %w", descPath, err)
		}
		if desc.Bucket != bucket {
			return BackendDescriptor{}, fmt.Errorf(
				"%w: descriptor %s names bucket %q but the environment derives %q",
				ErrInvalidConfiguration, descPath, desc.Bucket, bucket)
		}
		existing = &desc
	}

	probeCtx, cancel := context.WithTimeout(ctx, env.Timeouts.Probe)
	defer cancel()

	exists, err := m.store.BucketExists(probeCtx, bucket)
	if err != nil {
		// The bucket may exist; only a confirmed "not found" permits
		// creation.
		return BackendDescriptor{}, fmt.Errorf("%w: probing bucket %s: %v",
			ErrBackendUnreachable, bucket, err)
	}

	if exists {
		fmt.Fprintf(m.output, "State backend bucket %s already exists\n", bucket)
	} else {
		fmt.Fprintf(m.output, "Creating state backend bucket %s in %s...\n", bucket, env.Region)
		if err := m.store.CreateBucket(ctx, bucket, env.Region); err != nil {
			return BackendDescriptor{}, fmt.Errorf("%w: creating bucket %s: %v",
				ErrBackendUnreachable, bucket, err)
		}
		m.logger.Info("state backend bucket created", "bucket", bucket, "region", env.Region)
	}

	// A valid descriptor on disk is authoritative: return it unchanged
	// rather than regenerating it, so a custom endpoints block survives
	// repeated runs.
	if existing != nil {
		existing.Configured = true
		return *existing, nil
	}

	desc := BackendDescriptor{
		Bucket: bucket,
		Region: env.Region,
		Endpoints: map[string]string{
			"s3": fmt.Sprintf("https://s3.%s.scw.cloud", env.Region),
		},
		SkipCredentialsValidation: true,
		SkipMetadataAPICheck:      true,
		SkipRegionValidation:      true,
		Configured:                true,
	}

	if err := m.writeDescriptor(descPath, desc); err != nil {
		return BackendDescriptor{}, err
	}

	return desc, nil
}

// writeDescriptor serializes the descriptor to disk.
func (m *DefaultBackendManager) writeDescriptor(path string, desc BackendDescriptor) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create descriptor directory: %w", err)
	}
	data, err := yaml.Marshal(desc)
	if err != nil {
		return fmt.Errorf("failed to serialize descriptor: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptor %s: %w", path, err)
	}
	return nil
}

// Compile-time interface compliance check.
var _ BackendManager = (*DefaultBackendManager)(nil)
