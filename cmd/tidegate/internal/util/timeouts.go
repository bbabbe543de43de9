// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package util

import "time"

// =============================================================================
// Constants
// =============================================================================

// Timeout constants define minimum and default values for lifecycle
// operations. These floors prevent accidental infinite hangs when a
// timeout is misconfigured to zero.
const (
	// MinProcessTimeout is the absolute minimum for external tool runs.
	MinProcessTimeout = 5 * time.Second

	// MinProbeTimeout is the absolute minimum for backend bucket probes.
	MinProbeTimeout = 1 * time.Second

	// MinDrainTimeout is the absolute minimum for workspace drain waits.
	MinDrainTimeout = 10 * time.Second

	// DefaultProbeTimeout is the standard timeout for bucket probes.
	DefaultProbeTimeout = 30 * time.Second

	// DefaultProviderTimeout is the standard timeout for a single
	// provider plan/apply/destroy invocation.
	DefaultProviderTimeout = 30 * time.Minute

	// DefaultDrainTimeout bounds the best-effort workspace drain wait.
	DefaultDrainTimeout = 120 * time.Second

	// DefaultBackupTimeout is the standard timeout for a single backup
	// component capture (state pull, manifest export, database dump).
	DefaultBackupTimeout = 10 * time.Minute
)

// =============================================================================
// TimeoutConfig
// =============================================================================

// TimeoutValidator defines the contract for timeout configuration
// validation. Implementations ensure all timeout values meet their
// respective minimums.
type TimeoutValidator interface {
	// Validated returns a copy with all timeouts at least at their minimums.
	Validated() TimeoutConfig
}

// TimeoutConfig holds timeout settings for lifecycle operations.
//
// Use NewTimeoutConfig to create with defaults, and call Validated()
// before using values so the minimums are enforced.
//
// # Thread Safety
//
// TimeoutConfig is safe for concurrent reads. Concurrent modification
// requires external synchronization.
type TimeoutConfig struct {
	// Probe is the timeout for backend bucket existence probes.
	Probe time.Duration

	// Provider is the timeout for a single provider invocation.
	Provider time.Duration

	// Drain is the bound on the best-effort workspace drain wait.
	Drain time.Duration

	// Backup is the timeout for a single backup component capture.
	Backup time.Duration
}

// Validated returns a copy with all timeouts raised to their minimums.
//
// The original config is not modified.
func (c *TimeoutConfig) Validated() TimeoutConfig {
	return TimeoutConfig{
		Probe:    EnforceMinTimeout(c.Probe, MinProbeTimeout),
		Provider: EnforceMinTimeout(c.Provider, MinProcessTimeout),
		Drain:    EnforceMinTimeout(c.Drain, MinDrainTimeout),
		Backup:   EnforceMinTimeout(c.Backup, MinProcessTimeout),
	}
}

// Compile-time interface satisfaction check
var _ TimeoutValidator = (*TimeoutConfig)(nil)

// NewTimeoutConfig creates a TimeoutConfig with the default values.
func NewTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Probe:    DefaultProbeTimeout,
		Provider: DefaultProviderTimeout,
		Drain:    DefaultDrainTimeout,
		Backup:   DefaultBackupTimeout,
	}
}

// =============================================================================
// Utility Functions
// =============================================================================

// EnforceMinTimeout returns at least the minimum timeout.
//
// If the requested timeout is zero, negative, or below the minimum,
// returns the minimum instead.
func EnforceMinTimeout(requested, minimum time.Duration) time.Duration {
	if requested <= 0 || requested < minimum {
		return minimum
	}
	return requested
}

// EnforceDefaultTimeout returns the default if requested is zero or
// negative. Unlike EnforceMinTimeout, any positive value is accepted.
func EnforceDefaultTimeout(requested, defaultVal time.Duration) time.Duration {
	if requested <= 0 {
		return defaultVal
	}
	return requested
}
