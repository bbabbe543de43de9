// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package util

import (
	"testing"
	"time"
)

func TestEnforceMinTimeout(t *testing.T) {
	tests := []struct {
		name      string
		requested time.Duration
		minimum   time.Duration
		want      time.Duration
	}{
		{"zero gets minimum", 0, time.Second, time.Second},
		{"negative gets minimum", -time.Second, time.Second, time.Second},
		{"below minimum raised", 500 * time.Millisecond, time.Second, time.Second},
		{"valid passes through", 5 * time.Second, time.Second, 5 * time.Second},
		{"exactly minimum passes", time.Second, time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EnforceMinTimeout(tt.requested, tt.minimum); got != tt.want {
				t.Errorf("EnforceMinTimeout(%v, %v) = %v, want %v",
					tt.requested, tt.minimum, got, tt.want)
			}
		})
	}
}

func TestEnforceDefaultTimeout(t *testing.T) {
	tests := []struct {
		name       string
		requested  time.Duration
		defaultVal time.Duration
		want       time.Duration
	}{
		{"zero gets default", 0, 30 * time.Second, 30 * time.Second},
		{"negative gets default", -1, 30 * time.Second, 30 * time.Second},
		{"small positive allowed", time.Millisecond, 30 * time.Second, time.Millisecond},
		{"positive passes through", time.Minute, 30 * time.Second, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EnforceDefaultTimeout(tt.requested, tt.defaultVal); got != tt.want {
				t.Errorf("EnforceDefaultTimeout(%v, %v) = %v, want %v",
					tt.requested, tt.defaultVal, got, tt.want)
			}
		})
	}
}

func TestTimeoutConfig_Validated(t *testing.T) {
	cfg := &TimeoutConfig{} // All zero - everything should be raised
	valid := cfg.Validated()

	if valid.Probe != MinProbeTimeout {
		t.Errorf("Probe = %v, want %v", valid.Probe, MinProbeTimeout)
	}
	if valid.Provider != MinProcessTimeout {
		t.Errorf("Provider = %v, want %v", valid.Provider, MinProcessTimeout)
	}
	if valid.Drain != MinDrainTimeout {
		t.Errorf("Drain = %v, want %v", valid.Drain, MinDrainTimeout)
	}

	// Original must not be modified.
	if cfg.Probe != 0 {
		t.Error("Validated() must not mutate the receiver")
	}
}

func TestNewTimeoutConfig_Defaults(t *testing.T) {
	cfg := NewTimeoutConfig()
	if cfg.Drain != DefaultDrainTimeout {
		t.Errorf("Drain = %v, want %v", cfg.Drain, DefaultDrainTimeout)
	}
	if cfg.Provider != DefaultProviderTimeout {
		t.Errorf("Provider = %v, want %v", cfg.Provider, DefaultProviderTimeout)
	}

	// Defaults must satisfy their own minimums.
	valid := cfg.Validated()
	if valid != cfg {
		t.Errorf("Validated() changed defaults: %+v vs %+v", valid, cfg)
	}
}
