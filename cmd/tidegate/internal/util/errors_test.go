// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package util

import (
	"errors"
	"fmt"
	"testing"
)

func TestCommandError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *CommandError
		want string
	}{
		{
			name: "with stderr",
			err:  &CommandError{Command: "terraform apply", ExitCode: 1, Stderr: "quota exceeded"},
			want: "terraform apply (exit 1): quota exceeded",
		},
		{
			name: "with wrapped error only",
			err:  &CommandError{Command: "kubectl drain", ExitCode: 1, Wrapped: errors.New("connection refused")},
			want: "kubectl drain (exit 1): connection refused",
		},
		{
			name: "bare",
			err:  &CommandError{Command: "pg_dump", ExitCode: 2},
			want: "pg_dump (exit 2)",
		},
		{
			name: "stderr takes priority over wrapped",
			err:  &CommandError{Command: "terraform", ExitCode: 1, Stderr: "real cause", Wrapped: errors.New("exit status 1")},
			want: "terraform (exit 1): real cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	original := errors.New("connection refused")
	cmdErr := NewCommandError("terraform plan", 1, "", original)

	if !errors.Is(cmdErr, original) {
		t.Error("errors.Is should find the wrapped error")
	}

	var target *CommandError
	wrapped := fmt.Errorf("provider step failed: %w", cmdErr)
	if !errors.As(wrapped, &target) {
		t.Error("errors.As should find CommandError through the chain")
	}
	if target.Command != "terraform plan" {
		t.Errorf("Command = %q, want %q", target.Command, "terraform plan")
	}
}

func TestNewCommandError_TrimsStderr(t *testing.T) {
	err := NewCommandError("kubectl", 1, "  \n error text \n\n", nil)
	if err.Stderr != "error text" {
		t.Errorf("Stderr = %q, want trimmed %q", err.Stderr, "error text")
	}
	if !err.HasStderr() {
		t.Error("HasStderr() should be true")
	}
}

func TestWrapCommandError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := WrapCommandError(nil, "terraform", 1, ""); got != nil {
			t.Errorf("WrapCommandError(nil) = %v, want nil", got)
		}
	})

	t.Run("does not double-wrap", func(t *testing.T) {
		original := NewCommandError("terraform", 1, "boom", nil)
		got := WrapCommandError(original, "other", 2, "other stderr")
		if got != original {
			t.Error("existing CommandError should be returned as-is")
		}
	})

	t.Run("wraps plain error", func(t *testing.T) {
		plain := errors.New("exec failed")
		got := WrapCommandError(plain, "pg_dump", -1, "")
		if got.Command != "pg_dump" || got.Wrapped != plain {
			t.Errorf("unexpected wrap result: %+v", got)
		}
	})
}

func TestExtractStderr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("no stderr here"), ""},
		{"direct", NewCommandError("terraform", 1, "direct stderr", nil), "direct stderr"},
		{
			"nested",
			fmt.Errorf("outer: %w", NewCommandError("kubectl", 1, "nested stderr", nil)),
			"nested stderr",
		},
		{"empty stderr skipped", NewCommandError("terraform", 1, "", errors.New("inner")), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractStderr(tt.err); got != tt.want {
				t.Errorf("ExtractStderr() = %q, want %q", got, tt.want)
			}
		})
	}
}
