// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Unit tests for UserPrompter.

# Testing Strategy

These tests verify:
  - InteractivePrompter correctly handles various user inputs
  - NonInteractivePrompter and AutoApprovePrompter behave as safe CI defaults
  - MockPrompter works correctly as a test double
  - Error handling for edge cases
*/
package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// InteractivePrompter Tests
// -----------------------------------------------------------------------------

func TestInteractivePrompter_Confirm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"lowercase y", "y\n", true},
		{"lowercase yes", "yes\n", true},
		{"uppercase YES", "YES\n", true},
		{"with spaces", "  y  \n", true},
		{"lowercase n", "n\n", false},
		{"empty input defaults to no", "\n", false},
		{"garbage defaults to no", "sure why not\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompter := NewInteractivePrompterWithIO(strings.NewReader(tt.input), &bytes.Buffer{})

			got, err := prompter.Confirm("Continue?")
			if err != nil {
				t.Fatalf("Confirm() unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Confirm() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestInteractivePrompter_Input(t *testing.T) {
	prompter := NewInteractivePrompterWithIO(strings.NewReader("  staging  \n"), &bytes.Buffer{})

	got, err := prompter.Input("Type the environment name")
	if err != nil {
		t.Fatalf("Input() unexpected error: %v", err)
	}
	if got != "staging" {
		t.Errorf("Input() = %q, want %q", got, "staging")
	}
}

func TestInteractivePrompter_Select(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIndex int
		wantErr   error
	}{
		{"first option", "1\n", 0, nil},
		{"last option", "3\n", 2, nil},
		{"zero is out of range", "0\n", 0, ErrInvalidSelection},
		{"past the end", "4\n", 0, ErrInvalidSelection},
		{"not a number", "two\n", 0, ErrInvalidSelection},
	}

	options := []string{"dev", "staging", "prod"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompter := NewInteractivePrompterWithIO(strings.NewReader(tt.input), &bytes.Buffer{})

			got, err := prompter.Select("Pick an environment", options)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Select() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() unexpected error: %v", err)
			}
			if got != tt.wantIndex {
				t.Errorf("Select() = %d, want %d", got, tt.wantIndex)
			}
		})
	}
}

func TestInteractivePrompter_SelectNoOptions(t *testing.T) {
	prompter := NewInteractivePrompterWithIO(strings.NewReader("1\n"), &bytes.Buffer{})

	if _, err := prompter.Select("Pick", nil); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("Select() with no options = %v, want ErrInvalidSelection", err)
	}
}

// -----------------------------------------------------------------------------
// NonInteractivePrompter Tests
// -----------------------------------------------------------------------------

func TestNonInteractivePrompter(t *testing.T) {
	p := &NonInteractivePrompter{}

	ok, err := p.Confirm("Proceed?")
	if err != nil || ok {
		t.Errorf("Confirm() = %v, %v; want false, nil", ok, err)
	}

	if _, err := p.Input("Type something"); !errors.Is(err, ErrNonInteractive) {
		t.Errorf("Input() error = %v, want ErrNonInteractive", err)
	}
	if _, err := p.Select("Pick", []string{"a"}); !errors.Is(err, ErrNonInteractive) {
		t.Errorf("Select() error = %v, want ErrNonInteractive", err)
	}
	if p.IsInteractive() {
		t.Error("IsInteractive() = true, want false")
	}
}

// -----------------------------------------------------------------------------
// AutoApprovePrompter Tests
// -----------------------------------------------------------------------------

func TestAutoApprovePrompter(t *testing.T) {
	p := &AutoApprovePrompter{}

	ok, err := p.Confirm("Apply?")
	if err != nil || !ok {
		t.Errorf("Confirm() = %v, %v; want true, nil", ok, err)
	}

	// Typed gates must never be satisfiable by auto-approval.
	if _, err := p.Input("Type the environment name"); !errors.Is(err, ErrNonInteractive) {
		t.Errorf("Input() error = %v, want ErrNonInteractive", err)
	}
}

// -----------------------------------------------------------------------------
// MockPrompter Tests
// -----------------------------------------------------------------------------

func TestMockPrompter_RecordsCalls(t *testing.T) {
	m := &MockPrompter{
		ConfirmFunc: func(prompt string) (bool, error) { return true, nil },
		InputFunc:   func(prompt string) (string, error) { return "dev", nil },
	}

	if _, err := m.Confirm("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Input("b"); err != nil {
		t.Fatal(err)
	}

	calls := m.GetCalls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Method != "Confirm" || calls[1].Method != "Input" {
		t.Errorf("call order = %v, %v", calls[0].Method, calls[1].Method)
	}

	m.Reset()
	if len(m.GetCalls()) != 0 {
		t.Error("Reset() should clear recorded calls")
	}
}

func TestMockPrompter_Defaults(t *testing.T) {
	m := &MockPrompter{}

	ok, err := m.Confirm("anything")
	if err != nil || ok {
		t.Errorf("unset ConfirmFunc = %v, %v; want false, nil", ok, err)
	}
	if _, err := m.Input("anything"); !errors.Is(err, ErrNonInteractive) {
		t.Errorf("unset InputFunc error = %v, want ErrNonInteractive", err)
	}
}
