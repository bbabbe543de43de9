// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrNonInteractive is returned when typed input is required but no
	// interactive terminal is available. Typed confirmation gates can
	// never be satisfied from a pipe.
	ErrNonInteractive = errors.New("interactive input required but not available")

	// ErrCancelled is returned when the operator declines a
	// confirmation. It maps to exit code 0: saying no is a valid
	// outcome, not a failure.
	ErrCancelled = errors.New("cancelled by user")

	// ErrInvalidSelection is returned when a menu selection is out of
	// range or not a number.
	ErrInvalidSelection = errors.New("invalid selection")
)

// =============================================================================
// Interface Definition
// =============================================================================

// UserPrompter handles all interaction with the operator.
//
// Every prompt in the lifecycle flows through this interface so tests
// can script responses and non-interactive runs (CI) get predictable
// behavior instead of hanging on a read from a closed stdin.
type UserPrompter interface {
	// Confirm asks a yes/no question. Returns the answer; only
	// explicit affirmatives ("y", "yes") count as true.
	Confirm(prompt string) (bool, error)

	// Input asks for a typed line and returns it trimmed.
	// Returns ErrNonInteractive when typed input is unavailable.
	Input(prompt string) (string, error)

	// Select presents numbered options and returns the chosen index.
	// Returns ErrInvalidSelection for out-of-range or non-numeric
	// answers.
	Select(prompt string, options []string) (int, error)

	// IsInteractive reports whether a human is on the other end.
	IsInteractive() bool
}

// =============================================================================
// Interactive Implementation
// =============================================================================

// InteractivePrompter reads responses from a terminal.
//
// The reader and writer are injectable so tests can drive prompts
// through buffers; production construction wires stdin and stderr.
type InteractivePrompter struct {
	reader      *bufio.Reader
	output      io.Writer
	interactive bool
}

// NewInteractivePrompter creates a prompter on stdin/stderr.
//
// Terminal detection uses isatty on stdin; when stdin is a pipe the
// prompter still reads from it, but IsInteractive reports false so
// callers can refuse typed gates.
func NewInteractivePrompter() *InteractivePrompter {
	return &InteractivePrompter{
		reader:      bufio.NewReader(os.Stdin),
		output:      os.Stderr,
		interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
}

// NewInteractivePrompterWithIO creates a prompter over explicit
// streams, treated as interactive. Used by tests.
func NewInteractivePrompterWithIO(r io.Reader, w io.Writer) *InteractivePrompter {
	return &InteractivePrompter{
		reader:      bufio.NewReader(r),
		output:      w,
		interactive: true,
	}
}

// Confirm asks a yes/no question, defaulting to no.
func (p *InteractivePrompter) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(p.output, "%s [y/N]: ", prompt)

	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Input asks for a typed line and returns it trimmed.
func (p *InteractivePrompter) Input(prompt string) (string, error) {
	if !p.interactive {
		return "", ErrNonInteractive
	}
	fmt.Fprintf(p.output, "%s: ", prompt)

	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Select presents numbered options and returns the chosen index.
func (p *InteractivePrompter) Select(prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("%w: no options to select from", ErrInvalidSelection)
	}

	fmt.Fprintf(p.output, "%s\n", prompt)
	for i, opt := range options {
		fmt.Fprintf(p.output, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprintf(p.output, "Selection [1-%d]: ", len(options))

	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return 0, fmt.Errorf("failed to read selection: %w", err)
	}

	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, strings.TrimSpace(line))
	}
	if choice < 1 || choice > len(options) {
		return 0, fmt.Errorf("%w: %d is out of range 1-%d", ErrInvalidSelection, choice, len(options))
	}
	return choice - 1, nil
}

// IsInteractive reports whether a human is on the other end.
func (p *InteractivePrompter) IsInteractive() bool {
	return p.interactive
}

// =============================================================================
// Non-Interactive Implementation
// =============================================================================

// NonInteractivePrompter declines everything.
//
// Used when no terminal is attached and no auto-approve flag was
// given: confirmations answer no, typed input is unavailable.
type NonInteractivePrompter struct{}

// Confirm declines without error.
func (p *NonInteractivePrompter) Confirm(prompt string) (bool, error) {
	return false, nil
}

// Input fails: typed input cannot come from nowhere.
func (p *NonInteractivePrompter) Input(prompt string) (string, error) {
	return "", ErrNonInteractive
}

// Select fails: there is no one to choose.
func (p *NonInteractivePrompter) Select(prompt string, options []string) (int, error) {
	return 0, ErrNonInteractive
}

// IsInteractive returns false.
func (p *NonInteractivePrompter) IsInteractive() bool {
	return false
}

// =============================================================================
// Auto-Approve Implementation
// =============================================================================

// AutoApprovePrompter answers yes to every confirmation.
//
// Selected by --auto-approve for unattended runs. Typed gates still
// fail with ErrNonInteractive: auto-approval never satisfies a gate
// that exists specifically to prove a human typed the target's name.
type AutoApprovePrompter struct{}

// Confirm approves without asking.
func (p *AutoApprovePrompter) Confirm(prompt string) (bool, error) {
	return true, nil
}

// Input fails: typed gates cannot be auto-approved.
func (p *AutoApprovePrompter) Input(prompt string) (string, error) {
	return "", ErrNonInteractive
}

// Select fails: choosing on the operator's behalf is not approval.
func (p *AutoApprovePrompter) Select(prompt string, options []string) (int, error) {
	return 0, ErrNonInteractive
}

// IsInteractive returns false.
func (p *AutoApprovePrompter) IsInteractive() bool {
	return false
}

// =============================================================================
// Mock Implementation for Testing
// =============================================================================

// MockPrompter is a test double for UserPrompter.
//
// Configure by setting function fields; unset Confirm declines, unset
// Input returns ErrNonInteractive. All invocations are recorded.
type MockPrompter struct {
	ConfirmFunc func(prompt string) (bool, error)
	InputFunc   func(prompt string) (string, error)
	SelectFunc  func(prompt string, options []string) (int, error)
	Interactive bool

	// Calls records all prompt invocations for verification
	Calls []PrompterCall

	mu sync.Mutex
}

// PrompterCall records a single prompt invocation.
type PrompterCall struct {
	Method  string
	Prompt  string
	Options []string
}

// Confirm delegates to ConfirmFunc and records the call.
func (m *MockPrompter) Confirm(prompt string) (bool, error) {
	m.record(PrompterCall{Method: "Confirm", Prompt: prompt})
	if m.ConfirmFunc == nil {
		return false, nil
	}
	return m.ConfirmFunc(prompt)
}

// Input delegates to InputFunc and records the call.
func (m *MockPrompter) Input(prompt string) (string, error) {
	m.record(PrompterCall{Method: "Input", Prompt: prompt})
	if m.InputFunc == nil {
		return "", ErrNonInteractive
	}
	return m.InputFunc(prompt)
}

// Select delegates to SelectFunc and records the call.
func (m *MockPrompter) Select(prompt string, options []string) (int, error) {
	m.record(PrompterCall{Method: "Select", Prompt: prompt, Options: options})
	if m.SelectFunc == nil {
		return 0, ErrNonInteractive
	}
	return m.SelectFunc(prompt, options)
}

// IsInteractive returns the configured flag.
func (m *MockPrompter) IsInteractive() bool {
	return m.Interactive
}

func (m *MockPrompter) record(call PrompterCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Reset clears all recorded calls.
func (m *MockPrompter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockPrompter) GetCalls() []PrompterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]PrompterCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ UserPrompter = (*InteractivePrompter)(nil)
	_ UserPrompter = (*NonInteractivePrompter)(nil)
	_ UserPrompter = (*AutoApprovePrompter)(nil)
	_ UserPrompter = (*MockPrompter)(nil)
)
