// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/util"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// Manager handles external process operations.
//
// This interface abstracts all interaction with the operating system's
// process management, enabling testable code that doesn't require real
// process execution.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Handling
//
// All methods accept a context.Context for cancellation and timeout
// support. Long-running processes (terraform apply, node drains) must
// respect context cancellation.
type Manager interface {
	// Run executes a command synchronously and returns its stdout.
	//
	// # Description
	//
	// Executes the specified command with arguments and waits for
	// completion. Stderr is captured and folded into the returned
	// error on failure.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Stdout output
	//   - error: *util.CommandError on command failure
	//
	// # Examples
	//
	//   output, err := pm.Run(ctx, "kubectl", "get", "nodes", "-o", "json")
	//   if err != nil {
	//       return fmt.Errorf("failed to list nodes: %w", err)
	//   }
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInDir executes a command with the given working directory.
	//
	// # Description
	//
	// Identical to Run except the process starts in dir. This is how
	// terraform is driven: the phase directory (infrastructure/ or
	// application/) determines which root module the command targets.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - dir: Working directory for the process
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Stdout output
	//   - error: *util.CommandError on command failure
	RunInDir(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

	// RunWithInput executes a command with data piped to stdin.
	//
	// # Description
	//
	// Executes the specified command and pipes the input data to the
	// process's stdin. Used for commands that consume manifests or
	// dumps from stdin (e.g., kubectl apply -f -).
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - input: Data to write to stdin
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Stdout output
	//   - error: *util.CommandError on command failure
	//
	// # Limitations
	//
	//   - Input is fully buffered in memory before being written
	RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)

	// RunStreaming executes a command and streams combined output to w.
	//
	// # Description
	//
	// Runs the command in dir with stdout and stderr attached to w as
	// they are produced. Used for long operations whose progress the
	// operator should see live (terraform apply/destroy).
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - dir: Working directory ("" for inherited)
	//   - w: Destination for combined stdout+stderr
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - error: *util.CommandError on command failure
	//
	// # Limitations
	//
	//   - Stderr is interleaved with stdout; the error carries only
	//     the exit code, not a separate stderr capture
	RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error

	// IsRunning checks if a process matching the pattern exists.
	//
	// # Description
	//
	// Searches for running processes whose command line matches the
	// given pattern. Uses pgrep on Unix systems.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - pattern: String pattern matched against command lines
	//
	// # Outputs
	//
	//   - bool: True if at least one matching process is running
	//   - int: PID of first matching process (0 if not found)
	//   - error: Non-nil if detection fails (not for "not found")
	//
	// # Assumptions
	//
	//   - pgrep is available on the system (standard on macOS/Linux)
	IsRunning(ctx context.Context, pattern string) (bool, int, error)
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultManager implements Manager using os/exec.
//
// This is the production implementation that executes real processes on
// the system. Use MockManager in tests instead.
type DefaultManager struct{}

// NewDefaultManager creates a Manager that executes real processes.
func NewDefaultManager() *DefaultManager {
	return &DefaultManager{}
}

// Run executes a command synchronously and returns its stdout.
func (pm *DefaultManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return pm.RunInDir(ctx, "", name, args...)
}

// RunInDir executes a command in dir and returns its stdout.
func (pm *DefaultManager) RunInDir(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, util.NewCommandError(commandLine(name, args), exitCode(err), stderr.String(), err)
	}

	return stdout.Bytes(), nil
}

// RunWithInput executes a command with data piped to stdin.
func (pm *DefaultManager) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, util.NewCommandError(commandLine(name, args), exitCode(err), stderr.String(), err)
	}

	return stdout.Bytes(), nil
}

// RunStreaming executes a command streaming combined output to w.
func (pm *DefaultManager) RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Run(); err != nil {
		return util.NewCommandError(commandLine(name, args), exitCode(err), "", err)
	}

	return nil
}

// IsRunning checks if a process matching the pattern exists.
func (pm *DefaultManager) IsRunning(ctx context.Context, pattern string) (bool, int, error) {
	cmd := exec.CommandContext(ctx, "pgrep", "-f", pattern)
	output, err := cmd.Output()

	if err != nil {
		// pgrep exits 1 when no processes match - not an error
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, 0, nil
		}
		return false, 0, util.NewCommandError("pgrep -f "+pattern, exitCode(err), "", err)
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) > 0 && lines[0] != "" {
		pid, err := strconv.Atoi(lines[0])
		if err != nil {
			return true, 0, nil // Process found but PID parse failed
		}
		return true, pid, nil
	}

	return false, 0, nil
}

// commandLine joins a command and its arguments for error reporting.
func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// exitCode extracts the process exit code from an exec error.
//
// Returns -1 when the process never ran or the code is unknown.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockManager is a test double for Manager.
//
// Configure the mock by setting function fields before use. If a
// function field is nil and the corresponding method is called, it
// panics: a test exercising an unexpected path should fail loudly.
//
// # Examples
//
//	mock := &MockManager{
//	    RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
//	        if name == "terraform" && args[0] == "state" {
//	            return []byte("module.cluster.scaleway_k8s_cluster.main\n"), nil
//	        }
//	        return nil, fmt.Errorf("unexpected command: %s", name)
//	    },
//	}
type MockManager struct {
	// RunFunc is called when Run is invoked
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInDirFunc is called when RunInDir is invoked
	RunInDirFunc func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

	// RunWithInputFunc is called when RunWithInput is invoked
	RunWithInputFunc func(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)

	// RunStreamingFunc is called when RunStreaming is invoked
	RunStreamingFunc func(ctx context.Context, dir string, w io.Writer, name string, args ...string) error

	// IsRunningFunc is called when IsRunning is invoked
	IsRunningFunc func(ctx context.Context, pattern string) (bool, int, error)

	// Calls records all method invocations for verification
	Calls []ManagerCall

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// ManagerCall records a single method invocation.
type ManagerCall struct {
	Method string
	Dir    string
	Name   string
	Args   []string
	Input  []byte
}

// Run delegates to RunFunc and records the call.
func (m *MockManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record(ManagerCall{Method: "Run", Name: name, Args: args})
	if m.RunFunc == nil {
		panic("MockManager.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// RunInDir delegates to RunInDirFunc and records the call.
func (m *MockManager) RunInDir(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	m.record(ManagerCall{Method: "RunInDir", Dir: dir, Name: name, Args: args})
	if m.RunInDirFunc == nil {
		panic("MockManager.RunInDirFunc not set")
	}
	return m.RunInDirFunc(ctx, dir, name, args...)
}

// RunWithInput delegates to RunWithInputFunc and records the call.
func (m *MockManager) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	m.record(ManagerCall{Method: "RunWithInput", Name: name, Args: args, Input: input})
	if m.RunWithInputFunc == nil {
		panic("MockManager.RunWithInputFunc not set")
	}
	return m.RunWithInputFunc(ctx, name, input, args...)
}

// RunStreaming delegates to RunStreamingFunc and records the call.
func (m *MockManager) RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
	m.record(ManagerCall{Method: "RunStreaming", Dir: dir, Name: name, Args: args})
	if m.RunStreamingFunc == nil {
		panic("MockManager.RunStreamingFunc not set")
	}
	return m.RunStreamingFunc(ctx, dir, w, name, args...)
}

// IsRunning delegates to IsRunningFunc and records the call.
func (m *MockManager) IsRunning(ctx context.Context, pattern string) (bool, int, error) {
	m.record(ManagerCall{Method: "IsRunning", Name: pattern})
	if m.IsRunningFunc == nil {
		panic("MockManager.IsRunningFunc not set")
	}
	return m.IsRunningFunc(ctx, pattern)
}

func (m *MockManager) record(call ManagerCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Reset clears all recorded calls.
func (m *MockManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockManager) GetCalls() []ManagerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ManagerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ Manager = (*DefaultManager)(nil)
	_ Manager = (*MockManager)(nil)
)
