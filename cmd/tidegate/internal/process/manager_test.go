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
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/util"
)

// =============================================================================
// DefaultManager Tests
// =============================================================================

func TestDefaultManager_Run_Success(t *testing.T) {
	pm := NewDefaultManager()

	output, err := pm.Run(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := strings.TrimSpace(string(output)); got != "hello" {
		t.Errorf("Run() output = %q, want %q", got, "hello")
	}
}

func TestDefaultManager_Run_CommandError(t *testing.T) {
	pm := NewDefaultManager()

	_, err := pm.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	if err == nil {
		t.Fatal("Run() expected error for failing command")
	}

	var cmdErr *util.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Run() error type = %T, want *util.CommandError", err)
	}
	if cmdErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", cmdErr.ExitCode)
	}
	if cmdErr.Stderr != "boom" {
		t.Errorf("Stderr = %q, want %q", cmdErr.Stderr, "boom")
	}
}

func TestDefaultManager_Run_MissingBinary(t *testing.T) {
	pm := NewDefaultManager()

	_, err := pm.Run(context.Background(), "tidegate-no-such-binary-xyz")
	if err == nil {
		t.Fatal("Run() expected error for missing binary")
	}

	var cmdErr *util.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Run() error type = %T, want *util.CommandError", err)
	}
	if cmdErr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 for unstarted process", cmdErr.ExitCode)
	}
}

func TestDefaultManager_RunInDir(t *testing.T) {
	pm := NewDefaultManager()
	dir := t.TempDir()

	output, err := pm.RunInDir(context.Background(), dir, "pwd")
	if err != nil {
		t.Fatalf("RunInDir() error = %v", err)
	}
	// macOS tempdirs resolve through /private; compare suffix.
	if got := strings.TrimSpace(string(output)); !strings.HasSuffix(got, dir) {
		t.Errorf("RunInDir() pwd = %q, want suffix %q", got, dir)
	}
}

func TestDefaultManager_RunWithInput(t *testing.T) {
	pm := NewDefaultManager()

	output, err := pm.RunWithInput(context.Background(), "cat", []byte("piped-data"))
	if err != nil {
		t.Fatalf("RunWithInput() error = %v", err)
	}
	if string(output) != "piped-data" {
		t.Errorf("RunWithInput() output = %q, want %q", output, "piped-data")
	}
}

func TestDefaultManager_RunStreaming(t *testing.T) {
	pm := NewDefaultManager()

	var buf bytes.Buffer
	err := pm.RunStreaming(context.Background(), "", &buf, "sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("RunStreaming() error = %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "out") || !strings.Contains(got, "err") {
		t.Errorf("RunStreaming() combined output = %q, want both streams", got)
	}
}

func TestDefaultManager_RunStreaming_Failure(t *testing.T) {
	pm := NewDefaultManager()

	var buf bytes.Buffer
	err := pm.RunStreaming(context.Background(), "", &buf, "sh", "-c", "exit 2")
	if err == nil {
		t.Fatal("RunStreaming() expected error")
	}

	var cmdErr *util.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("RunStreaming() error type = %T, want *util.CommandError", err)
	}
	if cmdErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", cmdErr.ExitCode)
	}
}

func TestDefaultManager_Run_ContextCancellation(t *testing.T) {
	pm := NewDefaultManager()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := pm.Run(ctx, "sleep", "10")
	if err == nil {
		t.Fatal("Run() expected error for cancelled context")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v, context cancellation not respected", elapsed)
	}
}

// =============================================================================
// MockManager Tests
// =============================================================================

func TestMockManager_RecordsCalls(t *testing.T) {
	mock := &MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return []byte("ok"), nil
		},
		RunStreamingFunc: func(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
			return nil
		},
	}

	ctx := context.Background()
	if _, err := mock.RunInDir(ctx, "/env/dev/infrastructure", "terraform", "plan"); err != nil {
		t.Fatalf("RunInDir() error = %v", err)
	}
	if err := mock.RunStreaming(ctx, "/env/dev/application", io.Discard, "terraform", "apply"); err != nil {
		t.Fatalf("RunStreaming() error = %v", err)
	}

	calls := mock.GetCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Method != "RunInDir" || calls[0].Dir != "/env/dev/infrastructure" || calls[0].Name != "terraform" {
		t.Errorf("unexpected first call: %+v", calls[0])
	}
	if calls[1].Method != "RunStreaming" || calls[1].Args[0] != "apply" {
		t.Errorf("unexpected second call: %+v", calls[1])
	}

	mock.Reset()
	if len(mock.GetCalls()) != 0 {
		t.Error("Reset() should clear recorded calls")
	}
}

func TestMockManager_PanicsOnUnsetFunc(t *testing.T) {
	mock := &MockManager{}

	defer func() {
		if recover() == nil {
			t.Error("expected panic when RunFunc is nil")
		}
	}()
	_, _ = mock.Run(context.Background(), "terraform", "version")
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestCommandLine(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		args []string
		want string
	}{
		{"no args", "terraform", nil, "terraform"},
		{"with args", "kubectl", []string{"get", "nodes"}, "kubectl get nodes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commandLine(tt.cmd, tt.args); got != tt.want {
				t.Errorf("commandLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
