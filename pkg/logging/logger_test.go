// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo}, // Unknown defaults to Info
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			got := tt.level.toSlogLevel()
			if got != tt.want {
				t.Errorf("Level.toSlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"  error  ", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Logger Construction Tests
// =============================================================================

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.slog == nil {
		t.Error("logger.slog is nil")
	}
	defer logger.Close()
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "tidegate-test",
		Quiet:   true,
	})
	defer logger.Close()

	logger.Info("backend ready", "bucket", "terraform-state-coder-dev")

	wantName := "tidegate-test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, wantName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "backend ready") {
		t.Errorf("log file missing message, got: %s", data)
	}
	if !strings.Contains(string(data), "terraform-state-coder-dev") {
		t.Errorf("log file missing attribute, got: %s", data)
	}
	if !strings.Contains(string(data), `"service":"tidegate-test"`) {
		t.Errorf("log file missing service attribute, got: %s", data)
	}
}

func TestNew_FileLogging_BadDirIgnored(t *testing.T) {
	// Pointing LogDir at a file must not break stderr logging.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	logger := New(Config{LogDir: filepath.Join(blocker, "logs"), Quiet: true})
	defer logger.Close()

	// Must not panic.
	logger.Info("still alive")
}

func TestNew_LevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "filter-test",
		Quiet:   true,
	})
	defer logger.Close()

	logger.Debug("dropped debug")
	logger.Info("dropped info")
	logger.Warn("kept warn")
	logger.Error("kept error")

	wantName := "filter-test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, wantName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "dropped debug") || strings.Contains(content, "dropped info") {
		t.Errorf("filtered levels leaked into file: %s", content)
	}
	if !strings.Contains(content, "kept warn") || !strings.Contains(content, "kept error") {
		t.Errorf("expected warn/error entries, got: %s", content)
	}
}

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		LogDir:  dir,
		Service: "with-test",
		Quiet:   true,
	})
	defer logger.Close()

	envLogger := logger.With("env", "staging")
	envLogger.Info("scoped entry")
	logger.Info("unscoped entry")

	wantName := "with-test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, wantName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), data)
	}
	if !strings.Contains(lines[0], `"env":"staging"`) {
		t.Errorf("scoped entry missing env attribute: %s", lines[0])
	}
	if strings.Contains(lines[1], `"env":"staging"`) {
		t.Errorf("unscoped entry should not carry env attribute: %s", lines[1])
	}
}

func TestLogger_Close_Idempotent(t *testing.T) {
	logger := New(Config{Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("first Close() = %v", err)
	}
}

// =============================================================================
// Exporter Tests
// =============================================================================

func TestBufferedExporter(t *testing.T) {
	exporter := NewBufferedExporter()

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     LevelInfo,
		Message:   "teardown complete",
		Service:   "tidegate",
		Attrs:     map[string]any{"env": "dev"},
	}
	if err := exporter.Export(context.Background(), entry); err != nil {
		t.Fatalf("Export() = %v", err)
	}

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "teardown complete" {
		t.Errorf("Message = %q, want %q", entries[0].Message, "teardown complete")
	}

	// Entries() returns a copy.
	entries[0].Message = "mutated"
	if exporter.Entries()[0].Message != "teardown complete" {
		t.Error("Entries() should return a copy, not the internal buffer")
	}
}

func TestWriterExporter(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewWriterExporter(&buf)

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     LevelWarn,
		Message:   "drain timed out",
		Attrs:     map[string]any{"node": "pool-a-1"},
	}
	if err := exporter.Export(context.Background(), entry); err != nil {
		t.Fatalf("Export() = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "drain timed out") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNopExporter(t *testing.T) {
	exporter := &NopExporter{}
	if err := exporter.Export(context.Background(), LogEntry{}); err != nil {
		t.Errorf("Export() = %v", err)
	}
	if err := exporter.Flush(context.Background()); err != nil {
		t.Errorf("Flush() = %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestArgsToMap(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want int
	}{
		{"empty", nil, 0},
		{"pairs", []any{"k1", "v1", "k2", 2}, 2},
		{"odd trailing key dropped", []any{"k1", "v1", "dangling"}, 1},
		{"non-string key skipped", []any{42, "v1", "k2", "v2"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsToMap(tt.args)
			if len(got) != tt.want {
				t.Errorf("argsToMap(%v) has %d keys, want %d", tt.args, len(got), tt.want)
			}
		})
	}
}
