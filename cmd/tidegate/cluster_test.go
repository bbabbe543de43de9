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
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/process"
)

func TestActiveWorkspacesCountsRunningPods(t *testing.T) {
	pm := &process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			joined := strings.Join(args, " ")
			if !strings.Contains(joined, "status.phase=Running") {
				t.Errorf("query must filter to running pods: %v", args)
			}
			if !strings.Contains(joined, "-n coder") {
				t.Errorf("query must scope to the workspace namespace: %v", args)
			}
			return []byte("pod/ws-alice\npod/ws-bob\n\n"), nil
		},
	}
	c := NewKubectlCluster(pm)

	active, err := c.ActiveWorkspaces(context.Background())
	if err != nil {
		t.Fatalf("ActiveWorkspaces: %v", err)
	}
	if active != 2 {
		t.Errorf("active = %d, want 2", active)
	}
}

func TestActiveWorkspacesZeroOnEmptyOutput(t *testing.T) {
	pm := &process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("\n"), nil
		},
	}
	c := NewKubectlCluster(pm)

	active, err := c.ActiveWorkspaces(context.Background())
	if err != nil || active != 0 {
		t.Errorf("ActiveWorkspaces = %d, %v; want 0, nil", active, err)
	}
}

func TestReachable(t *testing.T) {
	up := NewKubectlCluster(&process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("ok"), nil
		},
	})
	if !up.Reachable(context.Background()) {
		t.Error("Reachable() = false for a responding API server")
	}

	down := NewKubectlCluster(&process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, fmt.Errorf("connection refused")
		},
	})
	if down.Reachable(context.Background()) {
		t.Error("Reachable() = true for an unreachable API server")
	}
}

func TestDrainPassesTimeout(t *testing.T) {
	var captured []string
	pm := &process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			captured = args
			return nil, nil
		},
	}
	c := NewKubectlCluster(pm)

	if err := c.Drain(context.Background(), "node/pool-a-1", 2*time.Minute); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	joined := strings.Join(captured, " ")
	for _, want := range []string{"drain", "node/pool-a-1", "--ignore-daemonsets", "--timeout=2m0s"} {
		if !strings.Contains(joined, want) {
			t.Errorf("drain args missing %q: %v", want, captured)
		}
	}
}

func TestExportManifestsExcludesSecrets(t *testing.T) {
	var captured []string
	pm := &process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			captured = args
			return []byte("kind: List\n"), nil
		},
	}
	c := NewKubectlCluster(pm)

	if _, err := c.ExportManifests(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(strings.Join(captured, " "), "secrets") {
		t.Errorf("manifests export must not include secrets: %v", captured)
	}
}

func TestDumpDatabaseUsesPgDump(t *testing.T) {
	var binary string
	var captured []string
	pm := &process.MockManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			binary = name
			captured = args
			return []byte("-- PostgreSQL dump"), nil
		},
	}
	c := NewKubectlCluster(pm)

	out, err := c.DumpDatabase(context.Background(), "postgres://coder@db/coder")
	if err != nil {
		t.Fatalf("DumpDatabase: %v", err)
	}
	if binary != "pg_dump" {
		t.Errorf("binary = %q, want pg_dump", binary)
	}
	if !strings.Contains(strings.Join(captured, " "), "postgres://coder@db/coder") {
		t.Errorf("dump args missing DSN: %v", captured)
	}
	if len(out) == 0 {
		t.Error("dump output lost")
	}
}

func TestNonEmptyLines(t *testing.T) {
	got := nonEmptyLines("  a  \n\nb\n   \nc\n")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("nonEmptyLines = %v, want %v", got, want)
	}
	if nonEmptyLines("") != nil {
		t.Error("empty input should yield nil")
	}
}
