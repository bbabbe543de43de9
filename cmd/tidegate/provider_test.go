// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/process"
	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/util"
)

func TestStateListParsesResources(t *testing.T) {
	pm := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return []byte("scaleway_k8s_cluster.main\n\nscaleway_rdb_instance.db\n"), nil
		},
	}
	p := NewTerraformProvider(pm, &bytes.Buffer{})

	resources, err := p.StateList(context.Background(), "/roots/dev/infrastructure")
	if err != nil {
		t.Fatalf("StateList: %v", err)
	}
	want := []string{"scaleway_k8s_cluster.main", "scaleway_rdb_instance.db"}
	if !reflect.DeepEqual(resources, want) {
		t.Errorf("StateList = %v, want %v", resources, want)
	}
}

func TestStateListNoStateFileIsConfirmedEmpty(t *testing.T) {
	pm := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return nil, util.NewCommandError("terraform state list", 1,
				"Error: No state file was found!", nil)
		},
	}
	p := NewTerraformProvider(pm, &bytes.Buffer{})

	resources, err := p.StateList(context.Background(), "/roots/dev/infrastructure")
	if err != nil {
		t.Fatalf("a never-initialized root must be confirmed empty, got %v", err)
	}
	if resources != nil {
		t.Errorf("resources = %v, want nil", resources)
	}
}

func TestStateListOtherFailuresPropagate(t *testing.T) {
	pm := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return nil, util.NewCommandError("terraform state list", 1,
				"Error: error loading the remote state: AccessDenied", nil)
		},
	}
	p := NewTerraformProvider(pm, &bytes.Buffer{})

	if _, err := p.StateList(context.Background(), "/roots/dev/infrastructure"); err == nil {
		t.Fatal("unreadable state must be an error, never empty")
	}
}

func TestApplyAndDestroyWrapSentinels(t *testing.T) {
	pm := &process.MockManager{
		RunStreamingFunc: func(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
			return util.NewCommandError("terraform", 1, "Error: timeout while waiting for resource", nil)
		},
	}
	p := NewTerraformProvider(pm, &bytes.Buffer{})

	if err := p.Apply(context.Background(), "/roots/dev/application", nil); !errors.Is(err, ErrProviderApplyFailed) {
		t.Fatalf("expected ErrProviderApplyFailed, got %v", err)
	}
	if err := p.Destroy(context.Background(), "/roots/dev/application", nil); !errors.Is(err, ErrProviderDestroyFailed) {
		t.Fatalf("expected ErrProviderDestroyFailed, got %v", err)
	}
}

func TestApplyPassesVariables(t *testing.T) {
	var captured []string
	pm := &process.MockManager{
		RunStreamingFunc: func(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
			captured = args
			return nil
		},
	}
	p := NewTerraformProvider(pm, &bytes.Buffer{})

	err := p.Apply(context.Background(), "/roots/dev/infrastructure", map[string]string{
		"environment": "dev",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "-auto-approve") {
		t.Errorf("apply args missing -auto-approve: %v", captured)
	}
	if !strings.Contains(joined, "-var environment=dev") {
		t.Errorf("apply args missing variable: %v", captured)
	}
}

func TestVarArgsSortedAndStable(t *testing.T) {
	args := varArgs(map[string]string{
		"zone":        "fr-par-1",
		"environment": "dev",
		"region":      "fr-par",
	})
	want := []string{
		"-var", "environment=dev",
		"-var", "region=fr-par",
		"-var", "zone=fr-par-1",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("varArgs = %v, want %v", args, want)
	}

	if got := varArgs(nil); len(got) != 0 {
		t.Errorf("varArgs(nil) = %v, want empty", got)
	}
}

func TestOutputUsesRawMode(t *testing.T) {
	var captured []string
	pm := &process.MockManager{
		RunInDirFunc: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			captured = args
			return []byte("postgres://coder@db:5432/coder\n"), nil
		},
	}
	p := NewTerraformProvider(pm, &bytes.Buffer{})

	value, err := p.Output(context.Background(), "/roots/dev/infrastructure", "database_url")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if value != "postgres://coder@db:5432/coder" {
		t.Errorf("Output = %q", value)
	}
	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "-raw") || !strings.Contains(joined, "database_url") {
		t.Errorf("output args = %v", captured)
	}
}
