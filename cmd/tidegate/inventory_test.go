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
	"testing"
)

func TestInspectProvisioned(t *testing.T) {
	provider := &MockInfraProvider{
		StateListFunc: func(ctx context.Context, dir string) ([]string, error) {
			return []string{"scaleway_k8s_cluster.main", "scaleway_rdb_instance.db"}, nil
		},
	}
	inspector := NewDefaultResourceInspector(provider, &MockClusterQuery{}, testLogger())

	snap, err := inspector.Inspect(context.Background(), testEnv(t, EnvDev), PhaseInfrastructure)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if snap.State != SnapshotProvisioned {
		t.Errorf("State = %v, want provisioned", snap.State)
	}
	if snap.Count() != 2 {
		t.Errorf("Count() = %d, want 2", snap.Count())
	}
}

func TestInspectConfirmedEmpty(t *testing.T) {
	provider := &MockInfraProvider{
		StateListFunc: func(ctx context.Context, dir string) ([]string, error) {
			return nil, nil
		},
	}
	inspector := NewDefaultResourceInspector(provider, &MockClusterQuery{}, testLogger())

	snap, err := inspector.Inspect(context.Background(), testEnv(t, EnvDev), PhaseInfrastructure)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if snap.State != SnapshotEmpty {
		t.Errorf("State = %v, want empty", snap.State)
	}
}

func TestInspectUnreadableStateIsUnknownNotEmpty(t *testing.T) {
	provider := &MockInfraProvider{
		StateListFunc: func(ctx context.Context, dir string) ([]string, error) {
			return nil, fmt.Errorf("backend bucket unauthorized")
		},
	}
	inspector := NewDefaultResourceInspector(provider, &MockClusterQuery{}, testLogger())

	snap, err := inspector.Inspect(context.Background(), testEnv(t, EnvDev), PhaseInfrastructure)
	if err != nil {
		t.Fatalf("unknown inventory must not be an Inspect error: %v", err)
	}
	if snap.State != SnapshotUnknown {
		t.Errorf("State = %v, want unknown", snap.State)
	}
	if snap.Reason == "" {
		t.Error("unknown snapshots must carry the reason")
	}
}

func TestInspectWorkspaceActivityOnlyOnApplicationPhase(t *testing.T) {
	cluster := &MockClusterQuery{
		ActiveWorkspacesFunc: func(ctx context.Context) (int, error) { return 4, nil },
	}
	inspector := NewDefaultResourceInspector(&MockInfraProvider{}, cluster, testLogger())
	env := testEnv(t, EnvDev)

	infra, err := inspector.Inspect(context.Background(), env, PhaseInfrastructure)
	if err != nil {
		t.Fatal(err)
	}
	if infra.Workspaces.Known {
		t.Error("infrastructure phase must not report workspace activity")
	}

	app, err := inspector.Inspect(context.Background(), env, PhaseApplication)
	if err != nil {
		t.Fatal(err)
	}
	if !app.Workspaces.Known || app.Workspaces.Active != 4 {
		t.Errorf("application workspaces = %+v, want Known=true Active=4", app.Workspaces)
	}
}

func TestInspectUnreachableClusterIsUnknownActivity(t *testing.T) {
	cluster := &MockClusterQuery{
		ReachableFunc: func(ctx context.Context) bool { return false },
	}
	inspector := NewDefaultResourceInspector(&MockInfraProvider{}, cluster, testLogger())

	snap, err := inspector.Inspect(context.Background(), testEnv(t, EnvDev), PhaseApplication)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Workspaces.Known {
		t.Error("unreachable cluster must report unknown activity, not zero")
	}
}

func TestInspectAllFollowsLayoutOrder(t *testing.T) {
	inspector := NewDefaultResourceInspector(&MockInfraProvider{}, &MockClusterQuery{}, testLogger())

	snaps, err := inspector.InspectAll(context.Background(), testEnv(t, EnvDev))
	if err != nil {
		t.Fatalf("InspectAll: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	if snaps[0].Phase != PhaseInfrastructure || snaps[1].Phase != PhaseApplication {
		t.Errorf("phases out of order: %v, %v", snaps[0].Phase, snaps[1].Phase)
	}
}
