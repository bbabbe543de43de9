// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"time"

	"github.com/AleutianAI/tidegate/pkg/logging"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ResourceInspector queries what currently exists in an environment.
//
// # Description
//
// The inspector is the sole source of truth about provisioned
// resources. It never caches: every call queries the provider state
// (and the live cluster for workspace activity) fresh. Snapshots are
// values; nothing persists them.
//
// # The Three Outcomes
//
// A snapshot's State is one of provisioned, empty, or unknown. The
// distinction between empty and unknown is load-bearing: "the state
// backend says nothing exists" and "the state backend didn't answer"
// lead to opposite decisions everywhere the inspector is consulted.
// Inspect returns unknown as a valid snapshot, not an error; the
// caller owns the decision of what unknowable inventory means for its
// operation.
type ResourceInspector interface {
	// Inspect returns a fresh snapshot of one phase.
	Inspect(ctx context.Context, env EnvironmentContext, phase Phase) (ResourceSnapshot, error)

	// InspectAll snapshots every phase of the environment's layout,
	// in layout order.
	InspectAll(ctx context.Context, env EnvironmentContext) ([]ResourceSnapshot, error)
}

// =============================================================================
// Implementation
// =============================================================================

// DefaultResourceInspector implements ResourceInspector over the
// provider adapter and the live cluster.
type DefaultResourceInspector struct {
	provider InfraProvider
	cluster  ClusterQuery
	logger   *logging.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewDefaultResourceInspector creates an inspector.
func NewDefaultResourceInspector(provider InfraProvider, cluster ClusterQuery, logger *logging.Logger) *DefaultResourceInspector {
	return &DefaultResourceInspector{
		provider: provider,
		cluster:  cluster,
		logger:   logger,
		now:      time.Now,
	}
}

// Inspect returns a fresh snapshot of one phase.
func (i *DefaultResourceInspector) Inspect(ctx context.Context, env EnvironmentContext, phase Phase) (ResourceSnapshot, error) {
	dir, err := env.Layout.Dir(phase)
	if err != nil {
		return ResourceSnapshot{}, err
	}

	snapshot := ResourceSnapshot{
		Phase:   phase,
		TakenAt: i.now(),
	}

	resources, err := i.provider.StateList(ctx, dir)
	switch {
	case err != nil:
		// Unreadable state is a valid answer, not a failure of the
		// inspection itself. Callers must not treat it as empty.
		snapshot.State = SnapshotUnknown
		snapshot.Reason = err.Error()
		i.logger.Warn("inventory unknown",
			"environment", env.Name.String(),
			"phase", string(phase),
			"reason", err.Error())
	case len(resources) == 0:
		snapshot.State = SnapshotEmpty
	default:
		snapshot.State = SnapshotProvisioned
		snapshot.Resources = resources
	}

	// Workspace activity matters only where workspaces run.
	if phase == PhaseApplication || phase == PhaseCombined {
		snapshot.Workspaces = i.queryWorkspaces(ctx, env)
	}

	return snapshot, nil
}

// InspectAll snapshots every phase in layout order.
func (i *DefaultResourceInspector) InspectAll(ctx context.Context, env EnvironmentContext) ([]ResourceSnapshot, error) {
	var snapshots []ResourceSnapshot
	for _, phase := range env.Layout.Phases() {
		snap, err := i.Inspect(ctx, env, phase)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// queryWorkspaces asks the live cluster for session activity.
//
// An unreachable cluster yields Known=false. Zero and unknowable are
// different answers; a teardown that can't tell must not pretend the
// environment is idle.
func (i *DefaultResourceInspector) queryWorkspaces(ctx context.Context, env EnvironmentContext) WorkspaceActivity {
	if !i.cluster.Reachable(ctx) {
		return WorkspaceActivity{Known: false}
	}

	active, err := i.cluster.ActiveWorkspaces(ctx)
	if err != nil {
		i.logger.Warn("workspace activity query failed",
			"environment", env.Name.String(),
			"error", err.Error())
		return WorkspaceActivity{Known: false}
	}

	return WorkspaceActivity{Known: true, Active: active}
}

// Compile-time interface compliance check.
var _ ResourceInspector = (*DefaultResourceInspector)(nil)
