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
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/process"
)

// workspaceNamespace is where the workspace platform runs.
const workspaceNamespace = "coder"

// =============================================================================
// Interface Definition
// =============================================================================

// ClusterQuery is the read-and-drain surface of the live cluster.
//
// # Description
//
// The teardown needs three things from the running cluster: whether it
// can be reached at all, how many workspace sessions are live, and a
// way to drain nodes gracefully. The backup coordinator additionally
// captures manifests, database dumps, and volume definitions through
// the same adapter.
//
// # Error Semantics
//
// ActiveWorkspaces returns an error when the cluster cannot answer.
// Callers translate that into "activity unknown", never into zero.
type ClusterQuery interface {
	// Reachable reports whether the cluster API answers.
	Reachable(ctx context.Context) bool

	// ActiveWorkspaces counts running workspace sessions.
	ActiveWorkspaces(ctx context.Context) (int, error)

	// Nodes lists cluster node names.
	Nodes(ctx context.Context) ([]string, error)

	// Drain cordons and drains one node within the timeout.
	Drain(ctx context.Context, node string, timeout time.Duration) error

	// ExportManifests captures deployed object manifests as YAML.
	ExportManifests(ctx context.Context) ([]byte, error)

	// DumpDatabase captures a logical dump of the platform database.
	DumpDatabase(ctx context.Context, dsn string) ([]byte, error)

	// ArchiveVolumes captures persistent volume claim definitions.
	ArchiveVolumes(ctx context.Context) ([]byte, error)
}

// =============================================================================
// Kubectl Implementation
// =============================================================================

// KubectlCluster implements ClusterQuery by shelling out to kubectl
// (and pg_dump for database capture) through the process manager.
type KubectlCluster struct {
	pm        process.Manager
	namespace string
}

// NewKubectlCluster creates a cluster adapter for the workspace
// namespace.
func NewKubectlCluster(pm process.Manager) *KubectlCluster {
	return &KubectlCluster{pm: pm, namespace: workspaceNamespace}
}

// Reachable probes the API server's readiness endpoint.
func (c *KubectlCluster) Reachable(ctx context.Context) bool {
	_, err := c.pm.Run(ctx, "kubectl", "get", "--raw", "/readyz", "--request-timeout=5s")
	return err == nil
}

// ActiveWorkspaces counts running workspace pods.
func (c *KubectlCluster) ActiveWorkspaces(ctx context.Context) (int, error) {
	out, err := c.pm.Run(ctx, "kubectl", "get", "pods",
		"-n", c.namespace,
		"-l", "app.kubernetes.io/name=workspace",
		"--field-selector=status.phase=Running",
		"-o", "name")
	if err != nil {
		return 0, fmt.Errorf("failed to query workspace activity: %w", err)
	}
	return len(nonEmptyLines(string(out))), nil
}

// Nodes lists cluster node names.
func (c *KubectlCluster) Nodes(ctx context.Context) ([]string, error) {
	out, err := c.pm.Run(ctx, "kubectl", "get", "nodes", "-o", "name")
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return nonEmptyLines(string(out)), nil
}

// Drain cordons and drains one node within the timeout.
func (c *KubectlCluster) Drain(ctx context.Context, node string, timeout time.Duration) error {
	_, err := c.pm.Run(ctx, "kubectl", "drain", node,
		"--ignore-daemonsets",
		"--delete-emptydir-data",
		fmt.Sprintf("--timeout=%s", timeout))
	if err != nil {
		return fmt.Errorf("failed to drain node %s: %w", node, err)
	}
	return nil
}

// ExportManifests captures deployed object manifests as YAML.
//
// Secrets are deliberately excluded; backups are not a credential
// store.
func (c *KubectlCluster) ExportManifests(ctx context.Context) ([]byte, error) {
	out, err := c.pm.Run(ctx, "kubectl", "get",
		"deployments,statefulsets,services,ingresses,configmaps",
		"-n", c.namespace,
		"-o", "yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to export manifests: %w", err)
	}
	return out, nil
}

// DumpDatabase captures a logical dump via pg_dump.
func (c *KubectlCluster) DumpDatabase(ctx context.Context, dsn string) ([]byte, error) {
	out, err := c.pm.Run(ctx, "pg_dump", "--no-owner", "--format=plain", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to dump database: %w", err)
	}
	return out, nil
}

// ArchiveVolumes captures persistent volume claim definitions.
func (c *KubectlCluster) ArchiveVolumes(ctx context.Context) ([]byte, error) {
	out, err := c.pm.Run(ctx, "kubectl", "get", "pvc",
		"-n", c.namespace,
		"-o", "yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to archive volume definitions: %w", err)
	}
	return out, nil
}

// nonEmptyLines splits output into trimmed, non-empty lines.
func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// =============================================================================
// Mock Implementation for Testing
// =============================================================================

// MockClusterQuery is a test double for ClusterQuery.
//
// Unset function fields return benign zero values. All invocations
// are recorded.
type MockClusterQuery struct {
	ReachableFunc        func(ctx context.Context) bool
	ActiveWorkspacesFunc func(ctx context.Context) (int, error)
	NodesFunc            func(ctx context.Context) ([]string, error)
	DrainFunc            func(ctx context.Context, node string, timeout time.Duration) error
	ExportManifestsFunc  func(ctx context.Context) ([]byte, error)
	DumpDatabaseFunc     func(ctx context.Context, dsn string) ([]byte, error)
	ArchiveVolumesFunc   func(ctx context.Context) ([]byte, error)

	// Calls records all method invocations for verification
	Calls []ClusterCall

	mu sync.Mutex
}

// ClusterCall records a single method invocation.
type ClusterCall struct {
	Method string
	Node   string
}

// Reachable delegates to ReachableFunc and records the call.
func (m *MockClusterQuery) Reachable(ctx context.Context) bool {
	m.record(ClusterCall{Method: "Reachable"})
	if m.ReachableFunc == nil {
		return true
	}
	return m.ReachableFunc(ctx)
}

// ActiveWorkspaces delegates to ActiveWorkspacesFunc and records the call.
func (m *MockClusterQuery) ActiveWorkspaces(ctx context.Context) (int, error) {
	m.record(ClusterCall{Method: "ActiveWorkspaces"})
	if m.ActiveWorkspacesFunc == nil {
		return 0, nil
	}
	return m.ActiveWorkspacesFunc(ctx)
}

// Nodes delegates to NodesFunc and records the call.
func (m *MockClusterQuery) Nodes(ctx context.Context) ([]string, error) {
	m.record(ClusterCall{Method: "Nodes"})
	if m.NodesFunc == nil {
		return nil, nil
	}
	return m.NodesFunc(ctx)
}

// Drain delegates to DrainFunc and records the call.
func (m *MockClusterQuery) Drain(ctx context.Context, node string, timeout time.Duration) error {
	m.record(ClusterCall{Method: "Drain", Node: node})
	if m.DrainFunc == nil {
		return nil
	}
	return m.DrainFunc(ctx, node, timeout)
}

// ExportManifests delegates to ExportManifestsFunc and records the call.
func (m *MockClusterQuery) ExportManifests(ctx context.Context) ([]byte, error) {
	m.record(ClusterCall{Method: "ExportManifests"})
	if m.ExportManifestsFunc == nil {
		return []byte("items: []\n"), nil
	}
	return m.ExportManifestsFunc(ctx)
}

// DumpDatabase delegates to DumpDatabaseFunc and records the call.
func (m *MockClusterQuery) DumpDatabase(ctx context.Context, dsn string) ([]byte, error) {
	m.record(ClusterCall{Method: "DumpDatabase"})
	if m.DumpDatabaseFunc == nil {
		return []byte("-- empty dump\n"), nil
	}
	return m.DumpDatabaseFunc(ctx, dsn)
}

// ArchiveVolumes delegates to ArchiveVolumesFunc and records the call.
func (m *MockClusterQuery) ArchiveVolumes(ctx context.Context) ([]byte, error) {
	m.record(ClusterCall{Method: "ArchiveVolumes"})
	if m.ArchiveVolumesFunc == nil {
		return []byte("items: []\n"), nil
	}
	return m.ArchiveVolumesFunc(ctx)
}

func (m *MockClusterQuery) record(call ClusterCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Reset clears all recorded calls.
func (m *MockClusterQuery) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockClusterQuery) GetCalls() []ClusterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ClusterCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ ClusterQuery = (*KubectlCluster)(nil)
	_ ClusterQuery = (*MockClusterQuery)(nil)
)
