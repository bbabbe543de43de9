// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
No-Op (Null Object) implementations for the main lifecycle interfaces.

These implementations satisfy interface contracts without performing any
actual work. Use them as safe defaults when optional dependencies are not
provided, preventing nil pointer panics while maintaining type safety.

# Design Rationale

In Go, a nil pointer to a struct can satisfy an interface check, but calling
methods on it causes a panic. By providing No-Op implementations, we can:
  - Prevent nil pointer panics in production
  - Simplify testing by not requiring mock setup for unused dependencies
  - Make optional dependencies explicit in the type system

The safety gate deliberately has no No-Op: an implementation that silently
authorizes destruction is not a safe default for anything.

# Thread Safety

All No-Op implementations are safe for concurrent use (they do nothing).
*/
package main

import (
	"context"
	"time"

	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/process"
)

// =============================================================================
// NoOpInfraProvider
// =============================================================================

// NoOpInfraProvider is a safe default that does nothing.
//
// Every operation succeeds without touching any infrastructure. StateList
// reports confirmed-empty state.
type NoOpInfraProvider struct{}

// Init does nothing and returns nil.
func (n *NoOpInfraProvider) Init(ctx context.Context, dir string) error { return nil }

// Plan does nothing and returns nil.
func (n *NoOpInfraProvider) Plan(ctx context.Context, dir string, vars map[string]string) error {
	return nil
}

// Apply does nothing and returns nil.
func (n *NoOpInfraProvider) Apply(ctx context.Context, dir string, vars map[string]string) error {
	return nil
}

// PlanDestroy does nothing and returns nil.
func (n *NoOpInfraProvider) PlanDestroy(ctx context.Context, dir string, vars map[string]string) error {
	return nil
}

// Destroy does nothing and returns nil.
func (n *NoOpInfraProvider) Destroy(ctx context.Context, dir string, vars map[string]string) error {
	return nil
}

// StateList returns confirmed-empty state.
func (n *NoOpInfraProvider) StateList(ctx context.Context, dir string) ([]string, error) {
	return nil, nil
}

// StatePull returns an empty state document.
func (n *NoOpInfraProvider) StatePull(ctx context.Context, dir string) ([]byte, error) {
	return []byte("{}"), nil
}

// Output returns the empty string.
func (n *NoOpInfraProvider) Output(ctx context.Context, dir, name string) (string, error) {
	return "", nil
}

// =============================================================================
// NoOpClusterQuery
// =============================================================================

// NoOpClusterQuery is a safe default that reports an idle, reachable
// cluster.
type NoOpClusterQuery struct{}

// Reachable returns true.
func (n *NoOpClusterQuery) Reachable(ctx context.Context) bool { return true }

// ActiveWorkspaces returns 0, nil.
func (n *NoOpClusterQuery) ActiveWorkspaces(ctx context.Context) (int, error) { return 0, nil }

// Nodes returns nil, nil.
func (n *NoOpClusterQuery) Nodes(ctx context.Context) ([]string, error) { return nil, nil }

// Drain does nothing and returns nil.
func (n *NoOpClusterQuery) Drain(ctx context.Context, node string, timeout time.Duration) error {
	return nil
}

// ExportManifests returns empty bytes.
func (n *NoOpClusterQuery) ExportManifests(ctx context.Context) ([]byte, error) {
	return []byte{}, nil
}

// DumpDatabase returns empty bytes.
func (n *NoOpClusterQuery) DumpDatabase(ctx context.Context, dsn string) ([]byte, error) {
	return []byte{}, nil
}

// ArchiveVolumes returns empty bytes.
func (n *NoOpClusterQuery) ArchiveVolumes(ctx context.Context) ([]byte, error) {
	return []byte{}, nil
}

// =============================================================================
// NoOpBackupCoordinator
// =============================================================================

// NoOpBackupCoordinator is a safe default that does nothing.
//
// CreateBackup returns an empty manifest; ListBackups reports none.
type NoOpBackupCoordinator struct{}

// CreateBackup returns an empty manifest without capturing anything.
func (n *NoOpBackupCoordinator) CreateBackup(ctx context.Context, env EnvironmentContext, opts BackupOptions) (BackupManifest, error) {
	return BackupManifest{Environment: env.Name.String(), CreatedAt: time.Now()}, nil
}

// ListBackups returns nil, nil.
func (n *NoOpBackupCoordinator) ListBackups() ([]BackupManifest, error) {
	return nil, nil
}

// PurgeExpired does nothing and returns 0, nil.
func (n *NoOpBackupCoordinator) PurgeExpired(ctx context.Context, retentionDays int) (int, error) {
	return 0, nil
}

// =============================================================================
// NoOpProcessLocker
// =============================================================================

// NoOpProcessLocker is a safe default that always grants the lock.
type NoOpProcessLocker struct{}

// Acquire does nothing and returns nil.
func (n *NoOpProcessLocker) Acquire() error { return nil }

// Release does nothing and returns nil.
func (n *NoOpProcessLocker) Release() error { return nil }

// IsHeld returns false.
func (n *NoOpProcessLocker) IsHeld() bool { return false }

// HolderPID returns 0.
func (n *NoOpProcessLocker) HolderPID() int { return 0 }

// =============================================================================
// Compile-time interface satisfaction checks
// =============================================================================

var (
	_ InfraProvider         = (*NoOpInfraProvider)(nil)
	_ ClusterQuery          = (*NoOpClusterQuery)(nil)
	_ BackupCoordinator     = (*NoOpBackupCoordinator)(nil)
	_ process.ProcessLocker = (*NoOpProcessLocker)(nil)
)
