// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package process

import (
	"os"
	"strings"
	"testing"
)

func TestEnvironmentLock_AcquireRelease(t *testing.T) {
	lock := NewEnvironmentLock(EnvironmentLockConfig{
		LockDir:     t.TempDir(),
		Environment: "dev",
	})

	if lock.IsHeld() {
		t.Error("new lock should not be held")
	}

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !lock.IsHeld() {
		t.Error("lock should be held after Acquire")
	}
	if got := lock.HolderPID(); got != os.Getpid() {
		t.Errorf("HolderPID() = %d, want %d", got, os.Getpid())
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if lock.IsHeld() {
		t.Error("lock should not be held after Release")
	}
}

func TestEnvironmentLock_AcquireIdempotent(t *testing.T) {
	lock := NewEnvironmentLock(EnvironmentLockConfig{
		LockDir:     t.TempDir(),
		Environment: "dev",
	})

	if err := lock.Acquire(); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer lock.Release()

	if err := lock.Acquire(); err != nil {
		t.Errorf("second Acquire() on held lock error = %v", err)
	}
}

func TestEnvironmentLock_ConflictReportsHolder(t *testing.T) {
	dir := t.TempDir()

	first := NewEnvironmentLock(EnvironmentLockConfig{LockDir: dir, Environment: "prod"})
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Release()

	second := NewEnvironmentLock(EnvironmentLockConfig{LockDir: dir, Environment: "prod"})
	err := second.Acquire()
	if err == nil {
		second.Release()
		t.Fatal("second Acquire() should fail while lock is held")
	}
	if !strings.Contains(err.Error(), "prod") {
		t.Errorf("conflict error should name the environment: %v", err)
	}
}

func TestEnvironmentLock_DifferentEnvironmentsDoNotConflict(t *testing.T) {
	dir := t.TempDir()

	devLock := NewEnvironmentLock(EnvironmentLockConfig{LockDir: dir, Environment: "dev"})
	if err := devLock.Acquire(); err != nil {
		t.Fatalf("dev Acquire() error = %v", err)
	}
	defer devLock.Release()

	stagingLock := NewEnvironmentLock(EnvironmentLockConfig{LockDir: dir, Environment: "staging"})
	if err := stagingLock.Acquire(); err != nil {
		t.Errorf("staging Acquire() should not conflict with dev: %v", err)
	}
	defer stagingLock.Release()
}

func TestEnvironmentLock_ReleaseWithoutAcquire(t *testing.T) {
	lock := NewEnvironmentLock(DefaultEnvironmentLockConfig("dev"))
	if err := lock.Release(); err != nil {
		t.Errorf("Release() without Acquire error = %v", err)
	}
}

func TestEnvironmentLock_Reacquire(t *testing.T) {
	dir := t.TempDir()
	lock := NewEnvironmentLock(EnvironmentLockConfig{LockDir: dir, Environment: "dev"})

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	// The lock file is left behind; reacquiring must still work.
	if err := lock.Acquire(); err != nil {
		t.Fatalf("re-Acquire() error = %v", err)
	}
	defer lock.Release()
}

func TestEnvironmentLock_DefaultConfig(t *testing.T) {
	lock := NewEnvironmentLock(EnvironmentLockConfig{})
	if !strings.Contains(lock.LockPath(), "tidegate-default.lock") {
		t.Errorf("LockPath() = %q, want default environment lock name", lock.LockPath())
	}
	if !strings.HasPrefix(lock.LockPath(), os.TempDir()) {
		t.Errorf("LockPath() = %q, want under temp dir", lock.LockPath())
	}
}
