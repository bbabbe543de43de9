// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ProcessLocker defines the interface for per-environment instance locking.
//
// # Description
//
// ProcessLocker prevents two tidegate invocations on the same host from
// mutating the same environment simultaneously, avoiding races like:
//
//   - Terminal A: `tidegate setup --env dev` (applying infrastructure)
//   - Terminal B: `tidegate teardown --env dev` (destroying what A creates)
//
// The lock is host-local. It does not replace remote state locking and
// offers no protection across machines.
//
// # Thread Safety
//
// Implementations must be safe for use from a single goroutine. The lock
// itself provides inter-process synchronization, not intra-process.
type ProcessLocker interface {
	// Acquire attempts to get an exclusive lock.
	// Returns nil if lock acquired, error otherwise.
	Acquire() error

	// Release releases the lock if held.
	// Safe to call multiple times or if lock was never acquired.
	Release() error

	// IsHeld returns true if this instance currently holds the lock.
	IsHeld() bool

	// HolderPID returns the PID of the process holding the lock.
	// Returns 0 if no process holds the lock or if unable to determine.
	HolderPID() int
}

// EnvironmentLockConfig configures environment lock behavior.
type EnvironmentLockConfig struct {
	// LockDir is the directory for lock files.
	// Default: system temp directory
	LockDir string

	// Environment is the environment name the lock scopes to.
	// Default: "default"
	Environment string
}

// DefaultEnvironmentLockConfig returns defaults for the given environment.
//
// Uses the system temp directory so the lock file is in a writable
// location on all platforms.
func DefaultEnvironmentLockConfig(environment string) EnvironmentLockConfig {
	return EnvironmentLockConfig{
		LockDir:     os.TempDir(),
		Environment: environment,
	}
}

// EnvironmentLock implements ProcessLocker using file-based locking.
//
// # Description
//
// Uses the flock(2) system call for advisory file locking, scoped per
// environment so concurrent runs against different environments are
// allowed.
//
// # How It Works
//
//  1. Creates a lock file at {LockDir}/tidegate-{env}.lock
//  2. Attempts a non-blocking exclusive flock on the file
//  3. Writes the PID to {LockDir}/tidegate-{env}.pid for debugging
//  4. On release, removes the PID file and releases the flock
//
// # Thread Safety
//
// EnvironmentLock is NOT safe for concurrent use from multiple
// goroutines. Use from a single goroutine (typically main).
//
// # Limitations
//
//   - Advisory lock only - other processes can ignore it
//   - NFS and some network filesystems don't support flock properly
//   - If the process crashes without Release, the OS drops the flock
//     but the stale PID file remains
type EnvironmentLock struct {
	config   EnvironmentLockConfig
	lockPath string
	pidPath  string
	lockFile *os.File
	held     bool
}

// NewEnvironmentLock creates a new environment lock.
//
// Does not acquire the lock.
func NewEnvironmentLock(config EnvironmentLockConfig) *EnvironmentLock {
	if config.LockDir == "" {
		config.LockDir = os.TempDir()
	}
	if config.Environment == "" {
		config.Environment = "default"
	}

	base := "tidegate-" + config.Environment
	return &EnvironmentLock{
		config:   config,
		lockPath: filepath.Join(config.LockDir, base+".lock"),
		pidPath:  filepath.Join(config.LockDir, base+".pid"),
	}
}

// Acquire attempts to get an exclusive lock.
//
// # Description
//
// Uses a non-blocking flock. If another process holds the lock,
// returns immediately with an error containing the holder's PID when
// available.
//
// # Error Conditions
//
//   - Another tidegate run targets this environment (returns holder PID)
//   - Cannot create lock file (permission denied, disk full)
//   - Cannot acquire flock (system error)
func (p *EnvironmentLock) Acquire() error {
	if p.held {
		return nil // Already held
	}

	f, err := os.OpenFile(p.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file %s: %w", p.lockPath, err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		f.Close()

		if err == syscall.EWOULDBLOCK {
			holderPID := p.readHolderPID()
			if holderPID > 0 {
				return fmt.Errorf("another tidegate run targets environment %q (PID %d). "+
					"If this is stale, remove %s", p.config.Environment, holderPID, p.pidPath)
			}
			return fmt.Errorf("another tidegate run targets environment %q. "+
				"Check: lsof %s", p.config.Environment, p.lockPath)
		}

		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	p.lockFile = f
	p.held = true

	// PID file is informational; lock is held regardless.
	_ = p.writePID()

	return nil
}

// Release releases the lock if held.
//
// Removes the PID file and releases the flock. Safe to call multiple
// times or if the lock was never acquired.
func (p *EnvironmentLock) Release() error {
	if !p.held || p.lockFile == nil {
		return nil
	}

	os.Remove(p.pidPath)

	err := syscall.Flock(int(p.lockFile.Fd()), syscall.LOCK_UN)

	// Close also releases the lock if flock failed.
	p.lockFile.Close()
	p.lockFile = nil
	p.held = false

	// Lock file is left in place for faster subsequent acquires.

	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}

// IsHeld returns true if this instance currently holds the lock.
//
// Checks local state only - does not verify the flock is still valid.
func (p *EnvironmentLock) IsHeld() bool {
	return p.held
}

// HolderPID returns the PID of the process holding the lock.
//
// Reads the PID file; returns 0 if no PID file exists or it is
// unreadable. May return a stale PID if the holder crashed.
func (p *EnvironmentLock) HolderPID() int {
	return p.readHolderPID()
}

// writePID writes the current process PID to the PID file.
func (p *EnvironmentLock) writePID() error {
	content := fmt.Sprintf("%d\n", os.Getpid())
	return os.WriteFile(p.pidPath, []byte(content), 0644)
}

// readHolderPID reads the PID from the PID file.
func (p *EnvironmentLock) readHolderPID() int {
	data, err := os.ReadFile(p.pidPath)
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	return pid
}

// LockPath returns the path to the lock file, for error messages.
func (p *EnvironmentLock) LockPath() string {
	return p.lockPath
}

// PIDPath returns the path to the PID file, for error messages.
func (p *EnvironmentLock) PIDPath() string {
	return p.pidPath
}

// Compile-time interface satisfaction check
var _ ProcessLocker = (*EnvironmentLock)(nil)
