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
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/tidegate/cmd/tidegate/config"
	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/process"
	"github.com/AleutianAI/tidegate/cmd/tidegate/storage"
	"github.com/AleutianAI/tidegate/pkg/logging"
)

// =============================================================================
// Toolkit Wiring
// =============================================================================

// toolkit bundles the wired component graph for one command invocation.
type toolkit struct {
	cfg       config.TidegateConfig
	env       EnvironmentContext
	orch      *LifecycleOrchestrator
	backups   BackupCoordinator
	estimator CostEstimator
	lock      process.ProcessLocker
	store     *storage.Client
	logger    *logging.Logger
}

// newToolkit loads config, resolves the environment, and wires every
// component. Callers must defer tk.close().
func newToolkit(ctx context.Context) (*toolkit, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	name, err := ParseEnvironmentName(envName)
	if err != nil {
		return nil, err
	}

	env, err := NewEnvironmentContext(&cfg, name)
	if err != nil {
		return nil, err
	}
	if drainTimeout > 0 {
		env.DrainTimeout = time.Duration(drainTimeout) * time.Second
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "tidegate",
	})

	store, err := storage.NewClient(ctx, cfg.Product, os.Getenv("TIDEGATE_CREDENTIALS_FILE"))
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("object storage client: %w", err)
	}

	pm := process.NewDefaultManager()
	provider := NewTerraformProvider(pm, os.Stdout)
	cluster := NewKubectlCluster(pm)
	prompter := selectPrompter()

	backend := NewDefaultBackendManager(store, cfg.StateRoot, os.Stdout, logger)
	inspector := NewDefaultResourceInspector(provider, cluster, logger)
	gate := NewDefaultSafetyGate(prompter, os.Stdout, logger)
	estimator := NewStaticCostEstimator()
	backups := NewDefaultBackupCoordinator(provider, cluster, store,
		filepath.Join(cfg.Backup.Dir, name.String()), os.Stdout, logger)

	orch := NewLifecycleOrchestrator(backend, inspector, provider, cluster,
		backups, gate, estimator, prompter, os.Stdout, logger)

	return &toolkit{
		cfg:       cfg,
		env:       env,
		orch:      orch,
		backups:   backups,
		estimator: estimator,
		lock:      process.NewEnvironmentLock(process.DefaultEnvironmentLockConfig(name.String())),
		store:     store,
		logger:    logger,
	}, nil
}

// acquireLock takes the per-environment host lock for mutating commands.
//
// The lock only prevents concurrent tidegate runs on this host; remote
// coordination is the state backend's job.
func (tk *toolkit) acquireLock() error {
	if err := tk.lock.Acquire(); err != nil {
		return fmt.Errorf("environment %s is busy: %w", tk.env.Name, err)
	}
	return nil
}

func (tk *toolkit) close() {
	if tk.lock.IsHeld() {
		if err := tk.lock.Release(); err != nil {
			tk.logger.Warn("failed to release environment lock", "error", err.Error())
		}
	}
	if err := tk.store.Close(); err != nil {
		tk.logger.Warn("failed to close storage client", "error", err.Error())
	}
	tk.logger.Close()
}

// loadConfig reads the config file, expanding ~ in its path fields.
func loadConfig() (config.TidegateConfig, error) {
	var cfg config.TidegateConfig
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		if err = config.Load(); err == nil {
			cfg = config.Global
		}
	}
	if err != nil {
		return config.TidegateConfig{}, err
	}

	cfg.StateRoot = expandHome(cfg.StateRoot)
	cfg.Backup.Dir = expandHome(cfg.Backup.Dir)
	cfg.Logging.Dir = expandHome(cfg.Logging.Dir)
	return cfg, nil
}

// selectPrompter picks the prompter for this invocation.
//
// Precedence: --confirm (scripted, CI) > --auto-approve > terminal
// detection. Auto-approve answers yes/no prompts only; the typed gates
// still require a terminal, --confirm, or --emergency.
func selectPrompter() UserPrompter {
	if confirmValue != "" {
		return &scriptedPrompter{value: confirmValue}
	}
	if autoApprove {
		return &AutoApprovePrompter{}
	}
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return NewInteractivePrompter()
	}
	return &NonInteractivePrompter{}
}

// scriptedPrompter replays a single pre-supplied confirmation value.
//
// Every Input returns the same value, so the environment-name gate
// passes only when --confirm matches, and the production phrase gate
// can never pass (production teardown in CI requires --emergency).
type scriptedPrompter struct {
	value string
}

func (p *scriptedPrompter) Confirm(prompt string) (bool, error) { return true, nil }

func (p *scriptedPrompter) Input(prompt string) (string, error) { return p.value, nil }

func (p *scriptedPrompter) Select(prompt string, options []string) (int, error) {
	return 0, fmt.Errorf("%w: selection prompts cannot be scripted", ErrNonInteractive)
}

func (p *scriptedPrompter) IsInteractive() bool { return false }

var _ UserPrompter = (*scriptedPrompter)(nil)

// expandHome resolves a leading ~ against the current user's home.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
