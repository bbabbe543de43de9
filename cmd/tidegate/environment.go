// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/AleutianAI/tidegate/cmd/tidegate/config"
	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/util"
)

// =============================================================================
// Environment Names
// =============================================================================

// EnvironmentName identifies a managed environment.
//
// Only the three declared names are valid. Everything destructive in
// tidegate keys off this type, so parsing is strict: there is no
// "default" environment to fall back to.
type EnvironmentName string

const (
	// EnvDev is the development environment.
	EnvDev EnvironmentName = "dev"

	// EnvStaging is the staging environment.
	EnvStaging EnvironmentName = "staging"

	// EnvProd is the production environment. Destroying it requires
	// the additional production confirmation gate.
	EnvProd EnvironmentName = "prod"
)

// ParseEnvironmentName validates a raw environment string.
func ParseEnvironmentName(raw string) (EnvironmentName, error) {
	switch EnvironmentName(raw) {
	case EnvDev, EnvStaging, EnvProd:
		return EnvironmentName(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown environment %q (valid: dev, staging, prod)",
			ErrInvalidConfiguration, raw)
	}
}

// IsProduction reports whether destructive operations against this
// environment require the production confirmation phrase.
func (n EnvironmentName) IsProduction() bool {
	return n == EnvProd
}

// String returns the environment name.
func (n EnvironmentName) String() string {
	return string(n)
}

// =============================================================================
// Phases and Layouts
// =============================================================================

// Phase identifies a provider root within an environment.
type Phase string

const (
	// PhaseInfrastructure covers cluster, database, network, and DNS.
	PhaseInfrastructure Phase = "infrastructure"

	// PhaseApplication covers the workspace platform deployed onto the
	// infrastructure.
	PhaseApplication Phase = "application"

	// PhaseCombined is the single root of legacy layouts.
	PhaseCombined Phase = "combined"
)

// Layout is the sealed set of directory structures an environment's
// provider roots can take. Call sites switch exhaustively on the two
// concrete types; there is no generic accessor that would let a new
// layout slip through unhandled.
type Layout interface {
	// Phases returns the phases this layout provides, in apply order.
	Phases() []Phase

	// Dir returns the provider root directory for a phase.
	// Returns an error for phases the layout does not contain.
	Dir(phase Phase) (string, error)

	// sealed prevents implementations outside this package.
	sealed()
}

// TwoPhaseLayout separates infrastructure and application roots so the
// teardown can destroy the application while keeping infrastructure
// state intact.
type TwoPhaseLayout struct {
	// InfraDir is the infrastructure provider root.
	InfraDir string

	// AppDir is the application provider root.
	AppDir string
}

// Phases returns infrastructure then application.
func (l TwoPhaseLayout) Phases() []Phase {
	return []Phase{PhaseInfrastructure, PhaseApplication}
}

// Dir returns the provider root for the phase.
func (l TwoPhaseLayout) Dir(phase Phase) (string, error) {
	switch phase {
	case PhaseInfrastructure:
		return l.InfraDir, nil
	case PhaseApplication:
		return l.AppDir, nil
	default:
		return "", fmt.Errorf("two-phase layout has no %q root", phase)
	}
}

func (l TwoPhaseLayout) sealed() {}

// LegacyLayout is a single combined provider root, kept for
// environments that predate the phase split.
type LegacyLayout struct {
	// CombinedDir is the single provider root.
	CombinedDir string
}

// Phases returns the single combined phase.
func (l LegacyLayout) Phases() []Phase {
	return []Phase{PhaseCombined}
}

// Dir returns the combined root for PhaseCombined.
func (l LegacyLayout) Dir(phase Phase) (string, error) {
	if phase != PhaseCombined {
		return "", fmt.Errorf("legacy layout has no %q root", phase)
	}
	return l.CombinedDir, nil
}

func (l LegacyLayout) sealed() {}

var (
	_ Layout = TwoPhaseLayout{}
	_ Layout = LegacyLayout{}
)

// =============================================================================
// Environment Context
// =============================================================================

// EnvironmentContext carries everything an operation needs to know
// about its target environment.
//
// The context is assembled once per invocation from configuration and
// flags, then passed explicitly to every component. No component reads
// ambient process state to discover its environment; what you see in
// the parameter list is everything the operation can act on.
type EnvironmentContext struct {
	// Name is the validated environment name.
	Name EnvironmentName

	// Product names the hosted platform; part of the bucket name.
	Product string

	// Region is the provider region (e.g. fr-par).
	Region string

	// Zone is the provider zone (e.g. fr-par-1).
	Zone string

	// Domain is the base domain serving the environment.
	Domain string

	// Layout locates the provider roots.
	Layout Layout

	// InstanceType is the database instance class.
	InstanceType string

	// DrainTimeout bounds the best-effort workspace drain.
	DrainTimeout time.Duration

	// Timeouts are the validated operation timeouts.
	Timeouts util.TimeoutConfig
}

// NewEnvironmentContext builds a context from configuration.
func NewEnvironmentContext(cfg *config.TidegateConfig, name EnvironmentName) (EnvironmentContext, error) {
	envCfg, err := cfg.Environment(name.String())
	if err != nil {
		return EnvironmentContext{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	envRoot := filepath.Join(cfg.StateRoot, name.String())

	var layout Layout
	switch envCfg.Layout {
	case "legacy":
		layout = LegacyLayout{CombinedDir: envRoot}
	case "two-phase", "":
		layout = TwoPhaseLayout{
			InfraDir: filepath.Join(envRoot, "infrastructure"),
			AppDir:   filepath.Join(envRoot, "application"),
		}
	default:
		return EnvironmentContext{}, fmt.Errorf("%w: unknown layout %q for environment %s",
			ErrInvalidConfiguration, envCfg.Layout, name)
	}

	timeouts := util.NewTimeoutConfig()
	if envCfg.DrainTimeoutSeconds > 0 {
		timeouts.Drain = time.Duration(envCfg.DrainTimeoutSeconds) * time.Second
	}
	timeouts = timeouts.Validated()

	return EnvironmentContext{
		Name:         name,
		Product:      cfg.Product,
		Region:       envCfg.Region,
		Zone:         envCfg.Zone,
		Domain:       envCfg.Domain,
		Layout:       layout,
		InstanceType: envCfg.InstanceType,
		DrainTimeout: timeouts.Drain,
		Timeouts:     timeouts,
	}, nil
}

// StateBucketName returns the deterministic backend bucket name for
// this environment: terraform-state-<product>-<env>.
//
// The name is a pure function of product and environment so repeated
// bootstraps always converge on the same bucket.
func (e EnvironmentContext) StateBucketName() string {
	return fmt.Sprintf("terraform-state-%s-%s", e.Product, e.Name)
}

// =============================================================================
// Resource Snapshots
// =============================================================================

// SnapshotState classifies what the inventory inspector learned.
type SnapshotState string

const (
	// SnapshotProvisioned means tracked resources exist.
	SnapshotProvisioned SnapshotState = "provisioned"

	// SnapshotEmpty means the phase is confirmed to track nothing.
	SnapshotEmpty SnapshotState = "empty"

	// SnapshotUnknown means the inventory could not be determined.
	// Callers must not treat this as empty.
	SnapshotUnknown SnapshotState = "unknown"
)

// WorkspaceActivity reports live workspace sessions in an environment.
//
// Known is false when the cluster could not be queried; Active is only
// meaningful when Known is true.
type WorkspaceActivity struct {
	Known  bool
	Active int
}

// ResourceSnapshot is a point-in-time inventory of a phase.
//
// Snapshots are never persisted. Every decision that needs an
// inventory queries a fresh one; the provider's state is the sole
// source of truth.
type ResourceSnapshot struct {
	// Phase the snapshot covers.
	Phase Phase

	// State classifies the outcome of the inventory query.
	State SnapshotState

	// Resources are the tracked resource addresses (provisioned only).
	Resources []string

	// Reason explains an unknown state for the operator.
	Reason string

	// Workspaces reports live workspace activity, when queried.
	Workspaces WorkspaceActivity

	// TakenAt is when the snapshot was taken.
	TakenAt time.Time
}

// Count returns the number of tracked resources.
func (s ResourceSnapshot) Count() int {
	return len(s.Resources)
}

// =============================================================================
// Safety Confirmation
// =============================================================================

// SafetyConfirmation is proof that the confirmation gates passed for
// one destructive invocation. It is consumed by exactly one operation
// and never cached or persisted.
type SafetyConfirmation struct {
	// Environment the confirmation authorizes.
	Environment EnvironmentName

	// GatesPassed lists the gates traversed, in order.
	GatesPassed []string

	// Emergency is true when the gates were bypassed via the
	// emergency flag.
	Emergency bool

	// AuthorizedAt is when the final gate passed.
	AuthorizedAt time.Time
}

// =============================================================================
// Cost Estimate
// =============================================================================

// CostEstimate is a pure informational value describing the monthly
// cost of a resource configuration. It feeds operator display only;
// no control flow branches on it.
type CostEstimate struct {
	// MonthlyEUR is the estimated monthly cost in euros.
	MonthlyEUR float64

	// Description names what the estimate covers.
	Description string
}
