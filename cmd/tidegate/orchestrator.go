// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/util"
	"github.com/AleutianAI/tidegate/pkg/logging"
)

// =============================================================================
// Protocol States
// =============================================================================

// SetupState tracks progress through the setup protocol.
type SetupState string

const (
	SetupValidated         SetupState = "validated"
	SetupBackendReady      SetupState = "backend_ready"
	SetupInfraPlanned      SetupState = "infra_planned"
	SetupInfraApplied      SetupState = "infra_applied"
	SetupAppPlanned        SetupState = "app_planned"
	SetupAppApplied        SetupState = "app_applied"
	SetupValidatedDeployed SetupState = "validated_deployed"
)

// TeardownState tracks progress through the teardown protocol.
type TeardownState string

const (
	TeardownConfirmed       TeardownState = "confirmed"
	TeardownBackedUp        TeardownState = "backed_up"
	TeardownDrained         TeardownState = "drained"
	TeardownAppDestroyed    TeardownState = "app_destroyed"
	TeardownInfraDestroyed  TeardownState = "infra_destroyed"
	TeardownCleaned         TeardownState = "cleaned"
	TeardownValidatedAbsent TeardownState = "validated_absent"
)

// =============================================================================
// Options
// =============================================================================

// SetupOptions modifies setup behavior for one invocation.
type SetupOptions struct {
	// DryRun stops after plans; nothing is applied.
	DryRun bool

	// AutoApprove skips the per-phase apply confirmation.
	AutoApprove bool

	// ForceRecreate re-bootstraps the state backend descriptor.
	ForceRecreate bool
}

// TeardownOptions modifies teardown behavior for one invocation.
type TeardownOptions struct {
	// Force overrides activity and inventory blocks and continues
	// past application-destroy failures. The typed gates still run.
	Force bool

	// Emergency bypasses the confirmation gates entirely.
	Emergency bool

	// NoBackup skips the pre-teardown backup.
	NoBackup bool

	// PreserveData keeps the database and workspace volumes.
	PreserveData bool

	// DryRun previews destroy plans; nothing is destroyed.
	DryRun bool

	// BackupName overrides the derived backup bundle name.
	BackupName string

	// AbortWindow overrides the post-confirmation delay (tests).
	AbortWindow time.Duration
}

// ResizeOptions modifies resize behavior for one invocation.
type ResizeOptions struct {
	// InstanceType is the target database instance type.
	InstanceType string

	// AutoApprove skips the confirmation prompt.
	AutoApprove bool

	// NoBackup skips the pre-resize backup.
	NoBackup bool
}

// =============================================================================
// Orchestrator
// =============================================================================

// LifecycleOrchestrator sequences environment setup and teardown.
//
// # Description
//
// The orchestrator owns phase ordering and delegates every side effect
// to the component interfaces. Ordering invariants are structural:
// each step method is only called from the one place in the sequence
// where its preconditions hold, and the protocol state advances only
// after the step succeeds.
//
// # Failure Semantics
//
// Sequences are not atomic and are not rolled back. A failed setup or
// teardown leaves the environment in a well-defined intermediate state;
// the recovery path is to re-run the same operation, which re-inspects
// and converges, not to undo.
type LifecycleOrchestrator struct {
	backend   BackendManager
	inspector ResourceInspector
	provider  InfraProvider
	cluster   ClusterQuery
	backups   BackupCoordinator
	gate      SafetyGate
	estimator CostEstimator
	prompter  UserPrompter
	output    io.Writer
	logger    *logging.Logger
}

// NewLifecycleOrchestrator wires an orchestrator from its components.
func NewLifecycleOrchestrator(
	backend BackendManager,
	inspector ResourceInspector,
	provider InfraProvider,
	cluster ClusterQuery,
	backups BackupCoordinator,
	gate SafetyGate,
	estimator CostEstimator,
	prompter UserPrompter,
	output io.Writer,
	logger *logging.Logger,
) *LifecycleOrchestrator {
	return &LifecycleOrchestrator{
		backend:   backend,
		inspector: inspector,
		provider:  provider,
		cluster:   cluster,
		backups:   backups,
		gate:      gate,
		estimator: estimator,
		prompter:  prompter,
		output:    output,
		logger:    logger,
	}
}

// -----------------------------------------------------------------------------
// Setup
// -----------------------------------------------------------------------------

// Setup brings the environment from any state to fully deployed.
//
// Protocol: VALIDATED -> BACKEND_READY -> per-phase PLANNED/APPLIED ->
// VALIDATED_DEPLOYED. Re-running against a partially or fully deployed
// environment is safe; the provider converges each phase.
func (o *LifecycleOrchestrator) Setup(ctx context.Context, env EnvironmentContext, opts SetupOptions) error {
	state := SetupValidated
	o.logger.Info("setup starting", "environment", env.Name.String(), "state", string(state))

	if err := o.validateRoots(ctx, env); err != nil {
		return err
	}

	// --- Backend bootstrap ---------------------------------------------------
	desc, err := o.backend.EnsureBackend(ctx, env, opts.ForceRecreate)
	if err != nil {
		return err
	}
	state = SetupBackendReady
	o.logger.Info("backend ready", "bucket", desc.Bucket, "state", string(state))

	// --- Per-phase plan and apply, in layout order ---------------------------
	for _, phase := range env.Layout.Phases() {
		dir, err := env.Layout.Dir(phase)
		if err != nil {
			return err
		}

		// Idempotent re-entry: a provisioned phase is re-applied, not
		// skipped, so drifted resources converge.
		snap, err := o.inspector.Inspect(ctx, env, phase)
		if err != nil {
			return err
		}
		if snap.State == SnapshotProvisioned {
			fmt.Fprintf(o.output, "Phase %s already tracks %d resources; re-applying to converge\n",
				phase, snap.Count())
		}

		fmt.Fprintf(o.output, "\n=== Planning %s phase ===\n", phase)
		if err := o.provider.Plan(ctx, dir, o.phaseVars(env)); err != nil {
			return err
		}
		state = planState(phase)
		o.logger.Info("phase planned", "phase", string(phase), "state", string(state))

		if opts.DryRun {
			continue
		}

		if !opts.AutoApprove {
			ok, err := o.prompter.Confirm(fmt.Sprintf("Apply the %s phase to %s", phase, env.Name))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s phase apply declined", ErrCancelled, phase)
			}
		}

		fmt.Fprintf(o.output, "\n=== Applying %s phase ===\n", phase)
		if err := o.provider.Apply(ctx, dir, o.phaseVars(env)); err != nil {
			return err
		}
		state = applyState(phase)
		o.logger.Info("phase applied", "phase", string(phase), "state", string(state))

		// The application phase must never be applied against
		// infrastructure that cannot be reached.
		if phase == PhaseInfrastructure {
			if err := o.verifyInfraReachable(ctx, env, dir); err != nil {
				return err
			}
		}
	}

	if opts.DryRun {
		fmt.Fprintf(o.output, "\nDry run complete; nothing was applied.\n")
		return nil
	}

	// --- Post-deploy verification --------------------------------------------
	snapshots, err := o.inspector.InspectAll(ctx, env)
	if err != nil {
		return err
	}
	for _, snap := range snapshots {
		if snap.State != SnapshotProvisioned {
			return fmt.Errorf("%w: phase %s reports %s after apply",
				ErrProviderApplyFailed, snap.Phase, snap.State)
		}
	}
	state = SetupValidatedDeployed
	o.logger.Info("setup complete", "environment", env.Name.String(), "state", string(state))
	fmt.Fprintf(o.output, "\nEnvironment %s is deployed.\n", env.Name)
	o.printAccessSummary(ctx, env)
	return nil
}

// verifyInfraReachable confirms the newly applied infrastructure
// answers before anything builds on top of it.
func (o *LifecycleOrchestrator) verifyInfraReachable(ctx context.Context, env EnvironmentContext, dir string) error {
	fmt.Fprintf(o.output, "\nVerifying cluster connectivity...\n")
	if kubeconfig, err := o.provider.Output(ctx, dir, "kubeconfig_path"); err == nil && kubeconfig != "" {
		o.logger.Info("cluster credentials retrieved", "kubeconfig", kubeconfig)
	}
	if !o.cluster.Reachable(ctx) {
		return fmt.Errorf("%w: cluster for %s did not answer after the infrastructure apply",
			ErrClusterUnreachable, env.Name)
	}
	return nil
}

// printAccessSummary reports how to reach the deployment and, when a
// domain is configured, what DNS records it still needs.
func (o *LifecycleOrchestrator) printAccessSummary(ctx context.Context, env EnvironmentContext) {
	phases := env.Layout.Phases()
	dir, err := env.Layout.Dir(phases[len(phases)-1])
	if err != nil {
		return
	}

	if url, err := o.provider.Output(ctx, dir, "access_url"); err == nil && url != "" {
		fmt.Fprintf(o.output, "Access URL: %s\n", url)
	}

	if env.Domain == "" {
		return
	}
	ingress, err := o.provider.Output(ctx, dir, "ingress_ip")
	if err != nil || ingress == "" {
		ingress = "the load balancer address (see provider outputs)"
	}
	fmt.Fprintf(o.output, "DNS: point coder.%s at %s\n", env.Domain, ingress)
}

// validateRoots initializes every provider root before planning.
//
// Roots are independent, so initialization fans out with a bounded
// group; the limiter paces provider registry calls so parallel inits
// don't trip rate limits.
func (o *LifecycleOrchestrator) validateRoots(ctx context.Context, env EnvironmentContext) error {
	limiter := rate.NewLimiter(rate.Every(2*time.Second), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	for _, phase := range env.Layout.Phases() {
		phase := phase
		g.Go(func() error {
			dir, err := env.Layout.Dir(phase)
			if err != nil {
				return err
			}
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("%w: provider root for phase %s missing at %s",
					ErrInvalidConfiguration, phase, dir)
			}
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			return o.provider.Init(gctx, dir)
		})
	}
	return g.Wait()
}

// phaseVars builds the variable set passed to every provider call.
func (o *LifecycleOrchestrator) phaseVars(env EnvironmentContext) map[string]string {
	vars := map[string]string{
		"environment": env.Name.String(),
		"region":      env.Region,
	}
	if env.Zone != "" {
		vars["zone"] = env.Zone
	}
	if env.Domain != "" {
		vars["domain"] = env.Domain
	}
	if env.InstanceType != "" {
		vars["instance_type"] = env.InstanceType
	}
	return vars
}

func planState(phase Phase) SetupState {
	if phase == PhaseApplication {
		return SetupAppPlanned
	}
	return SetupInfraPlanned
}

func applyState(phase Phase) SetupState {
	if phase == PhaseApplication {
		return SetupAppApplied
	}
	return SetupInfraApplied
}

// -----------------------------------------------------------------------------
// Teardown
// -----------------------------------------------------------------------------

// Teardown removes the environment.
//
// Protocol: CONFIRMED -> BACKED_UP -> DRAINED -> APP_DESTROYED ->
// INFRA_DESTROYED -> CLEANED -> VALIDATED_ABSENT. The application
// phase is always destroyed before infrastructure; nothing in this
// method can reorder that.
//
// Inspection and the activity blocks run before the confirmation
// gates as a pre-flight: the operator is never prompted to destroy an
// environment that has nothing to destroy, or that the blocks would
// refuse anyway. No destructive call precedes authorization either
// way.
func (o *LifecycleOrchestrator) Teardown(ctx context.Context, env EnvironmentContext, opts TeardownOptions) error {
	// --- Pre-flight inspection ----------------------------------------------
	snapshots, err := o.inspector.InspectAll(ctx, env)
	if err != nil {
		return err
	}

	if allEmpty(snapshots) {
		fmt.Fprintf(o.output, "Environment %s has no tracked resources; nothing to tear down.\n", env.Name)
		return nil
	}

	if err := o.checkTeardownBlocks(snapshots, env, opts); err != nil {
		return err
	}

	// --- Dry run: destroy previews only -------------------------------------
	if opts.DryRun {
		for _, phase := range destroyOrder(env.Layout) {
			dir, err := env.Layout.Dir(phase)
			if err != nil {
				return err
			}
			fmt.Fprintf(o.output, "\n=== Destroy preview: %s phase ===\n", phase)
			if err := o.provider.PlanDestroy(ctx, dir, o.phaseVars(env)); err != nil {
				return err
			}
		}
		fmt.Fprintf(o.output, "\nDry run complete; nothing was destroyed.\n")
		return nil
	}

	// --- Confirmation gates --------------------------------------------------
	confirmation, err := o.gate.AuthorizeDestructiveAction(ctx, env.Name, GateOptions{
		Emergency:   opts.Emergency,
		Force:       opts.Force,
		AbortWindow: opts.AbortWindow,
	})
	if err != nil {
		return err
	}
	state := TeardownConfirmed
	o.logger.Info("teardown confirmed",
		"environment", env.Name.String(),
		"emergency", confirmation.Emergency,
		"state", string(state))

	// --- Backup --------------------------------------------------------------
	if opts.NoBackup {
		o.logger.Warn("pre-teardown backup skipped", "environment", env.Name.String())
	} else {
		// Backup failure does not stop the teardown; the operator
		// explicitly confirmed destruction and a partial bundle is
		// still better than aborting after the gates.
		if _, err := o.backups.CreateBackup(ctx, env, BackupOptions{
			Name:            opts.BackupName,
			IncludeDatabase: !opts.PreserveData,
			IncludeVolumes:  !opts.PreserveData,
			Upload:          true,
		}); err != nil {
			o.logger.Warn("pre-teardown backup failed", "error", err.Error())
			fmt.Fprintf(o.output, "WARNING: backup failed: %v\n", err)
		}
		state = TeardownBackedUp
	}

	// --- Drain ---------------------------------------------------------------
	o.drainWorkspaces(ctx, env)
	state = TeardownDrained

	// --- Destroy, application before infrastructure --------------------------
	for _, phase := range destroyOrder(env.Layout) {
		dir, err := env.Layout.Dir(phase)
		if err != nil {
			return err
		}
		fmt.Fprintf(o.output, "\n=== Destroying %s phase ===\n", phase)
		if err := o.provider.Destroy(ctx, dir, o.teardownVars(env, opts)); err != nil {
			if phase != PhaseInfrastructure && !opts.Force {
				// Stopping here keeps infrastructure (and its state)
				// intact for diagnosis; --force continues past it.
				return fmt.Errorf("%s phase: %w; infrastructure left intact (re-run with --force to continue)",
					phase, err)
			}
			o.logger.Error("destroy failed, continuing under force",
				"phase", string(phase), "error", err.Error())
			fmt.Fprintf(o.output, "WARNING: %s destroy failed, continuing: %v\n", phase, err)
		}
		if phase == PhaseInfrastructure || phase == PhaseCombined {
			state = TeardownInfraDestroyed
		} else {
			state = TeardownAppDestroyed
		}
		o.logger.Info("phase destroyed", "phase", string(phase), "state", string(state))
	}

	// --- Local cleanup -------------------------------------------------------
	o.cleanLocalArtifacts(env)
	state = TeardownCleaned

	// --- Post-destroy verification -------------------------------------------
	final, err := o.inspector.InspectAll(ctx, env)
	if err != nil {
		return fmt.Errorf("%w: post-destroy verification failed: %v", ErrTeardownIncomplete, err)
	}
	var leftovers []string
	for _, snap := range final {
		if snap.State == SnapshotProvisioned {
			leftovers = append(leftovers, fmt.Sprintf("%s (%d resources)", snap.Phase, snap.Count()))
		}
		if snap.State == SnapshotUnknown {
			leftovers = append(leftovers, fmt.Sprintf("%s (inventory unknown: %s)", snap.Phase, snap.Reason))
		}
	}
	if len(leftovers) > 0 {
		return fmt.Errorf("%w: %v", ErrTeardownIncomplete, leftovers)
	}

	state = TeardownValidatedAbsent
	o.logger.Info("teardown complete", "environment", env.Name.String(), "state", string(state))
	fmt.Fprintf(o.output, "\nEnvironment %s is fully removed.\n", env.Name)
	return nil
}

// checkTeardownBlocks enforces the pre-confirmation blocks.
func (o *LifecycleOrchestrator) checkTeardownBlocks(snapshots []ResourceSnapshot, env EnvironmentContext, opts TeardownOptions) error {
	if opts.Force || opts.Emergency {
		return nil
	}

	for _, snap := range snapshots {
		if snap.State == SnapshotUnknown {
			return fmt.Errorf("%w: phase %s inventory is unknown (%s); refusing to destroy blind (use --force to override)",
				ErrStateUnreadable, snap.Phase, snap.Reason)
		}
		if snap.Phase == PhaseApplication || snap.Phase == PhaseCombined {
			if !snap.Workspaces.Known {
				return fmt.Errorf("%w: workspace activity could not be determined (use --force to override)",
					ErrActiveWorkspacesPresent)
			}
			if snap.Workspaces.Active > 0 {
				return fmt.Errorf("%w: %d workspace sessions are active in %s (use --force to override)",
					ErrActiveWorkspacesPresent, snap.Workspaces.Active, env.Name)
			}
		}
	}
	return nil
}

// drainWorkspaces drains nodes and waits, best-effort, for sessions
// to end.
//
// Drain never blocks the teardown: node drain failures are logged and
// the activity wait gives up at the drain timeout. The operator
// already confirmed destruction; drain only makes it politer.
func (o *LifecycleOrchestrator) drainWorkspaces(ctx context.Context, env EnvironmentContext) {
	if !o.cluster.Reachable(ctx) {
		o.logger.Warn("cluster unreachable, skipping drain", "environment", env.Name.String())
		return
	}

	nodes, err := o.cluster.Nodes(ctx)
	if err != nil {
		o.logger.Warn("node listing failed, skipping drain", "error", err.Error())
		return
	}

	for _, node := range nodes {
		fmt.Fprintf(o.output, "Draining %s...\n", node)
		if err := o.cluster.Drain(ctx, node, env.DrainTimeout); err != nil {
			o.logger.Warn("node drain failed", "node", node, "error", err.Error())
		}
	}

	err = util.Poll(ctx, util.PollConfig{Interval: 5 * time.Second, Timeout: env.DrainTimeout},
		func(ctx context.Context) (bool, error) {
			active, err := o.cluster.ActiveWorkspaces(ctx)
			if err != nil {
				// The cluster is being torn down; losing it mid-drain
				// is expected, not a reason to stop.
				return true, nil
			}
			return active == 0, nil
		})
	if errors.Is(err, util.ErrPollTimeout) {
		o.logger.Warn("drain timeout reached with sessions remaining",
			"environment", env.Name.String(),
			"timeout", env.DrainTimeout.String())
		fmt.Fprintf(o.output, "Drain timeout reached; proceeding with teardown.\n")
	}
}

// teardownVars extends the phase vars with teardown modifiers.
func (o *LifecycleOrchestrator) teardownVars(env EnvironmentContext, opts TeardownOptions) map[string]string {
	vars := o.phaseVars(env)
	if opts.PreserveData {
		vars["preserve_data"] = "true"
	}
	return vars
}

// cleanLocalArtifacts removes per-root provider caches.
//
// The backend descriptor and the state bucket are kept: state history
// outlives the environment.
func (o *LifecycleOrchestrator) cleanLocalArtifacts(env EnvironmentContext) {
	for _, phase := range env.Layout.Phases() {
		dir, err := env.Layout.Dir(phase)
		if err != nil {
			continue
		}
		cache := filepath.Join(dir, ".terraform")
		if err := os.RemoveAll(cache); err != nil {
			o.logger.Warn("failed to remove provider cache", "path", cache, "error", err.Error())
		}
	}
}

// destroyOrder returns phases in reverse of apply order, so the
// application is always destroyed before its infrastructure.
func destroyOrder(layout Layout) []Phase {
	phases := layout.Phases()
	reversed := make([]Phase, 0, len(phases))
	for i := len(phases) - 1; i >= 0; i-- {
		reversed = append(reversed, phases[i])
	}
	return reversed
}

// allEmpty reports whether every snapshot is confirmed empty.
func allEmpty(snapshots []ResourceSnapshot) bool {
	for _, snap := range snapshots {
		if snap.State != SnapshotEmpty {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Resize
// -----------------------------------------------------------------------------

// Resize changes the environment's database instance type.
//
// Sequence: cost delta display, confirmation, pre-resize backup, then
// a converging apply of the infrastructure phase with the new type.
func (o *LifecycleOrchestrator) Resize(ctx context.Context, env EnvironmentContext, opts ResizeOptions) error {
	if opts.InstanceType == "" {
		return fmt.Errorf("%w: resize requires --instance-type", ErrInvalidConfiguration)
	}
	if env.InstanceType == opts.InstanceType {
		fmt.Fprintf(o.output, "Environment %s already uses %s; nothing to do.\n",
			env.Name, opts.InstanceType)
		return nil
	}

	delta, err := o.estimator.EstimateResizeDelta(env.InstanceType, opts.InstanceType)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	fmt.Fprintf(o.output, "Resize %s: %s -> %s (%+.2f EUR/month)\n",
		env.Name, env.InstanceType, opts.InstanceType, delta.MonthlyEUR)

	if !opts.AutoApprove {
		ok, err := o.prompter.Confirm(fmt.Sprintf("Resize the %s database to %s", env.Name, opts.InstanceType))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: resize declined", ErrCancelled)
		}
	}

	if !opts.NoBackup {
		if _, err := o.backups.CreateBackup(ctx, env, BackupOptions{
			Name:            fmt.Sprintf("pre-resize-%s-%s", env.Name, opts.InstanceType),
			IncludeDatabase: true,
			Upload:          true,
		}); err != nil {
			o.logger.Warn("pre-resize backup failed", "error", err.Error())
			fmt.Fprintf(o.output, "WARNING: backup failed: %v\n", err)
		}
	}

	phase := PhaseInfrastructure
	dir, err := env.Layout.Dir(phase)
	if err != nil {
		phase = PhaseCombined
		if dir, err = env.Layout.Dir(phase); err != nil {
			return err
		}
	}

	vars := o.phaseVars(env)
	vars["instance_type"] = opts.InstanceType
	if err := o.provider.Apply(ctx, dir, vars); err != nil {
		return err
	}

	// The provider returns before the instance finishes migrating;
	// wait for it to report ready, tolerating a timeout.
	err = util.Poll(ctx, util.PollConfig{Interval: 15 * time.Second, Timeout: 20 * time.Minute},
		func(ctx context.Context) (bool, error) {
			status, err := o.provider.Output(ctx, dir, "database_status")
			if err != nil {
				return false, nil // Output may lag the apply.
			}
			return status == "ready", nil
		})
	if errors.Is(err, util.ErrPollTimeout) {
		o.logger.Warn("database did not report ready before timeout",
			"environment", env.Name.String(),
			"instance_type", opts.InstanceType)
		fmt.Fprintf(o.output, "WARNING: database not ready yet; check provider console.\n")
	} else if err != nil {
		return err
	}

	o.logger.Info("resize complete",
		"environment", env.Name.String(),
		"instance_type", opts.InstanceType)
	fmt.Fprintf(o.output, "Resize of %s to %s complete.\n", env.Name, opts.InstanceType)
	return nil
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// Status prints a fresh inventory report for the environment.
func (o *LifecycleOrchestrator) Status(ctx context.Context, env EnvironmentContext) error {
	snapshots, err := o.inspector.InspectAll(ctx, env)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.output, "Environment: %s (%s)\n", env.Name, env.Region)
	fmt.Fprintf(o.output, "State bucket: %s\n", env.StateBucketName())
	for _, snap := range snapshots {
		fmt.Fprintf(o.output, "\nPhase %s: %s\n", snap.Phase, snap.State)
		switch snap.State {
		case SnapshotProvisioned:
			fmt.Fprintf(o.output, "  %d tracked resources\n", snap.Count())
			for _, r := range snap.Resources {
				fmt.Fprintf(o.output, "    %s\n", r)
			}
		case SnapshotUnknown:
			fmt.Fprintf(o.output, "  reason: %s\n", snap.Reason)
		}
		if snap.Phase == PhaseApplication || snap.Phase == PhaseCombined {
			if snap.Workspaces.Known {
				fmt.Fprintf(o.output, "  active workspaces: %d\n", snap.Workspaces.Active)
			} else {
				fmt.Fprintf(o.output, "  active workspaces: unknown\n")
			}
		}
	}
	return nil
}
