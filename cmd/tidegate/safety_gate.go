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
	"io"
	"time"

	"github.com/AleutianAI/tidegate/pkg/logging"
)

// =============================================================================
// Constants
// =============================================================================

// ProdConfirmationPhrase must be typed exactly to destroy production.
// The phrase is fixed; it is not configurable, localized, or matched
// case-insensitively.
const ProdConfirmationPhrase = "DELETE PRODUCTION"

// DefaultAbortWindow is how long a confirmed destructive action waits
// before executing, giving the operator a last chance to abort.
const DefaultAbortWindow = 300 * time.Second

// =============================================================================
// Gate State Machine
// =============================================================================

// GateState tracks progress through the confirmation sequence.
//
// States only advance in declared order. There is no transition that
// skips a gate short of the emergency bypass, which is its own
// explicit entry point rather than a shortcut through the machine.
type GateState string

const (
	// GateStart is the initial state.
	GateStart GateState = "start"

	// GateNameConfirmed means the environment name was typed correctly.
	GateNameConfirmed GateState = "name_confirmed"

	// GateProdConfirmed means the production phrase was typed
	// correctly. Only reachable for the production environment.
	GateProdConfirmed GateState = "prod_confirmed"

	// GateFinalConfirmed means the final yes/no was answered yes.
	GateFinalConfirmed GateState = "final_confirmed"

	// GateAuthorized means the abort window elapsed (or was skipped)
	// and the action may proceed.
	GateAuthorized GateState = "authorized"
)

// GateOptions modifies confirmation behavior for one invocation.
type GateOptions struct {
	// Emergency bypasses every gate. Must be set explicitly by its
	// own flag; no other option implies it.
	Emergency bool

	// Force skips the abort window but not the typed gates.
	Force bool

	// AbortWindow overrides the post-confirmation delay.
	// Zero means DefaultAbortWindow.
	AbortWindow time.Duration
}

// =============================================================================
// Interface Definition
// =============================================================================

// SafetyGate authorizes destructive actions.
//
// # Description
//
// Implements the typed-confirmation protocol: environment name gate,
// production phrase gate (prod only), final confirmation, then an
// abort window. Each authorization is fresh; confirmations are never
// cached across invocations.
//
// # Error Semantics
//
//   - Wrong typed token: ErrConfirmationFailed (exit 1)
//   - Declined final confirmation or abort during the window:
//     ErrCancelled (exit 0 - a clean no, not a failure)
//   - No terminal for a typed gate: ErrNonInteractive
type SafetyGate interface {
	// AuthorizeDestructiveAction runs the confirmation sequence for
	// the environment and returns proof of authorization.
	AuthorizeDestructiveAction(ctx context.Context, env EnvironmentName, opts GateOptions) (SafetyConfirmation, error)
}

// =============================================================================
// Implementation
// =============================================================================

// DefaultSafetyGate implements SafetyGate over a UserPrompter.
type DefaultSafetyGate struct {
	prompter UserPrompter
	output   io.Writer
	logger   *logging.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewDefaultSafetyGate creates a gate writing status to output.
func NewDefaultSafetyGate(prompter UserPrompter, output io.Writer, logger *logging.Logger) *DefaultSafetyGate {
	return &DefaultSafetyGate{
		prompter: prompter,
		output:   output,
		logger:   logger,
		now:      time.Now,
	}
}

// AuthorizeDestructiveAction runs the confirmation sequence.
func (g *DefaultSafetyGate) AuthorizeDestructiveAction(ctx context.Context, env EnvironmentName, opts GateOptions) (SafetyConfirmation, error) {
	state := GateStart
	var gatesPassed []string

	if opts.Emergency {
		// The bypass is logged at Warn so it is visible in every log
		// destination, not just the terminal.
		g.logger.Warn("emergency bypass: destructive action authorized without confirmation gates",
			"environment", env.String())
		fmt.Fprintf(g.output, "!! EMERGENCY MODE: all confirmation gates bypassed for %s\n", env)
		return SafetyConfirmation{
			Environment:  env,
			GatesPassed:  []string{"emergency_bypass"},
			Emergency:    true,
			AuthorizedAt: g.now(),
		}, nil
	}

	// --- Gate 1: typed environment name -------------------------------------
	fmt.Fprintf(g.output, "You are about to run a DESTRUCTIVE operation against %q.\n", env)
	typed, err := g.prompter.Input(fmt.Sprintf("Type the environment name (%s) to continue", env))
	if err != nil {
		return SafetyConfirmation{}, err
	}
	if typed != env.String() {
		return SafetyConfirmation{}, fmt.Errorf("%w: expected environment name %q, got %q",
			ErrConfirmationFailed, env.String(), typed)
	}
	state = GateNameConfirmed
	gatesPassed = append(gatesPassed, string(state))

	// --- Gate 2: production phrase (prod only) ------------------------------
	if env.IsProduction() {
		fmt.Fprintf(g.output, "\n*** This is the PRODUCTION environment. ***\n")
		phrase, err := g.prompter.Input(fmt.Sprintf("Type %q to continue", ProdConfirmationPhrase))
		if err != nil {
			return SafetyConfirmation{}, err
		}
		if phrase != ProdConfirmationPhrase {
			return SafetyConfirmation{}, fmt.Errorf("%w: production phrase mismatch",
				ErrConfirmationFailed)
		}
		state = GateProdConfirmed
		gatesPassed = append(gatesPassed, string(state))
	}

	// --- Gate 3: final confirmation -----------------------------------------
	ok, err := g.prompter.Confirm(fmt.Sprintf("Final confirmation: destroy %s", env))
	if err != nil {
		return SafetyConfirmation{}, err
	}
	if !ok {
		// Declining here is the designed escape hatch.
		return SafetyConfirmation{}, fmt.Errorf("%w: final confirmation declined", ErrCancelled)
	}
	state = GateFinalConfirmed
	gatesPassed = append(gatesPassed, string(state))

	// --- Abort window -------------------------------------------------------
	if !opts.Force {
		window := opts.AbortWindow
		if window <= 0 {
			window = DefaultAbortWindow
		}
		if err := g.waitAbortWindow(ctx, env, window); err != nil {
			return SafetyConfirmation{}, err
		}
	} else {
		g.logger.Info("abort window skipped", "environment", env.String(), "reason", "force")
	}

	state = GateAuthorized
	gatesPassed = append(gatesPassed, string(state))

	g.logger.Info("destructive action authorized",
		"environment", env.String(),
		"gates", len(gatesPassed))

	return SafetyConfirmation{
		Environment:  env,
		GatesPassed:  gatesPassed,
		Emergency:    false,
		AuthorizedAt: g.now(),
	}, nil
}

// waitAbortWindow blocks for the window, aborting on ctx cancellation.
//
// Cancellation maps to ErrCancelled: an interrupt during the window is
// the operator using it as intended.
func (g *DefaultSafetyGate) waitAbortWindow(ctx context.Context, env EnvironmentName, window time.Duration) error {
	fmt.Fprintf(g.output, "\nProceeding against %s in %s. Press Ctrl+C to abort.\n",
		env, window.Round(time.Second))

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		fmt.Fprintf(g.output, "Aborted during the abort window. Nothing was changed.\n")
		return fmt.Errorf("%w: aborted during abort window", ErrCancelled)
	case <-timer.C:
		return nil
	}
}

// Compile-time interface compliance check.
var _ SafetyGate = (*DefaultSafetyGate)(nil)
