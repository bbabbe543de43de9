// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import "errors"

// =============================================================================
// Error Taxonomy
// =============================================================================

// Sentinel errors classifying lifecycle failures. Call sites wrap these
// with fmt.Errorf("%w: ...") so errors.Is works through the chain and
// the exit-code mapping stays in one place.
var (
	// ErrInvalidConfiguration indicates a malformed environment name,
	// config file, or flag combination. Nothing was touched.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDeprecatedConfiguration indicates a backend descriptor in the
	// obsolete flat format. The descriptor must be migrated by hand;
	// tidegate refuses to guess at its meaning.
	ErrDeprecatedConfiguration = errors.New("deprecated backend descriptor format")

	// ErrBackendUnreachable indicates the state backend could not be
	// probed. Absence was NOT confirmed; bootstrap must not proceed.
	ErrBackendUnreachable = errors.New("state backend unreachable")

	// ErrStateUnreadable indicates the provider state exists but could
	// not be read or parsed.
	ErrStateUnreadable = errors.New("provider state unreadable")

	// ErrConfirmationFailed indicates a typed confirmation gate
	// received the wrong token.
	ErrConfirmationFailed = errors.New("confirmation failed")

	// ErrActiveWorkspacesPresent indicates live workspace sessions (or
	// unknowable activity) blocked a teardown not running under force.
	ErrActiveWorkspacesPresent = errors.New("active workspaces present")

	// ErrProviderApplyFailed indicates a provider apply step failed.
	ErrProviderApplyFailed = errors.New("provider apply failed")

	// ErrClusterUnreachable indicates freshly applied infrastructure
	// did not answer, so the application phase must not build on it.
	ErrClusterUnreachable = errors.New("cluster unreachable")

	// ErrProviderDestroyFailed indicates a provider destroy step failed.
	ErrProviderDestroyFailed = errors.New("provider destroy failed")

	// ErrTeardownIncomplete indicates the teardown ran to completion
	// but post-destroy verification still found tracked resources.
	ErrTeardownIncomplete = errors.New("teardown completed with resources remaining")
)

// =============================================================================
// Exit Codes
// =============================================================================

// Process exit codes. CI pipelines branch on these, so the mapping is
// part of the external interface.
const (
	// ExitOK covers success and clean operator cancellation.
	ExitOK = 0

	// ExitFailure covers all operational failures.
	ExitFailure = 1

	// ExitIncompleteVerification means the teardown finished but
	// verification found leftovers needing manual review.
	ExitIncompleteVerification = 3
)

// ExitCodeForError maps an error to the process exit code.
//
// A declined confirmation is a valid outcome, not a failure: the
// operator read the prompt and said no, so the exit code is 0.
func ExitCodeForError(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCancelled):
		return ExitOK
	case errors.Is(err, ErrTeardownIncomplete):
		return ExitIncompleteVerification
	default:
		return ExitFailure
	}
}
