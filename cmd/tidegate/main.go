// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	err := rootCmd.Execute()
	if err == nil {
		os.Exit(ExitOK)
	}

	// A declined confirmation or an abort during the abort window is a
	// clean cancellation, not a failure.
	if errors.Is(err, ErrCancelled) {
		fmt.Fprintf(os.Stderr, "Cancelled: %v\n", err)
		os.Exit(ExitOK)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitCodeForError(err))
}
