// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tk, err := newToolkit(ctx)
	if err != nil {
		return err
	}
	defer tk.close()

	if !dryRunFlag {
		if err := tk.acquireLock(); err != nil {
			return err
		}
	}

	estimate, err := tk.estimator.EstimateEnvironment(tk.env)
	if err == nil {
		fmt.Fprintf(os.Stdout, "Estimated monthly cost: %.2f EUR (%s)\n",
			estimate.MonthlyEUR, estimate.Description)
	}

	return tk.orch.Setup(ctx, tk.env, SetupOptions{
		DryRun:        dryRunFlag,
		AutoApprove:   autoApprove,
		ForceRecreate: forceRecreate,
	})
}
