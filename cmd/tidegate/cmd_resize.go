// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

func runResize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tk, err := newToolkit(ctx)
	if err != nil {
		return err
	}
	defer tk.close()

	if err := tk.acquireLock(); err != nil {
		return err
	}

	return tk.orch.Resize(ctx, tk.env, ResizeOptions{
		InstanceType: instanceType,
		AutoApprove:  autoApprove,
		NoBackup:     noBackupFlag,
	})
}
