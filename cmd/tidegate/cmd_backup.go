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

func runBackupCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tk, err := newToolkit(ctx)
	if err != nil {
		return err
	}
	defer tk.close()

	manifest, err := tk.backups.CreateBackup(ctx, tk.env, BackupOptions{
		Name:             backupName,
		IncludeDatabase:  !preserveData,
		IncludeVolumes:   !preserveData,
		IncludeTemplates: true,
		RetentionDays:    tk.cfg.Backup.RetentionDays,
		Upload:           tk.cfg.Backup.Upload,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Backup %s captured (%d components, %d bytes)\n",
		manifest.Name, len(manifest.Components), manifest.TotalSizeBytes)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	tk, err := newToolkit(cmd.Context())
	if err != nil {
		return err
	}
	defer tk.close()

	manifests, err := tk.backups.ListBackups()
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		fmt.Fprintf(os.Stdout, "No backups for environment %s\n", tk.env.Name)
		return nil
	}

	for _, m := range manifests {
		captured := 0
		for _, c := range m.Components {
			if c.Captured {
				captured++
			}
		}
		fmt.Fprintf(os.Stdout, "%s  %s  %d/%d components  %d bytes  retention %dd\n",
			m.Name, m.CreatedAt.Format("2006-01-02 15:04:05"),
			captured, len(m.Components), m.TotalSizeBytes, m.RetentionDays)
	}
	return nil
}

func runBackupPurge(cmd *cobra.Command, args []string) error {
	tk, err := newToolkit(cmd.Context())
	if err != nil {
		return err
	}
	defer tk.close()

	purged, err := tk.backups.PurgeExpired(cmd.Context(), retentionDays)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Purged %d expired backup bundle(s)\n", purged)
	return nil
}
