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

// --- Global Command Variables ---
var (
	envName       string
	configPath    string
	confirmValue  string
	forceFlag     bool
	emergencyFlag bool
	noBackupFlag  bool
	preserveData  bool
	dryRunFlag    bool
	autoApprove   bool
	forceRecreate bool
	backupName    string
	instanceType  string
	retentionDays int
	drainTimeout  int

	rootCmd = &cobra.Command{
		Use:   "tidegate",
		Short: "A cli to manage the lifecycle of Coder workspace environments",
		Long: `Tidegate provisions, inspects, backs up, resizes, and tears down
				named developer-workspace environments (dev/staging/prod),
				driving the infrastructure provider and the workspace cluster
				behind a safety-gated state machine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// --- Lifecycle ---
	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Provision an environment: state backend, infrastructure, application",
		RunE:  runSetup, // Defined in cmd_setup.go
	}

	teardownCmd = &cobra.Command{
		Use:   "teardown",
		Short: "DANGER: Destroy an environment and everything in it",
		RunE:  runTeardown, // Defined in cmd_teardown.go
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show what is currently provisioned in an environment",
		RunE:  runStatus, // Defined in cmd_status.go
	}

	resizeCmd = &cobra.Command{
		Use:   "resize",
		Short: "Change an environment's database instance type",
		RunE:  runResize, // Defined in cmd_resize.go
	}

	// --- Cost ---
	costCmd = &cobra.Command{
		Use:   "cost",
		Short: "Show the estimated monthly cost of an environment or instance type",
		RunE:  runCost, // Defined in cmd_cost.go
	}

	// --- Backups ---
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Manage environment backup bundles",
	}
	backupCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Capture a backup bundle of the environment",
		RunE:  runBackupCreate, // Defined in cmd_backup.go
	}
	backupListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the environment's backup bundles, newest first",
		RunE:  runBackupList, // Defined in cmd_backup.go
	}
	backupPurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Delete backup bundles older than their retention window",
		RunE:  runBackupPurge, // Defined in cmd_backup.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "",
		"Target environment (dev, staging, prod)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the tidegate config file (default ~/.tidegate/tidegate.yaml)")

	// --- Lifecycle Commands ---
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false,
		"Plan every phase but apply nothing")
	setupCmd.Flags().BoolVar(&autoApprove, "auto-approve", false,
		"Skip the per-phase apply confirmations")
	setupCmd.Flags().BoolVar(&forceRecreate, "force-recreate", false,
		"Re-bootstrap the state backend descriptor even if one exists")

	rootCmd.AddCommand(teardownCmd)
	teardownCmd.Flags().StringVar(&confirmValue, "confirm", "",
		"Supply the typed environment-name confirmation non-interactively (CI)")
	teardownCmd.Flags().BoolVar(&forceFlag, "force", false,
		"Override activity/inventory blocks and skip the abort window")
	teardownCmd.Flags().BoolVar(&emergencyFlag, "emergency", false,
		"Bypass all confirmation gates. Must be requested explicitly.")
	teardownCmd.Flags().BoolVar(&noBackupFlag, "no-backup", false,
		"Skip the pre-teardown backup")
	teardownCmd.Flags().BoolVar(&preserveData, "preserve-data", false,
		"Keep the database and workspace volumes")
	teardownCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false,
		"Preview destroy plans but destroy nothing")
	teardownCmd.Flags().StringVar(&backupName, "backup-name", "",
		"Name for the pre-teardown backup bundle")
	teardownCmd.Flags().IntVar(&drainTimeout, "drain-timeout", 0,
		"Seconds to wait for workspace sessions to end (0 = environment default)")

	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(resizeCmd)
	resizeCmd.Flags().StringVar(&instanceType, "instance-type", "",
		"Target database instance type (e.g. db-gp-s)")
	resizeCmd.Flags().BoolVar(&autoApprove, "auto-approve", false,
		"Skip the resize confirmation")
	resizeCmd.Flags().BoolVar(&noBackupFlag, "no-backup", false,
		"Skip the pre-resize backup")

	rootCmd.AddCommand(costCmd)
	costCmd.Flags().StringVar(&instanceType, "instance-type", "",
		"Estimate a single database instance type instead of the environment")

	// --- Backup Commands ---
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCreateCmd.Flags().StringVar(&backupName, "backup-name", "",
		"Bundle name (default {timestamp}-{env})")
	backupCreateCmd.Flags().BoolVar(&preserveData, "preserve-data", false,
		"Skip the database dump and volume archive")
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupPurgeCmd)
	backupPurgeCmd.Flags().IntVar(&retentionDays, "retention-days", 0,
		"Override retention for this purge (0 = per-bundle retention)")
}
