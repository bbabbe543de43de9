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

// runCost prints cost estimates without touching any infrastructure.
//
// The estimator is pure, so this command skips the full toolkit: no
// storage client, no lock, no subprocesses.
func runCost(cmd *cobra.Command, args []string) error {
	estimator := NewStaticCostEstimator()

	if instanceType != "" {
		estimate, err := estimator.EstimateInstance(instanceType)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s: %.2f EUR/month\n", estimate.Description, estimate.MonthlyEUR)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name, err := ParseEnvironmentName(envName)
	if err != nil {
		return err
	}
	env, err := NewEnvironmentContext(&cfg, name)
	if err != nil {
		return err
	}

	estimate, err := estimator.EstimateEnvironment(env)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s: %.2f EUR/month\n", estimate.Description, estimate.MonthlyEUR)
	return nil
}
