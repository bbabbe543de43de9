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
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/process"
	"github.com/AleutianAI/tidegate/cmd/tidegate/internal/util"
)

// =============================================================================
// Interface Definition
// =============================================================================

// InfraProvider is the declarative infrastructure tool tidegate drives.
//
// # Description
//
// The provider is an opaque adapter: tidegate sequences plan, apply,
// destroy, and state queries against per-phase root directories but
// never interprets template contents. The production implementation
// shells out to terraform; nothing outside this interface assumes
// terraform specifically.
//
// # Context Handling
//
// Apply and destroy runs can take tens of minutes. All methods accept
// a context and must abandon the child process on cancellation.
type InfraProvider interface {
	// Init prepares the provider root (plugins, backend wiring).
	// Idempotent; safe to run before every operation.
	Init(ctx context.Context, dir string) error

	// Plan previews changes for the root. Streaming output goes to
	// the operator; the plan itself is not persisted.
	Plan(ctx context.Context, dir string, vars map[string]string) error

	// Apply executes changes for the root.
	Apply(ctx context.Context, dir string, vars map[string]string) error

	// PlanDestroy previews a destroy for the root.
	PlanDestroy(ctx context.Context, dir string, vars map[string]string) error

	// Destroy removes all resources tracked by the root.
	Destroy(ctx context.Context, dir string, vars map[string]string) error

	// StateList returns the tracked resource addresses.
	//
	// A root with no state yet returns (nil, nil): nothing was ever
	// provisioned, which is a confirmed-empty answer, not an error.
	// Unreadable or unreachable state returns an error; callers must
	// not conflate that with emptiness.
	StateList(ctx context.Context, dir string) ([]string, error)

	// StatePull returns the raw state document for backup capture.
	StatePull(ctx context.Context, dir string) ([]byte, error)

	// Output reads a single named output value from the root.
	Output(ctx context.Context, dir, name string) (string, error)
}

// =============================================================================
// Terraform Implementation
// =============================================================================

// TerraformProvider implements InfraProvider by shelling out to the
// terraform CLI through the process manager.
type TerraformProvider struct {
	pm     process.Manager
	output io.Writer
}

// NewTerraformProvider creates a provider streaming progress to output.
func NewTerraformProvider(pm process.Manager, output io.Writer) *TerraformProvider {
	return &TerraformProvider{pm: pm, output: output}
}

// Init runs terraform init for the root.
func (p *TerraformProvider) Init(ctx context.Context, dir string) error {
	if _, err := p.pm.RunInDir(ctx, dir, "terraform", "init", "-input=false", "-no-color"); err != nil {
		return fmt.Errorf("terraform init in %s: %w", dir, err)
	}
	return nil
}

// Plan streams a terraform plan for the root.
func (p *TerraformProvider) Plan(ctx context.Context, dir string, vars map[string]string) error {
	args := append([]string{"plan", "-input=false", "-no-color"}, varArgs(vars)...)
	if err := p.pm.RunStreaming(ctx, dir, p.output, "terraform", args...); err != nil {
		return fmt.Errorf("terraform plan in %s: %w", dir, err)
	}
	return nil
}

// Apply streams a terraform apply for the root.
//
// -auto-approve is intentional: operator approval happens at the
// tidegate gate level, before the provider is ever invoked.
func (p *TerraformProvider) Apply(ctx context.Context, dir string, vars map[string]string) error {
	args := append([]string{"apply", "-input=false", "-no-color", "-auto-approve"}, varArgs(vars)...)
	if err := p.pm.RunStreaming(ctx, dir, p.output, "terraform", args...); err != nil {
		return fmt.Errorf("%w: terraform apply in %s: %v", ErrProviderApplyFailed, dir, err)
	}
	return nil
}

// PlanDestroy streams a terraform destroy preview for the root.
func (p *TerraformProvider) PlanDestroy(ctx context.Context, dir string, vars map[string]string) error {
	args := append([]string{"plan", "-destroy", "-input=false", "-no-color"}, varArgs(vars)...)
	if err := p.pm.RunStreaming(ctx, dir, p.output, "terraform", args...); err != nil {
		return fmt.Errorf("terraform destroy plan in %s: %w", dir, err)
	}
	return nil
}

// Destroy streams a terraform destroy for the root.
func (p *TerraformProvider) Destroy(ctx context.Context, dir string, vars map[string]string) error {
	args := append([]string{"destroy", "-input=false", "-no-color", "-auto-approve"}, varArgs(vars)...)
	if err := p.pm.RunStreaming(ctx, dir, p.output, "terraform", args...); err != nil {
		return fmt.Errorf("%w: terraform destroy in %s: %v", ErrProviderDestroyFailed, dir, err)
	}
	return nil
}

// StateList lists tracked resource addresses for the root.
func (p *TerraformProvider) StateList(ctx context.Context, dir string) ([]string, error) {
	out, err := p.pm.RunInDir(ctx, dir, "terraform", "state", "list", "-no-color")
	if err != nil {
		// Never-initialized roots have no state file at all. That is a
		// confirmed-empty inventory, not a read failure.
		if isNoStateError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("terraform state list in %s: %w", dir, err)
	}

	var resources []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			resources = append(resources, line)
		}
	}
	return resources, nil
}

// StatePull returns the raw state document for the root.
func (p *TerraformProvider) StatePull(ctx context.Context, dir string) ([]byte, error) {
	out, err := p.pm.RunInDir(ctx, dir, "terraform", "state", "pull")
	if err != nil {
		return nil, fmt.Errorf("terraform state pull in %s: %w", dir, err)
	}
	return out, nil
}

// Output reads a single named output value from the root.
func (p *TerraformProvider) Output(ctx context.Context, dir, name string) (string, error) {
	out, err := p.pm.RunInDir(ctx, dir, "terraform", "output", "-raw", "-no-color", name)
	if err != nil {
		return "", fmt.Errorf("terraform output %s in %s: %w", name, dir, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// varArgs renders a vars map as -var arguments.
func varArgs(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	// Sorted so repeated invocations produce identical command lines.
	sort.Strings(keys)

	var args []string
	for _, k := range keys {
		args = append(args, "-var", fmt.Sprintf("%s=%s", k, vars[k]))
	}
	return args
}

// isNoStateError detects terraform's "no state" failure mode.
func isNoStateError(err error) bool {
	stderr := util.ExtractStderr(err)
	return strings.Contains(stderr, "No state file was found") ||
		strings.Contains(stderr, "no state file was found")
}

// =============================================================================
// Mock Implementation for Testing
// =============================================================================

// MockInfraProvider is a test double for InfraProvider.
//
// Unset function fields succeed with zero values, so tests only script
// the calls they assert on. All invocations are recorded.
type MockInfraProvider struct {
	InitFunc        func(ctx context.Context, dir string) error
	PlanFunc        func(ctx context.Context, dir string, vars map[string]string) error
	ApplyFunc       func(ctx context.Context, dir string, vars map[string]string) error
	PlanDestroyFunc func(ctx context.Context, dir string, vars map[string]string) error
	DestroyFunc     func(ctx context.Context, dir string, vars map[string]string) error
	StateListFunc   func(ctx context.Context, dir string) ([]string, error)
	StatePullFunc   func(ctx context.Context, dir string) ([]byte, error)
	OutputFunc      func(ctx context.Context, dir, name string) (string, error)

	// Calls records all method invocations for verification
	Calls []ProviderCall

	mu sync.Mutex
}

// ProviderCall records a single method invocation.
type ProviderCall struct {
	Method string
	Dir    string
	Name   string
	Vars   map[string]string
}

// Init delegates to InitFunc and records the call.
func (m *MockInfraProvider) Init(ctx context.Context, dir string) error {
	m.record(ProviderCall{Method: "Init", Dir: dir})
	if m.InitFunc == nil {
		return nil
	}
	return m.InitFunc(ctx, dir)
}

// Plan delegates to PlanFunc and records the call.
func (m *MockInfraProvider) Plan(ctx context.Context, dir string, vars map[string]string) error {
	m.record(ProviderCall{Method: "Plan", Dir: dir, Vars: vars})
	if m.PlanFunc == nil {
		return nil
	}
	return m.PlanFunc(ctx, dir, vars)
}

// Apply delegates to ApplyFunc and records the call.
func (m *MockInfraProvider) Apply(ctx context.Context, dir string, vars map[string]string) error {
	m.record(ProviderCall{Method: "Apply", Dir: dir, Vars: vars})
	if m.ApplyFunc == nil {
		return nil
	}
	return m.ApplyFunc(ctx, dir, vars)
}

// PlanDestroy delegates to PlanDestroyFunc and records the call.
func (m *MockInfraProvider) PlanDestroy(ctx context.Context, dir string, vars map[string]string) error {
	m.record(ProviderCall{Method: "PlanDestroy", Dir: dir, Vars: vars})
	if m.PlanDestroyFunc == nil {
		return nil
	}
	return m.PlanDestroyFunc(ctx, dir, vars)
}

// Destroy delegates to DestroyFunc and records the call.
func (m *MockInfraProvider) Destroy(ctx context.Context, dir string, vars map[string]string) error {
	m.record(ProviderCall{Method: "Destroy", Dir: dir, Vars: vars})
	if m.DestroyFunc == nil {
		return nil
	}
	return m.DestroyFunc(ctx, dir, vars)
}

// StateList delegates to StateListFunc and records the call.
func (m *MockInfraProvider) StateList(ctx context.Context, dir string) ([]string, error) {
	m.record(ProviderCall{Method: "StateList", Dir: dir})
	if m.StateListFunc == nil {
		return nil, nil
	}
	return m.StateListFunc(ctx, dir)
}

// StatePull delegates to StatePullFunc and records the call.
func (m *MockInfraProvider) StatePull(ctx context.Context, dir string) ([]byte, error) {
	m.record(ProviderCall{Method: "StatePull", Dir: dir})
	if m.StatePullFunc == nil {
		return []byte("{}"), nil
	}
	return m.StatePullFunc(ctx, dir)
}

// Output delegates to OutputFunc and records the call.
func (m *MockInfraProvider) Output(ctx context.Context, dir, name string) (string, error) {
	m.record(ProviderCall{Method: "Output", Dir: dir, Name: name})
	if m.OutputFunc == nil {
		return "", nil
	}
	return m.OutputFunc(ctx, dir, name)
}

func (m *MockInfraProvider) record(call ProviderCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Reset clears all recorded calls.
func (m *MockInfraProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockInfraProvider) GetCalls() []ProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ProviderCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// CallsTo returns the number of recorded calls to the named method.
func (m *MockInfraProvider) CallsTo(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Compile-time interface compliance check.
var (
	_ InfraProvider = (*TerraformProvider)(nil)
	_ InfraProvider = (*MockInfraProvider)(nil)
)
