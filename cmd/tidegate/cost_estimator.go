package main

import (
	"fmt"
	"sort"
)

// =============================================================================
// Cost Estimator
// =============================================================================

// CostEstimator produces informational monthly cost figures.
//
// Estimates are pure lookups against a static rate table: no network
// calls, no provider queries, no billing API. The figures inform the
// operator before a confirmation gate; nothing branches on them.
type CostEstimator interface {
	// EstimateEnvironment estimates the environment's monthly cost.
	EstimateEnvironment(env EnvironmentContext) (CostEstimate, error)

	// EstimateInstance estimates one database instance type.
	EstimateInstance(instanceType string) (CostEstimate, error)

	// EstimateResizeDelta estimates the cost change of a resize.
	EstimateResizeDelta(fromType, toType string) (CostEstimate, error)

	// InstanceTypes lists the known instance types, sorted.
	InstanceTypes() []string
}

// StaticCostEstimator implements CostEstimator over fixed rate tables.
type StaticCostEstimator struct{}

// NewStaticCostEstimator creates the estimator.
func NewStaticCostEstimator() *StaticCostEstimator {
	return &StaticCostEstimator{}
}

// instanceRatesEUR maps database instance types to monthly EUR.
//
// Rates are indicative list prices, maintained by hand. They go stale;
// that is acceptable for a pre-confirmation hint.
var instanceRatesEUR = map[string]float64{
	"db-dev-s":  11.68,
	"db-dev-m":  23.36,
	"db-dev-l":  46.72,
	"db-gp-xs":  54.75,
	"db-gp-s":   109.50,
	"db-gp-m":   219.00,
	"db-gp-l":   438.00,
	"db-gp-xl":  876.00,
}

// environmentBaseEUR covers the per-environment fixed costs: cluster
// control plane, node pool, load balancer, and DNS zone.
var environmentBaseEUR = map[EnvironmentName]float64{
	EnvDev:     62.10,
	EnvStaging: 93.15,
	EnvProd:    186.30,
}

// EstimateEnvironment sums the environment base cost and its database
// instance.
func (e *StaticCostEstimator) EstimateEnvironment(env EnvironmentContext) (CostEstimate, error) {
	base, ok := environmentBaseEUR[env.Name]
	if !ok {
		return CostEstimate{}, fmt.Errorf("no rate entry for environment %q", env.Name)
	}

	total := base
	desc := fmt.Sprintf("environment %s (cluster, nodes, load balancer, DNS)", env.Name)
	if env.InstanceType != "" {
		db, err := e.EstimateInstance(env.InstanceType)
		if err != nil {
			return CostEstimate{}, err
		}
		total += db.MonthlyEUR
		desc = fmt.Sprintf("%s + database %s", desc, env.InstanceType)
	}

	return CostEstimate{MonthlyEUR: total, Description: desc}, nil
}

// EstimateInstance looks up one database instance type.
func (e *StaticCostEstimator) EstimateInstance(instanceType string) (CostEstimate, error) {
	rate, ok := instanceRatesEUR[instanceType]
	if !ok {
		return CostEstimate{}, fmt.Errorf("unknown instance type %q (known: %v)",
			instanceType, e.InstanceTypes())
	}
	return CostEstimate{
		MonthlyEUR:  rate,
		Description: fmt.Sprintf("database instance %s", instanceType),
	}, nil
}

// EstimateResizeDelta returns the monthly cost change of a resize.
//
// The delta is signed: a downsize yields a negative figure.
func (e *StaticCostEstimator) EstimateResizeDelta(fromType, toType string) (CostEstimate, error) {
	from, err := e.EstimateInstance(fromType)
	if err != nil {
		return CostEstimate{}, err
	}
	to, err := e.EstimateInstance(toType)
	if err != nil {
		return CostEstimate{}, err
	}
	return CostEstimate{
		MonthlyEUR:  to.MonthlyEUR - from.MonthlyEUR,
		Description: fmt.Sprintf("resize %s -> %s", fromType, toType),
	}, nil
}

// InstanceTypes lists the known instance types, sorted.
func (e *StaticCostEstimator) InstanceTypes() []string {
	types := make([]string, 0, len(instanceRatesEUR))
	for t := range instanceRatesEUR {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Compile-time interface compliance check.
var _ CostEstimator = (*StaticCostEstimator)(nil)
