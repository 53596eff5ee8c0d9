// Package health aggregates readiness checks for the dashboard's backing
// subsystems: the scored snapshot and, when configured, the reviewer-state
// database. Each check reports an error when its subsystem cannot serve,
// and the registry folds the results into the readiness payload.
package health

import (
	"context"
	"sync"
)

// Status is one subsystem's result in the readiness payload.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// CheckFunc checks one subsystem. A nil return means healthy; the error
// text becomes the status detail.
type CheckFunc func(ctx context.Context) error

// Registry holds the registered checks and runs them on demand.
type Registry struct {
	mu     sync.RWMutex
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check CheckFunc
}

// NewRegistry creates an empty check registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named check. Checks run in registration order.
func (r *Registry) Register(name string, check CheckFunc) {
	r.mu.Lock()
	r.checks = append(r.checks, namedCheck{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll runs every registered check and reports whether all subsystems
// are serving, plus the per-subsystem statuses.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	checks := make([]namedCheck, len(r.checks))
	copy(checks, r.checks)
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, len(checks))
	for i, nc := range checks {
		st := Status{Name: nc.name, Healthy: true}
		if err := nc.check(ctx); err != nil {
			st.Healthy = false
			st.Detail = err.Error()
			healthy = false
		}
		statuses[i] = st
	}
	return healthy, statuses
}
