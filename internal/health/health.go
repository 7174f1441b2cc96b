// Package health runs named component checks. The intake engine folds the
// report into classifier context when something is degraded; a healthy
// system contributes nothing.
package health

import (
	"context"
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

type Result struct {
	Component string
	Status    Status
	Detail    string
}

// Check probes one component. Implementations must honor ctx and return
// quickly; RunAll applies a shared timeout.
type Check struct {
	Name string
	Run  func(ctx context.Context) (Status, string)
}

type Report struct {
	Results   []Result
	CheckedAt time.Time
}

func (r Report) Healthy() bool {
	for _, result := range r.Results {
		if result.Status != StatusHealthy {
			return false
		}
	}
	return true
}

type Registry struct {
	mu      sync.RWMutex
	checks  []Check
	timeout time.Duration
}

func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Registry{timeout: timeout}
}

func (r *Registry) Register(check Check) {
	if check.Name == "" || check.Run == nil {
		return
	}
	r.mu.Lock()
	r.checks = append(r.checks, check)
	r.mu.Unlock()
}

func (r *Registry) RunAll(ctx context.Context) Report {
	r.mu.RLock()
	checks := make([]Check, len(r.checks))
	copy(checks, r.checks)
	r.mu.RUnlock()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	report := Report{CheckedAt: time.Now().UTC()}
	for _, check := range checks {
		status, detail := check.Run(runCtx)
		report.Results = append(report.Results, Result{
			Component: check.Name,
			Status:    status,
			Detail:    detail,
		})
	}
	return report
}

// PingCheck adapts an error-returning probe (database ping, index count)
// into a Check.
func PingCheck(name string, probe func(ctx context.Context) error) Check {
	return Check{
		Name: name,
		Run: func(ctx context.Context) (Status, string) {
			if err := probe(ctx); err != nil {
				return StatusDown, err.Error()
			}
			return StatusHealthy, ""
		},
	}
}
