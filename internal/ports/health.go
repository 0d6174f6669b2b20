package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrDuplicateChecker rejects a second checker under a registered name.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// DefaultCheckTimeout bounds each check so one hung dependency cannot stall
// the readiness probe.
const DefaultCheckTimeout = 2 * time.Second

// HealthChecker is implemented by the storage backends and the remote client.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthRegistry collects checkers and runs them together.
type HealthRegistry interface {
	// Register adds a checker whose failure makes the widget unhealthy.
	Register(checker HealthChecker) error

	// RegisterOptional adds a checker whose failure only degrades it. The
	// remote is optional since the widget keeps working offline.
	RegisterOptional(checker HealthChecker) error

	CheckAll(ctx context.Context) *HealthResult
}

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is the aggregate served by /-/ready.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Critical bool          `json:"critical"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

type entry struct {
	checker  HealthChecker
	critical bool
}

// DefaultHealthRegistry runs its checkers concurrently, each under its own
// timeout.
type DefaultHealthRegistry struct {
	mu      sync.RWMutex
	entries []entry
	names   map[string]struct{}
	timeout time.Duration
}

// NewHealthRegistry uses DefaultCheckTimeout.
func NewHealthRegistry() *DefaultHealthRegistry {
	return NewHealthRegistryWithTimeout(DefaultCheckTimeout)
}

// NewHealthRegistryWithTimeout sets the per-check timeout; zero disables it.
func NewHealthRegistryWithTimeout(timeout time.Duration) *DefaultHealthRegistry {
	return &DefaultHealthRegistry{names: make(map[string]struct{}), timeout: timeout}
}

func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	return r.add(entry{checker: checker, critical: true})
}

func (r *DefaultHealthRegistry) RegisterOptional(checker HealthChecker) error {
	return r.add(entry{checker: checker})
}

func (r *DefaultHealthRegistry) add(e entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.checker.Name()
	if _, taken := r.names[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
	}

	r.names[name] = struct{}{}
	r.entries = append(r.entries, e)

	return nil
}

// CheckAll is unhealthy when a critical check fails, degraded when only
// optional ones do.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	entries := append([]entry(nil), r.entries...)
	r.mu.RUnlock()

	results := make([]*CheckResult, len(entries))

	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			results[i] = r.run(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	out := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(entries)),
		Timestamp: time.Now(),
	}

	for i, e := range entries {
		res := results[i]
		out.Checks[e.checker.Name()] = res

		switch {
		case res.Status == HealthStatusHealthy:
		case res.Critical:
			out.Status = HealthStatusUnhealthy
		case out.Status == HealthStatusHealthy:
			out.Status = HealthStatusDegraded
		}
	}

	return out
}

func (r *DefaultHealthRegistry) run(ctx context.Context, e entry) *CheckResult {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	err := e.checker.Check(ctx)

	res := &CheckResult{Status: HealthStatusHealthy, Critical: e.critical, Duration: time.Since(start)}
	if err != nil {
		res.Status = HealthStatusUnhealthy
		res.Message = err.Error()
	}

	return res
}
