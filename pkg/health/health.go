// Package health runs liveness and readiness checks and serves them over HTTP.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

// Check is a single named probe. A nil error means healthy.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a plain function to Check.
type CheckFunc struct {
	name string
	fn   func(context.Context) error
}

// NewCheckFunc creates a new CheckFunc with the given name and function.
func NewCheckFunc(name string, fn func(context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (c *CheckFunc) Name() string { return c.name }

func (c *CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// CheckResult is the outcome of one check execution.
type CheckResult struct {
	Name     string
	Healthy  bool
	Critical bool
	Error    string
	Latency  time.Duration
}

// HealthStatus aggregates check results. Degraded is set when only
// non-critical checks are failing.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
	Checks   []CheckResult
}

type registeredCheck struct {
	check    Check
	critical bool
}

// HealthChecker manages liveness and readiness probes.
type HealthChecker struct {
	livenessChecks   []registeredCheck
	readinessChecks  []registeredCheck
	timeout          time.Duration
	failureThreshold int
	logger           logger.Logger

	mu           sync.Mutex
	failureCount map[string]int
}

// Option is a functional option for configuring HealthChecker.
type Option func(*HealthChecker)

// WithTimeout sets the per check timeout. Default is 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(h *HealthChecker) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the logger for health check operations.
func WithLogger(l logger.Logger) Option {
	return func(h *HealthChecker) {
		h.logger = l
	}
}

// WithFailureThreshold sets how many consecutive failures flip a check to unhealthy.
// Default is 3.
func WithFailureThreshold(threshold int) Option {
	return func(h *HealthChecker) {
		if threshold > 0 {
			h.failureThreshold = threshold
		}
	}
}

// New creates a new HealthChecker with the given options.
func New(opts ...Option) *HealthChecker {
	h := &HealthChecker{
		timeout:          5 * time.Second,
		failureThreshold: 3,
		failureCount:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.NewNopLogger()
	}
	return h
}

// AddLivenessCheck adds a check deciding whether the process should be restarted.
func (h *HealthChecker) AddLivenessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks = append(h.livenessChecks, registeredCheck{check: check, critical: true})
}

// AddReadinessCheck adds a check gating whether traffic should be routed here.
func (h *HealthChecker) AddReadinessCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, registeredCheck{check: check, critical: true})
}

// AddDegradedCheck adds a readiness check that is reported but never fails readiness.
// The completion fallback is one: when it is down users still get canned replies.
func (h *HealthChecker) AddDegradedCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, registeredCheck{check: check, critical: false})
}

// CheckLiveness executes all liveness checks.
func (h *HealthChecker) CheckLiveness(ctx context.Context) (*HealthStatus, error) {
	h.mu.Lock()
	checks := append([]registeredCheck(nil), h.livenessChecks...)
	h.mu.Unlock()
	return h.executeChecks(ctx, checks)
}

// CheckReadiness executes all readiness checks.
func (h *HealthChecker) CheckReadiness(ctx context.Context) (*HealthStatus, error) {
	h.mu.Lock()
	checks := append([]registeredCheck(nil), h.readinessChecks...)
	h.mu.Unlock()
	return h.executeChecks(ctx, checks)
}

func (h *HealthChecker) executeChecks(ctx context.Context, checks []registeredCheck) (*HealthStatus, error) {
	status := &HealthStatus{Healthy: true, Checks: make([]CheckResult, len(checks))}
	if len(checks) == 0 {
		return status, nil
	}

	var wg sync.WaitGroup
	for i, rc := range checks {
		wg.Add(1)
		go func(idx int, rc registeredCheck) {
			defer wg.Done()
			status.Checks[idx] = h.executeCheck(ctx, rc)
		}(i, rc)
	}
	wg.Wait()

	var failed []string
	for _, result := range status.Checks {
		if result.Healthy {
			continue
		}
		if result.Critical {
			status.Healthy = false
			failed = append(failed, result.Name)
		} else {
			status.Degraded = true
		}
	}

	if !status.Healthy {
		sort.Strings(failed)
		return status, fmt.Errorf("health checks failed: %v", failed)
	}
	return status, nil
}

// executeCheck runs one check with a timeout. A check only reports unhealthy
// after failureThreshold consecutive failures.
func (h *HealthChecker) executeCheck(parentCtx context.Context, rc registeredCheck) CheckResult {
	ctx, cancel := context.WithTimeout(parentCtx, h.timeout)
	defer cancel()

	name := rc.check.Name()
	start := time.Now()
	err := rc.check.Check(ctx)
	latency := time.Since(start)

	result := CheckResult{Name: name, Critical: rc.critical, Latency: latency, Healthy: true}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err == nil {
		h.failureCount[name] = 0
		h.logger.Debug("Health check passed",
			logger.StringField("check", name),
			logger.DurationField("latency", latency),
		)
		return result
	}

	h.failureCount[name]++
	failures := h.failureCount[name]
	if failures < h.failureThreshold {
		h.logger.Debug("Health check failed but below threshold",
			logger.StringField("check", name),
			logger.ErrorField(err),
			logger.IntField("failures", failures),
			logger.IntField("threshold", h.failureThreshold),
		)
		return result
	}

	result.Healthy = false
	result.Error = err.Error()
	h.logger.Warn("Health check failed",
		logger.StringField("check", name),
		logger.ErrorField(err),
		logger.IntField("failures", failures),
		logger.BoolField("critical", rc.critical),
		logger.DurationField("latency", latency),
	)
	return result
}
