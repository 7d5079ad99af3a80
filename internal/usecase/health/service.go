package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the aggregated health of the service.
type Status string

const (
	Healthy  Status = "ok"
	Degraded Status = "degraded"
)

// CheckResult is the outcome of one component probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report aggregates health check results keyed by component.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// DefaultTimeout bounds each probe so that /health answers even when a
// dependency hangs.
const DefaultTimeout = 3 * time.Second

type probe struct {
	name string
	run  func(context.Context) error
}

// Service probes the session store and, when configured, the completion API.
type Service struct {
	probes  []probe
	timeout time.Duration
}

// New creates a Service. completion is nil when label refinement has no key.
func New(session SessionPinger, completion CompletionChecker) *Service {
	s := &Service{
		probes:  []probe{{name: "session", run: session.Ping}},
		timeout: DefaultTimeout,
	}
	if completion != nil {
		s.probes = append(s.probes, probe{name: "completion", run: completion.HealthCheck})
	}
	return s
}

// WithTimeout overrides the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Check runs all probes concurrently. Any failure degrades the report; the
// session store is a cache, so the service keeps answering without it.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.probes))
	)

	var g errgroup.Group
	for _, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := p.run(pctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[p.name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
		}
	}
	return Report{Status: status, Checks: checks}
}
