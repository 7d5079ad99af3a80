package health

import "context"

// SessionPinger checks session cache availability.
type SessionPinger interface {
	Ping(ctx context.Context) error
}

// CompletionChecker checks label refinement provider availability.
type CompletionChecker interface {
	HealthCheck(ctx context.Context) error
}
