package health

import "context"

// DBPinger checks document store connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// UpstreamChecker verifies an external model provider.
type UpstreamChecker interface {
	HealthCheck(ctx context.Context) error
}
