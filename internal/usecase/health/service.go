package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks over the store and the model providers.
type Service struct {
	db        DBPinger
	upstreams map[string]UpstreamChecker
}

// New creates a Service. Upstream checkers may be nil.
func New(db DBPinger, embedding, generation UpstreamChecker) *Service {
	upstreams := make(map[string]UpstreamChecker)
	if embedding != nil {
		upstreams["embedding"] = embedding
	}
	if generation != nil {
		upstreams["generation"] = generation
	}
	return &Service{db: db, upstreams: upstreams}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	for name, upstream := range s.upstreams {
		if err := upstream.HealthCheck(ctx); err != nil {
			checks[name] = CheckError
		} else {
			checks[name] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
