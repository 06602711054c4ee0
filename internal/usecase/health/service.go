// Package health aggregates availability checks of the stores and model providers.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector store is down.
	Unhealthy Status = "error"
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

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	catalog    DBPinger
	embedding  ProviderChecker
	generation ProviderChecker
}

// New creates a Service for the vector store.
func New(db DBPinger) *Service {
	return &Service{db: db}
}

// WithCatalog adds the catalog source check.
func (s *Service) WithCatalog(c DBPinger) *Service {
	s.catalog = c
	return s
}

// WithEmbedding adds the embedding provider check.
func (s *Service) WithEmbedding(c ProviderChecker) *Service {
	s.embedding = c
	return s
}

// WithGeneration adds the generation provider check.
func (s *Service) WithGeneration(c ProviderChecker) *Service {
	s.generation = c
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["database"] = result(s.db.Ping(ctx))
	if s.catalog != nil {
		checks["catalog"] = result(s.catalog.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}
	if s.generation != nil {
		checks["generation"] = result(s.generation.HealthCheck(ctx))
	}

	status := Healthy
	if checks["database"] == CheckError {
		status = Unhealthy
	} else {
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
