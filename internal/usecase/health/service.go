// Package health aggregates component checks for the health and readiness
// endpoints. Readiness depends only on the loaded index artifacts; remote
// backends and the database degrade the report without failing it.
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
	Status    Status                 `json:"status"`
	Documents int                    `json:"documents"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	corpus     CorpusInfo
	db         DBPinger
	embedding  BackendChecker
	generation BackendChecker
}

// New creates a Service. db, embedding, and generation can be nil; absent
// components are simply omitted from the report.
func New(corpus CorpusInfo, db DBPinger, embedding, generation BackendChecker) *Service {
	return &Service{corpus: corpus, db: db, embedding: embedding, generation: generation}
}

// Ready reports whether the service can answer queries at all: both index
// artifacts loaded with at least one document.
func (s *Service) Ready() bool {
	return s.corpus != nil && s.corpus.Len() > 0 && s.corpus.Dimensions() > 0
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.db != nil {
		checks["database"] = check(s.db.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = check(s.embedding.HealthCheck(ctx))
	}
	if s.generation != nil {
		checks["generation"] = check(s.generation.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	docs := 0
	if s.corpus != nil {
		docs = s.corpus.Len()
	}

	return Report{Status: status, Documents: docs, Checks: checks}
}

func check(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
