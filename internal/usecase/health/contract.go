package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker checks a remote provider's availability.
type BackendChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusInfo reports what the loaded index artifacts contain.
type CorpusInfo interface {
	Len() int
	Dimensions() int
}
