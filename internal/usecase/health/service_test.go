package health

import (
	"context"
	"errors"
	"testing"
)

type mockCorpus struct {
	docs, dims int
}

func (m *mockCorpus) Len() int        { return m.docs }
func (m *mockCorpus) Dimensions() int { return m.dims }

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(context.Context) error { return m.err }

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		corpus CorpusInfo
		want   bool
	}{
		{"loaded corpus", &mockCorpus{docs: 10, dims: 384}, true},
		{"empty corpus", &mockCorpus{docs: 0, dims: 384}, false},
		{"no dimensions", &mockCorpus{docs: 10, dims: 0}, false},
		{"nil corpus", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.corpus, nil, nil, nil)
			if got := s.Ready(); got != tt.want {
				t.Errorf("Ready() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheck_AllHealthy(t *testing.T) {
	s := New(&mockCorpus{docs: 3, dims: 2}, &mockPinger{}, &mockChecker{}, &mockChecker{})

	report := s.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("status = %v, want %v", report.Status, Healthy)
	}
	if report.Documents != 3 {
		t.Errorf("documents = %d, want 3", report.Documents)
	}
	for name, result := range report.Checks {
		if result != CheckOK {
			t.Errorf("check %s = %v, want ok", name, result)
		}
	}
	if len(report.Checks) != 3 {
		t.Errorf("expected 3 checks, got %d", len(report.Checks))
	}
}

func TestCheck_DegradedOnBackendFailure(t *testing.T) {
	s := New(&mockCorpus{docs: 3, dims: 2},
		&mockPinger{}, &mockChecker{}, &mockChecker{err: errors.New("refused")})

	report := s.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("status = %v, want %v", report.Status, Degraded)
	}
	if report.Checks["generation"] != CheckError {
		t.Errorf("generation check = %v, want error", report.Checks["generation"])
	}
}

func TestCheck_OmitsUnconfiguredComponents(t *testing.T) {
	s := New(&mockCorpus{docs: 3, dims: 2}, nil, &mockChecker{}, nil)

	report := s.Check(context.Background())
	if _, ok := report.Checks["database"]; ok {
		t.Error("database check present without a configured store")
	}
	if _, ok := report.Checks["embedding"]; !ok {
		t.Error("embedding check missing")
	}
	if report.Status != Healthy {
		t.Errorf("status = %v, want %v", report.Status, Healthy)
	}
}
