package feedback

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/domain"
)

type mockRepo struct {
	recorded  []domain.Feedback
	analytics domain.Analytics
	err       error
}

func (m *mockRepo) Record(_ context.Context, fb domain.Feedback) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, fb)
	return nil
}

func (m *mockRepo) Analytics(_ context.Context) (domain.Analytics, error) {
	return m.analytics, m.err
}

func TestRecord(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, zap.NewNop())

	err := svc.Record(context.Background(), domain.Feedback{Query: "how do I reset?", Helpful: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(repo.recorded) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(repo.recorded))
	}
}

func TestRecord_EmptyQuery(t *testing.T) {
	svc := New(&mockRepo{}, zap.NewNop())

	err := svc.Record(context.Background(), domain.Feedback{Query: "   "})
	if !errors.Is(err, domain.ErrInvalidFeedback) {
		t.Fatalf("expected ErrInvalidFeedback, got %v", err)
	}
}

func TestRecord_StoreDisabled(t *testing.T) {
	svc := New(nil, zap.NewNop())

	err := svc.Record(context.Background(), domain.Feedback{Query: "q"})
	if !errors.Is(err, domain.ErrStoreDisabled) {
		t.Fatalf("expected ErrStoreDisabled, got %v", err)
	}
	if _, err := svc.Analytics(context.Background()); !errors.Is(err, domain.ErrStoreDisabled) {
		t.Fatalf("expected ErrStoreDisabled, got %v", err)
	}
}

func TestAnalytics(t *testing.T) {
	repo := &mockRepo{analytics: domain.Analytics{QueriesTotal: 42, FeedbackHelpful: 3, FeedbackTotal: 4}}
	svc := New(repo, zap.NewNop())

	a, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if a.QueriesTotal != 42 || a.FeedbackTotal != 4 {
		t.Errorf("unexpected analytics: %+v", a)
	}
}

func TestAnalytics_RepoError(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection refused")}
	svc := New(repo, zap.NewNop())

	if _, err := svc.Analytics(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
