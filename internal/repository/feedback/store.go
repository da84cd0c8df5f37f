// Package feedback persists answer feedback and usage counters in Redis.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/neurostack/copilot/internal/db"
	"github.com/neurostack/copilot/internal/domain"
)

// Daily counter keys outlive their day by a grace period so that analytics
// reads around midnight do not race key expiry.
const dailyTTL = 48 * time.Hour

// recentCap bounds the stored feedback list.
const recentCap = 1000

// store is the consumer interface for feedback operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	LPush(ctx context.Context, key string, values ...string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Store implements feedback recording and usage counters on top of DB.
type Store struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates a feedback store. Keys are namespaced under prefix.
func New(s store, prefix string) *Store {
	return &Store{store: s, prefix: prefix, now: time.Now}
}

// IncrementQueries bumps the all-time and per-day query counters.
func (s *Store) IncrementQueries(ctx context.Context) error {
	if _, err := s.store.IncrBy(ctx, s.prefix+"queries:total", 1); err != nil {
		return fmt.Errorf("queries total INCRBY: %w", err)
	}

	daily := s.dailyKey(s.now().UTC())
	if _, err := s.store.IncrBy(ctx, daily, 1); err != nil {
		return fmt.Errorf("queries daily INCRBY: %w", err)
	}
	// NX so repeat increments do not reset the expiry.
	if err := s.store.Expire(ctx, daily, dailyTTL, true); err != nil {
		return fmt.Errorf("queries daily EXPIRE: %w", err)
	}
	return nil
}

// Record appends a feedback entry and bumps the verdict counter.
func (s *Store) Record(ctx context.Context, fb domain.Feedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now().UTC()
	}

	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	key := s.prefix + "feedback:entries"
	if err := s.store.LPush(ctx, key, string(data)); err != nil {
		return fmt.Errorf("feedback LPUSH: %w", err)
	}
	if err := s.store.LTrim(ctx, key, 0, recentCap-1); err != nil {
		return fmt.Errorf("feedback LTRIM: %w", err)
	}

	verdict := s.prefix + "feedback:unhelpful"
	if fb.Helpful {
		verdict = s.prefix + "feedback:helpful"
	}
	if _, err := s.store.IncrBy(ctx, verdict, 1); err != nil {
		return fmt.Errorf("feedback INCRBY: %w", err)
	}
	return nil
}

// Recent returns up to n feedback entries, newest first. Entries that fail
// to decode are skipped.
func (s *Store) Recent(ctx context.Context, n int) ([]domain.Feedback, error) {
	if n <= 0 {
		return nil, nil
	}

	items, err := s.store.LRange(ctx, s.prefix+"feedback:entries", 0, int64(n-1))
	if err != nil {
		return nil, fmt.Errorf("feedback LRANGE: %w", err)
	}

	out := make([]domain.Feedback, 0, len(items))
	for _, item := range items {
		var fb domain.Feedback
		if json.Unmarshal([]byte(item), &fb) != nil {
			continue
		}
		out = append(out, fb)
	}
	return out, nil
}

// Analytics reads the usage and feedback counters.
func (s *Store) Analytics(ctx context.Context) (domain.Analytics, error) {
	var a domain.Analytics
	var err error

	if a.QueriesTotal, err = s.counter(ctx, s.prefix+"queries:total"); err != nil {
		return domain.Analytics{}, err
	}
	if a.QueriesToday, err = s.counter(ctx, s.dailyKey(s.now().UTC())); err != nil {
		return domain.Analytics{}, err
	}
	if a.FeedbackHelpful, err = s.counter(ctx, s.prefix+"feedback:helpful"); err != nil {
		return domain.Analytics{}, err
	}
	if a.FeedbackUnhelpful, err = s.counter(ctx, s.prefix+"feedback:unhelpful"); err != nil {
		return domain.Analytics{}, err
	}
	a.FeedbackTotal = a.FeedbackHelpful + a.FeedbackUnhelpful
	return a, nil
}

// counter returns the key value, treating a missing key as zero.
func (s *Store) counter(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("counter GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter GET %s parse: %w", key, err)
	}
	return val, nil
}

func (s *Store) dailyKey(t time.Time) string {
	return s.prefix + "queries:daily:" + t.Format("2006-01-02")
}
