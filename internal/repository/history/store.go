// Package history keeps a bounded, expiring per-user record of completed
// exchanges. Lists are capped with LTRIM so a chatty user cannot grow
// storage without bound.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neurostack/copilot/internal/domain"
)

// store is the consumer interface for history operations (ISP).
type store interface {
	LPush(ctx context.Context, key string, values ...string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store implements capped per-user chat history on top of DB.
type Store struct {
	store  store
	prefix string
	max    int
	ttl    time.Duration
	now    func() time.Time
}

// New creates a history store. Each user's list holds at most max entries
// and expires ttl after the last append.
func New(s store, prefix string, max int, ttl time.Duration) *Store {
	return &Store{store: s, prefix: prefix, max: max, ttl: ttl, now: time.Now}
}

// Append records one exchange for the user, trimming the list to the cap
// and refreshing the expiry.
func (s *Store) Append(ctx context.Context, user, query, answer string) error {
	if user == "" {
		return nil
	}

	msg := domain.ChatMessage{Query: query, Answer: answer, CreatedAt: s.now().UTC()}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	key := s.key(user)
	if err := s.store.LPush(ctx, key, string(data)); err != nil {
		return fmt.Errorf("history LPUSH: %w", err)
	}
	if err := s.store.LTrim(ctx, key, 0, int64(s.max)-1); err != nil {
		return fmt.Errorf("history LTRIM: %w", err)
	}
	// Refresh on every append so active conversations never expire mid-use.
	if err := s.store.Expire(ctx, key, s.ttl, false); err != nil {
		return fmt.Errorf("history EXPIRE: %w", err)
	}
	return nil
}

// Recent returns up to n exchanges for the user in chronological order
// (oldest first). Entries that fail to decode are skipped.
func (s *Store) Recent(ctx context.Context, user string, n int) ([]domain.ChatMessage, error) {
	if user == "" || n <= 0 {
		return nil, nil
	}

	items, err := s.store.LRange(ctx, s.key(user), 0, int64(n-1))
	if err != nil {
		return nil, fmt.Errorf("history LRANGE: %w", err)
	}

	out := make([]domain.ChatMessage, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		var msg domain.ChatMessage
		if json.Unmarshal([]byte(items[i]), &msg) != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *Store) key(user string) string {
	return s.prefix + "history:" + user
}
