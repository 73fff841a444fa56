package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mindorah/interviewd/internal/reliability"
)

// ErrUnavailable wraps a store read that kept failing after all retry
// attempts. It is distinct from "not found": a missing record silently becomes
// a fresh session, an unreachable store does not.
var ErrUnavailable = errors.New("session store unavailable")

const defaultMaxAttempts = 3

// Store keeps serialized sessions in Redis under a sliding TTL.
type Store struct {
	client      redis.UniversalClient
	keyPrefix   string
	ttl         time.Duration
	maxAttempts int
	retryHook   func()
}

func NewStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		client:      client,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		maxAttempts: defaultMaxAttempts,
	}
}

// TTL returns the configured sliding expiration window.
func (s *Store) TTL() time.Duration { return s.ttl }

// SetRetryHook registers a callback invoked once per transient read
// failure.
func (s *Store) SetRetryHook(fn func()) { s.retryHook = fn }

func (s *Store) noteRetry() {
	if s.retryHook != nil {
		s.retryHook()
	}
}

func (s *Store) key(id string) string { return s.keyPrefix + id }

// Open loads the session for id, retrying transient read failures before
// surfacing them. A missing id or missing record yields a fresh session; a
// loaded record whose identity field disagrees with its storage key is
// force-corrected and marked dirty so the repair persists.
func (s *Store) Open(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return &Session{ID: uuid.NewString()}, nil
	}

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt, 100*time.Millisecond, time.Second)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		val, err := s.client.Get(ctx, s.key(id)).Result()
		if errors.Is(err, redis.Nil) {
			// Expired or never written: keep the presented id for the
			// fresh session so the cookie stays stable.
			return &Session{ID: id}, nil
		}
		if err != nil {
			lastErr = err
			s.noteRetry()
			continue
		}

		sess := &Session{}
		if err := json.Unmarshal([]byte(val), sess); err != nil {
			lastErr = err
			s.noteRetry()
			continue
		}
		if sess.ID != id {
			sess.ID = id
			sess.dirty = true
		}
		return sess, nil
	}
	return nil, fmt.Errorf("%w: open %q after %d attempts: %v", ErrUnavailable, id, s.maxAttempts, lastErr)
}

// Save writes the session back under the sliding TTL. A cleared session is
// deleted instead; Save reports whether a record remains in the store so the
// caller can expire the identity cookie.
func (s *Store) Save(ctx context.Context, sess *Session) (stored bool, err error) {
	if sess.Empty() {
		if sess.dirty {
			if err := s.client.Del(ctx, s.key(sess.ID)).Err(); err != nil {
				return false, fmt.Errorf("delete session %q: %w", sess.ID, err)
			}
		}
		return false, nil
	}

	val, err := json.Marshal(sess)
	if err != nil {
		return false, fmt.Errorf("marshal session %q: %w", sess.ID, err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), val, s.ttl).Err(); err != nil {
		return false, fmt.Errorf("save session %q: %w", sess.ID, err)
	}
	sess.dirty = false
	return true, nil
}

// Delete removes the backing record outright.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}
	return nil
}
