package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// SessionStore keeps the session each device is signed in with.
// Key format: session:<device_id>
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Load returns nil without error when the device has no stored session.
func (s *SessionStore) Load(ctx context.Context, deviceID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save stores s. The entry never outlives the session's own expiry.
func (s *SessionStore) Save(ctx context.Context, deviceID string, sess *domain.Session) error {
	if sess == nil {
		return s.Delete(ctx, deviceID)
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ttl := s.ttl
	if !sess.ExpiresAt.IsZero() {
		if left := time.Until(sess.ExpiresAt); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		return s.Delete(ctx, deviceID)
	}
	if err := s.client.Set(ctx, s.key(deviceID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, deviceID string) error {
	if err := s.client.Del(ctx, s.key(deviceID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(deviceID string) string {
	return "session:" + deviceID
}
