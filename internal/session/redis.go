package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore persists sessions as JSON blobs with a sliding TTL.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("carrental.internal.session"),
		now:    time.Now,
	}
}

func (s *RedisStore) GetOrCreate(ctx context.Context, customerID string) (*Session, error) {
	if customerID == "" {
		return nil, ErrEmptyCustomerID
	}
	ctx, span := s.tracer.Start(ctx, "session.get_or_create")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(customerID, s.now()), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load %s: %w", customerID, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to decode %s: %w", customerID, err)
	}
	if sess.Preferences == nil {
		sess.Preferences = map[string]string{}
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.CustomerID == "" {
		return ErrEmptyCustomerID
	}
	ctx, span := s.tracer.Start(ctx, "session.save")
	defer span.End()

	cp := sess.Clone()
	cp.UpdatedAt = s.now()
	data, err := json.Marshal(cp)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal %s: %w", sess.CustomerID, err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.CustomerID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist %s: %w", sess.CustomerID, err)
	}
	return nil
}

func sessionKey(customerID string) string {
	return fmt.Sprintf("session:%s", customerID)
}
