package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/loginapp/pkg/errors"
)

const DefaultRedisKeyPrefix = "loginapp:logins:"

// RedisStore shares sessions across instances. Each session is one key
// holding JSON, with a TTL matching the token expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Put(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return s.Delete(ctx, session.Key)
		}
	}

	if err := s.client.Set(ctx, s.prefix+session.Key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "failed to store session")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (ActiveSession, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ActiveSession{}, false, nil
	}
	if err != nil {
		return ActiveSession{}, false, errors.Wrap(err, errors.ErrCodeUnavailable, "failed to read session")
	}

	var session ActiveSession
	if err := json.Unmarshal(data, &session); err != nil {
		return ActiveSession{}, false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "failed to delete session")
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]ActiveSession, error) {
	var sessions []ActiveSession

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		session, ok, err := s.Get(ctx, strings.TrimPrefix(iter.Val(), s.prefix))
		if err != nil {
			return nil, err
		}
		if ok {
			sessions = append(sessions, session)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnavailable, "failed to scan sessions")
	}
	return sessions, nil
}
