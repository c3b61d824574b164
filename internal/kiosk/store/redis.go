package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kiosk/internal/kiosk"
	"kiosk/pkg/platform/sentinel"
)

const sessionKeyPrefix = "kiosk:session:"

// RedisStore shares sessions between kiosk service instances. Execute uses
// WATCH so two instances mutating one session cannot lose an update.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, ttl: kiosk.DefaultSessionTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, session *kiosk.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*kiosk.Session, error) {
	return s.load(ctx, s.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c getter, id string) (*kiosk.Session, error) {
	data, err := c.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session kiosk.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Execute returns an error wrapping both sentinel.ErrConflict and
// redis.TxFailedErr when the key changed between read and write.
func (s *RedisStore) Execute(ctx context.Context, id string, mutate func(*kiosk.Session) error) (*kiosk.Session, error) {
	key := sessionKey(id)
	var result *kiosk.Session

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		session, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(session); err != nil {
			return err
		}
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = session
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("session %s: %w: %w", id, sentinel.ErrConflict, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

var _ kiosk.Store = (*RedisStore)(nil)
