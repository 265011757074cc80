package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "convolens:schedule:"
	pendingMarker = "__pending__"
)

// ErrInProgress is returned by Reserve while another request holds the key.
var ErrInProgress = errors.New("idempotency key is already being processed")

// IdempotencyStore remembers scheduling outcomes by client-supplied key so
// a retried request replays the first result instead of booking twice.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewIdempotencyStore wraps a redis client. ttl bounds how long keys live.
func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// NewRedisClient connects to redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Reserve claims key. It returns reserved=true when the caller now owns the
// key, or the stored result when a previous request already completed.
// ErrInProgress means the key is held by a request that has not finished.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (cached []byte, reserved bool, err error) {
	k := keyPrefix + key
	ok, err := s.rdb.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reserving idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	val, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or released between SETNX and GET.
		return nil, false, ErrInProgress
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading idempotency key: %w", err)
	}
	if val == pendingMarker {
		return nil, false, ErrInProgress
	}
	return []byte(val), false, nil
}

// Complete stores the result for a reserved key.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, result []byte) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, result, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing idempotency result: %w", err)
	}
	return nil
}

// Release drops a reservation after a failed attempt so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}
