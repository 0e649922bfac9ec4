package redis

import (
	"context"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

const DefaultKeyPrefix = "keygap:"

// SnapshotStore keeps opaque analysis snapshots in Redis under a common
// prefix. A zero TTL keeps keys forever.
type SnapshotStore struct {
	client       *Client
	logger       logging.Logger
	prefix       string
	ttl          time.Duration
	jitter       bool
	singleflight singleflight.Group
}

type StoreOption func(*SnapshotStore)

func WithPrefix(prefix string) StoreOption {
	return func(s *SnapshotStore) { s.prefix = prefix }
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *SnapshotStore) { s.ttl = ttl }
}

// WithTTLJitter spreads expirations by +/-10% of the TTL.
func WithTTLJitter(enabled bool) StoreOption {
	return func(s *SnapshotStore) { s.jitter = enabled }
}

func NewSnapshotStore(client *Client, log logging.Logger, opts ...StoreOption) (*SnapshotStore, error) {
	if client == nil {
		return nil, errors.New(errors.ErrCodeValidation, "redis client is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &SnapshotStore{
		client: client,
		logger: log,
		prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SnapshotStore) fullKey(key string) string {
	return s.prefix + key
}

func (s *SnapshotStore) expiration() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	if !s.jitter {
		return s.ttl
	}
	delta := float64(s.ttl) * 0.1 * (rand.Float64()*2 - 1)
	return s.ttl + time.Duration(delta)
}

func (s *SnapshotStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.fullKey(key), value, s.expiration()).Err(); err != nil {
		s.logger.Error("redis put failed", logging.String("key", key), logging.Err(err))
		return errors.Storage(err, "redis put failed")
	}
	return nil
}

// Get returns a NotFound error when the key is absent or expired.
// Concurrent reads of the same key share one round trip.
func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	full := s.fullKey(key)
	v, err, _ := s.singleflight.Do(full, func() (interface{}, error) {
		return s.client.Get(ctx, full).Bytes()
	})
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.NotFound("snapshot not found").WithDetail(key)
		}
		return nil, errors.Storage(err, "redis get failed")
	}
	raw := v.([]byte)
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

//Personal.AI order the ending
