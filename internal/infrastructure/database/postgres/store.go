package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// querier is the subset of *pgxpool.Pool and pgx.Tx used by the store.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	upsertSnapshotSQL = `
		INSERT INTO analysis_snapshots (key, payload, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at,
		    expires_at = EXCLUDED.expires_at`

	selectSnapshotSQL = `
		SELECT payload FROM analysis_snapshots
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`

	purgeSnapshotsSQL = `DELETE FROM analysis_snapshots WHERE expires_at IS NOT NULL AND expires_at <= $1`
)

// SnapshotStore keeps analysis snapshots in the analysis_snapshots table.
type SnapshotStore struct {
	db     querier
	logger logging.Logger
	ttl    time.Duration
	now    func() time.Time
}

type StoreOption func(*SnapshotStore)

// WithTTL sets expires_at on every write. Expired rows are invisible to Get
// and removed by PurgeExpired.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *SnapshotStore) { s.ttl = ttl }
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *SnapshotStore) { s.now = now }
}

func NewSnapshotStore(db querier, log logging.Logger, opts ...StoreOption) (*SnapshotStore, error) {
	if db == nil {
		return nil, errors.New(errors.ErrCodeValidation, "postgres pool is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &SnapshotStore{db: db, logger: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put inserts or replaces the snapshot at key.
func (s *SnapshotStore) Put(ctx context.Context, key string, value []byte) error {
	now := s.now().UTC()
	var expires *time.Time
	if s.ttl > 0 {
		t := now.Add(s.ttl)
		expires = &t
	}
	if _, err := s.db.Exec(ctx, upsertSnapshotSQL, key, value, now, expires); err != nil {
		s.logger.Error("snapshot upsert failed", logging.String("key", key), logging.Err(err))
		return errors.Storage(err, "failed to upsert snapshot")
	}
	return nil
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, selectSnapshotSQL, key, s.now().UTC()).Scan(&payload)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("snapshot not found").WithDetail(key)
		}
		return nil, errors.Storage(err, "failed to query snapshot")
	}
	return payload, nil
}

// PurgeExpired removes rows whose TTL has elapsed and reports how many.
func (s *SnapshotStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, purgeSnapshotsSQL, s.now().UTC())
	if err != nil {
		return 0, errors.Storage(err, "failed to purge snapshots")
	}
	if n := tag.RowsAffected(); n > 0 {
		s.logger.Info("purged expired snapshots", logging.Int64("count", n))
	}
	return tag.RowsAffected(), nil
}

//Personal.AI order the ending
