package minio

import (
	"bytes"
	"context"
	"io"
	"math"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

const snapshotContentType = "application/json"

// ObjectStore keeps analysis snapshots as objects named prefix+key.
type ObjectStore struct {
	client *Client
	logger logging.Logger
	prefix string
}

type StoreOption func(*ObjectStore)

func WithPrefix(prefix string) StoreOption {
	return func(s *ObjectStore) { s.prefix = prefix }
}

// NewObjectStore returns a store over client. A positive ttl installs a bucket
// lifecycle rule expiring objects below the prefix, rounded up to whole days.
func NewObjectStore(ctx context.Context, client *Client, log logging.Logger, ttl time.Duration, opts ...StoreOption) (*ObjectStore, error) {
	if client == nil {
		return nil, errors.New(errors.ErrCodeValidation, "minio client is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &ObjectStore{client: client, logger: log}
	for _, opt := range opts {
		opt(s)
	}
	if ttl > 0 {
		client.SetExpiration(ctx, s.prefix, ttlDays(ttl))
	}
	return s, nil
}

func ttlDays(ttl time.Duration) int {
	return int(math.Ceil(ttl.Hours() / 24))
}

func (s *ObjectStore) objectName(key string) string {
	return s.prefix + key
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func (s *ObjectStore) Put(ctx context.Context, key string, value []byte) error {
	api, err := s.client.API()
	if err != nil {
		return errors.Storage(err, "minio put failed")
	}
	_, err = api.PutObject(ctx, s.client.Bucket(), s.objectName(key), bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: snapshotContentType})
	if err != nil {
		s.logger.Error("minio put failed", logging.String("key", key), logging.Err(err))
		return errors.Storage(err, "minio put failed")
	}
	return nil
}

// Get returns a NotFound error when the object does not exist.
func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	api, err := s.client.API()
	if err != nil {
		return nil, errors.Storage(err, "minio get failed")
	}
	obj, err := api.GetObject(ctx, s.client.Bucket(), s.objectName(key))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.NotFound("snapshot not found").WithDetail(key)
		}
		return nil, errors.Storage(err, "minio get failed")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.NotFound("snapshot not found").WithDetail(key)
		}
		return nil, errors.Storage(err, "minio read failed")
	}
	return data, nil
}

//Personal.AI order the ending
