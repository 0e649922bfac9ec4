package minio

import (
	"context"
	stderrors "errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyGap-Intelligence/internal/config"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockObjectAPI) SetBucketLifecycle(ctx context.Context, bucketName string, cfg *lifecycle.Configuration) error {
	return m.Called(ctx, bucketName, cfg).Error(0)
}

func (m *MockObjectAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockObjectAPI) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func TestNewClientWithAPI_Defaults(t *testing.T) {
	c := NewClientWithAPI(&MockObjectAPI{}, config.MinIOConfig{}, nil)
	assert.Equal(t, DefaultBucket, c.Bucket())
	assert.Equal(t, "us-east-1", c.region)

	c = NewClientWithAPI(&MockObjectAPI{}, config.MinIOConfig{Bucket: "custom", Region: "eu-west-1"}, nil)
	assert.Equal(t, "custom", c.Bucket())
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(context.Background(), config.MinIOConfig{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing bucket", func(t *testing.T) {
		api := &MockObjectAPI{}
		api.On("BucketExists", ctx, "snapshots").Return(false, nil)
		api.On("MakeBucket", ctx, "snapshots", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)
		c := NewClientWithAPI(api, config.MinIOConfig{Bucket: "snapshots"}, nil)
		require.NoError(t, c.EnsureBucket(ctx))
		api.AssertExpectations(t)
	})

	t.Run("existing bucket is left alone", func(t *testing.T) {
		api := &MockObjectAPI{}
		api.On("BucketExists", ctx, "snapshots").Return(true, nil)
		c := NewClientWithAPI(api, config.MinIOConfig{Bucket: "snapshots"}, nil)
		require.NoError(t, c.EnsureBucket(ctx))
		api.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("errors are storage errors", func(t *testing.T) {
		api := &MockObjectAPI{}
		api.On("BucketExists", ctx, "snapshots").Return(false, stderrors.New("dial tcp"))
		c := NewClientWithAPI(api, config.MinIOConfig{Bucket: "snapshots"}, nil)
		assert.True(t, errors.IsCode(c.EnsureBucket(ctx), errors.ErrCodeStorage))
	})
}

func TestSetExpiration(t *testing.T) {
	ctx := context.Background()
	api := &MockObjectAPI{}
	api.On("SetBucketLifecycle", ctx, DefaultBucket, mock.MatchedBy(func(cfg *lifecycle.Configuration) bool {
		return len(cfg.Rules) == 1 &&
			cfg.Rules[0].RuleFilter.Prefix == "analysis/" &&
			cfg.Rules[0].Expiration.Days == 2
	})).Return(stderrors.New("not implemented"))

	c := NewClientWithAPI(api, config.MinIOConfig{}, nil)
	c.SetExpiration(ctx, "analysis/", 2)
	c.SetExpiration(ctx, "analysis/", 0)
	api.AssertNumberOfCalls(t, "SetBucketLifecycle", 1)
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()

	api := &MockObjectAPI{}
	api.On("BucketExists", ctx, DefaultBucket).Return(true, nil).Once()
	c := NewClientWithAPI(api, config.MinIOConfig{}, nil)
	status, err := c.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	api.On("BucketExists", ctx, DefaultBucket).Return(false, nil).Once()
	status, err = c.HealthCheck(ctx)
	require.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Error, "missing")

	require.NoError(t, c.Close())
	_, err = c.HealthCheck(ctx)
	assert.ErrorIs(t, err, ErrMinIOClientClosed)
}

//Personal.AI order the ending
