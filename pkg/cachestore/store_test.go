package cachestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend shares
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "plugins.cache")
	assert.True(t, errors.Is(err, ErrCacheMiss), "got %v", err)

	require.NoError(t, store.Put(ctx, "plugins.cache", []byte("ofx-plugin-cache 1\n")))
	data, err := store.Get(ctx, "plugins.cache")
	require.NoError(t, err)
	assert.Equal(t, "ofx-plugin-cache 1\n", string(data))

	require.NoError(t, store.Put(ctx, "plugins.cache", []byte("replaced")))
	data, err = store.Get(ctx, "plugins.cache")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))

	_, err = store.Get(ctx, "")
	assert.True(t, errors.Is(err, ErrInvalidCacheKey))
	assert.True(t, errors.Is(store.Put(ctx, "", nil), ErrInvalidCacheKey))
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)

	path, err := store.Path("plugins.cache")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))

	// no temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = store.Path("../escape")
	assert.True(t, errors.Is(err, ErrInvalidCacheKey))
	_, err = store.Path("/etc/passwd")
	assert.True(t, errors.Is(err, ErrInvalidCacheKey))

	require.NoError(t, store.Put(context.Background(), "nested/dir/plugins.cache", []byte("x")))
	data, err = store.Get(context.Background(), "nested/dir/plugins.cache")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	assert.NoError(t, store.HealthCheck(context.Background()))
	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := NewRedisStore(context.Background(), Config{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)

	raw, err := mr.Get(defaultRedisPrefix + "plugins.cache")
	require.NoError(t, err)
	assert.Equal(t, "replaced", raw)

	assert.NoError(t, store.HealthCheck(context.Background()))
}

func TestRedisStore_ConnectFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(context.Background(), Config{RedisURL: "redis://" + addr})
	assert.Error(t, err)

	_, err = NewRedisStore(context.Background(), Config{RedisURL: "not a url"})
	assert.Error(t, err)
}

// mockS3Client keeps objects in memory
type mockS3Client struct {
	objects  map[string][]byte
	headErr  error
	getErr   error
	lastType string
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Key)] = data
	m.lastType = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if m.headErr != nil {
		return nil, m.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Store(t *testing.T) {
	client := newMockS3Client()
	store := newS3Store(client, "plugins", "hosts/studio")

	exerciseStore(t, store)
	assert.Contains(t, client.objects, "hosts/studio/plugins.cache")
	assert.Equal(t, cacheContentType, client.lastType)
	assert.NoError(t, store.HealthCheck(context.Background()))

	client.headErr = errors.New("forbidden")
	assert.Error(t, store.HealthCheck(context.Background()))

	client.getErr = errors.New("connection reset")
	_, err := store.Get(context.Background(), "plugins.cache")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, isNotFoundError(&types.NoSuchKey{}))
	assert.True(t, isNotFoundError(&types.NotFound{}))
	assert.True(t, isNotFoundError(errors.New("api error NoSuchKey: gone")))
	assert.False(t, isNotFoundError(errors.New("access denied")))
	assert.False(t, isNotFoundError(nil))
}

func TestOpen(t *testing.T) {
	store, err := Open(context.Background(), Config{Backend: BackendFile, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = Open(context.Background(), Config{Backend: "tape"})
	assert.True(t, errors.Is(err, ErrUnknownBackend))

	_, err = Open(context.Background(), Config{Backend: BackendS3})
	assert.Error(t, err)
}
