package objstore

import (
	"context"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domchunk "github.com/kailas-cloud/cardex/internal/domain/chunk"
)

func TestNew_RequiresEndpointAndBucket(t *testing.T) {
	_, err := New(Config{Bucket: "feed"})
	assert.Error(t, err)
	_, err = New(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	s, err := New(Config{Endpoint: "localhost:9000", Bucket: "feed"})
	require.NoError(t, err)
	assert.Equal(t, "manifest.json", s.manifestPath)
}

func TestKey(t *testing.T) {
	s := NewSource(nil, "feed", "catalog/v2", "", nil)
	assert.Equal(t, "catalog/v2/manifest.json", s.key(s.manifestPath))
	assert.Equal(t, "catalog/v2/chunks/0.json", s.key("chunks/0.json"))

	bare := NewSource(nil, "feed", "", "index.json", nil)
	assert.Equal(t, "index.json", bare.key(bare.manifestPath))
}

// TestSource_Integration requires a running MinIO instance.
// Skip if not available.
func TestSource_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}
	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	const bucket = "test-cardex"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	put := func(key, body string) {
		_, err := client.PutObject(ctx, bucket, key, strings.NewReader(body), int64(len(body)), minio.PutObjectOptions{})
		require.NoError(t, err)
	}
	put("feed/manifest.json", `[{"index":0,"hash":"h","path":"chunks/0.json"}]`)
	put("feed/chunks/0.json", `[{"id":"1","name":"Shock"}]`)

	s := NewSource(client, bucket, "feed", "", nil)
	m, err := s.Manifest(ctx)
	require.NoError(t, err)
	require.Len(t, m, 1)

	body, err := s.Chunk(ctx, m[0])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1","name":"Shock"}]`, string(body))

	_, err = s.Chunk(ctx, domchunk.Chunk{Index: 1, Path: "chunks/missing.json"})
	assert.Error(t, err)
}
