package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/cardex/internal/domain"
	domchunk "github.com/kailas-cloud/cardex/internal/domain/chunk"
)

func newTestSource(t *testing.T, h http.Handler) *Source {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := New(Config{BaseURL: srv.URL + "/feed/", RetryBaseDelay: time.Millisecond, MaxRetries: 2})
	require.NoError(t, err)
	return s
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "/relative/only"} {
		_, err := New(Config{BaseURL: u})
		assert.Error(t, err, "base url %q", u)
	}
}

func TestManifest_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed/manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"hash":"abc","path":"chunks/0.json"},{"index":1,"hash":"def","path":"chunks/1.json"}]`))
	})
	s := newTestSource(t, mux)

	m, err := s.Manifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domchunk.Manifest{
		{Index: 0, Hash: "abc", Path: "chunks/0.json"},
		{Index: 1, Hash: "def", Path: "chunks/1.json"},
	}, m)
}

func TestManifest_Invalid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed/manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"path":"a"},{"index":0,"path":"b"}]`))
	})
	_, err := newTestSource(t, mux).Manifest(context.Background())
	assert.ErrorContains(t, err, "duplicate index")
}

func TestChunk_ResolvesRelativePath(t *testing.T) {
	var gotPath string
	s := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}))

	body, err := s.Chunk(context.Background(), domchunk.Chunk{Index: 3, Path: "chunks/3.json"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, "/feed/chunks/3.json", gotPath)
}

func TestFetch_RetriesThrottlingAndServerErrors(t *testing.T) {
	var calls atomic.Int32
	s := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))

	body, err := s.Chunk(context.Background(), domchunk.Chunk{Path: "c.json"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	s := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := s.Chunk(context.Background(), domchunk.Chunk{Path: "c.json"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFeedUnavailable))
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	s := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))

	_, err := s.Manifest(context.Background())
	assert.True(t, errors.Is(err, domain.ErrFeedUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_ContextCanceled(t *testing.T) {
	s := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Manifest(ctx)
	assert.True(t, errors.Is(err, domain.ErrFeedUnavailable))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	s, err := New(Config{BaseURL: srv.URL, UserAgent: "cardex-test"})
	require.NoError(t, err)
	_, err = s.Manifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cardex-test", ua)
}
