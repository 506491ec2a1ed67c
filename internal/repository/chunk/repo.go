// Package chunk persists the accepted manifest and the cached chunk payloads
// in the local key-value store.
package chunk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/cardex/internal/db"
	"github.com/kailas-cloud/cardex/internal/domain/card"
	domchunk "github.com/kailas-cloud/cardex/internal/domain/chunk"
)

const (
	manifestKey    = "chunks"
	chunkKeyPrefix = "chunk-"
)

// store is the consumer interface for the chunk cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/loader.Cache.
type Repo struct {
	store       store
	prefix      string
	compression Compression
}

// New creates a chunk repository. prefix namespaces every key, so several
// catalogs can share one store.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix, compression: CompressionNone}
}

// WithCompression sets how newly written chunk payloads are compressed.
// Reads detect the format regardless of this setting.
func (r *Repo) WithCompression(c Compression) *Repo {
	if c.IsValid() {
		r.compression = c
	}
	return r
}

// Manifest returns the locally accepted manifest. A store that never saved
// one yields an empty manifest.
func (r *Repo) Manifest(ctx context.Context) (domchunk.Manifest, error) {
	data, err := r.store.Get(ctx, r.key(manifestKey))
	if errors.Is(err, db.ErrKeyNotFound) {
		return domchunk.Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	var m domchunk.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// SaveManifest replaces the locally accepted manifest.
func (r *Repo) SaveManifest(ctx context.Context, m domchunk.Manifest) error {
	if m == nil {
		m = domchunk.Manifest{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := r.store.Set(ctx, r.key(manifestKey), data); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// SaveChunk stores a chunk document as fetched, overwriting any older copy.
func (r *Repo) SaveChunk(ctx context.Context, index int, payload []byte) error {
	data, err := encode(r.compression, payload)
	if err != nil {
		return fmt.Errorf("chunk %d: %w", index, err)
	}
	if err := r.store.Set(ctx, r.chunkKey(index), data); err != nil {
		return fmt.Errorf("save chunk %d: %w", index, err)
	}
	return nil
}

// Chunk decodes the cards of a persisted chunk.
// Returns db.ErrKeyNotFound if the chunk is not cached.
func (r *Repo) Chunk(ctx context.Context, index int) ([]card.Card, error) {
	data, err := r.store.Get(ctx, r.chunkKey(index))
	if err != nil {
		return nil, fmt.Errorf("get chunk %d: %w", index, err)
	}
	raw, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", index, err)
	}
	cards, err := card.DecodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", index, err)
	}
	return cards, nil
}

// DeleteChunk removes a persisted chunk.
func (r *Repo) DeleteChunk(ctx context.Context, index int) error {
	if err := r.store.Del(ctx, r.chunkKey(index)); err != nil {
		return fmt.Errorf("delete chunk %d: %w", index, err)
	}
	return nil
}

// Indexes lists the persisted chunk indexes in ascending order.
// Keys under the chunk prefix that do not end in a number are ignored.
func (r *Repo) Indexes(ctx context.Context) ([]int, error) {
	keys, err := r.store.Scan(ctx, r.key(chunkKeyPrefix)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	prefix := r.key(chunkKeyPrefix)
	out := make([]int, 0, len(keys))
	for _, k := range keys {
		idx, err := strconv.Atoi(strings.TrimPrefix(k, prefix))
		if err != nil {
			continue
		}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out, nil
}

func (r *Repo) key(name string) string {
	return r.prefix + name
}

func (r *Repo) chunkKey(index int) string {
	return r.key(chunkKeyPrefix + strconv.Itoa(index))
}
