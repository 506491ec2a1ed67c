// Package chunk describes the hash-addressed slices of the catalog feed.
package chunk

import (
	"fmt"
	"sort"
)

// Chunk is one independently cacheable slice of the catalog.
type Chunk struct {
	Index int    `json:"index"`
	Hash  string `json:"hash"`
	Path  string `json:"path"`
}

// Manifest is the ordered list of chunks describing one catalog version.
type Manifest []Chunk

// Validate rejects manifests with duplicate indexes or missing paths.
func (m Manifest) Validate() error {
	seen := make(map[int]struct{}, len(m))
	for _, c := range m {
		if c.Path == "" {
			return fmt.Errorf("chunk %d: path is required", c.Index)
		}
		if _, dup := seen[c.Index]; dup {
			return fmt.Errorf("chunk %d: duplicate index", c.Index)
		}
		seen[c.Index] = struct{}{}
	}
	return nil
}

// ByIndex returns the manifest keyed by chunk index.
func (m Manifest) ByIndex() map[int]Chunk {
	out := make(map[int]Chunk, len(m))
	for _, c := range m {
		out[c.Index] = c
	}
	return out
}

// Indexes returns the chunk indexes in ascending order.
func (m Manifest) Indexes() []int {
	out := make([]int, len(m))
	for i, c := range m {
		out[i] = c.Index
	}
	sort.Ints(out)
	return out
}
