package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/cardex/internal/db"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.Get(ctx, "chunks"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("Get missing = %v, want ErrKeyNotFound", err)
	}

	buf := []byte("abc")
	if err := s.Set(ctx, "chunk-1", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'x'
	got, err := s.Get(ctx, "chunk-1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Errorf("Get = %q, stored value must not alias the caller's slice", got)
	}

	_ = s.Set(ctx, "chunk-0", nil)
	_ = s.Set(ctx, "chunks", nil)
	keys, err := s.Scan(ctx, "chunk-*")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "chunk-0" || keys[1] != "chunk-1" {
		t.Errorf("Scan = %v", keys)
	}

	if err := s.Del(ctx, "chunk-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "chunk-1"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("Get after Del = %v", err)
	}
}

func TestStore_BadPattern(t *testing.T) {
	if _, err := NewStore().Scan(context.Background(), "["); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}
