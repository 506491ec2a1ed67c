package chunk

import (
	"context"
	"errors"

	"github.com/kailas-cloud/cardex/internal/db"
)

var errStoreDown = errors.New("store down")

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, &db.Error{Op: db.OpGet, Err: errStoreDown}
}

func (failingStore) Set(context.Context, string, []byte) error {
	return &db.Error{Op: db.OpSet, Err: errStoreDown}
}

func (failingStore) Del(context.Context, string) error {
	return &db.Error{Op: db.OpDel, Err: errStoreDown}
}

func (failingStore) Scan(context.Context, string) ([]string, error) {
	return nil, &db.Error{Op: db.OpScan, Err: errStoreDown}
}
