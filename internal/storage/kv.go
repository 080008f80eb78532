package storage

import (
	"context"
	"errors"
)

// KV is the opaque key-value persistence collaborator. Values are whole
// encoded collections; callers read the whole value and write it back.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

var ErrEmptyKey = errors.New("empty key")
