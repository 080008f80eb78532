package quiz

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

// loadList reads a whole JSON collection. A value that does not parse is
// logged and treated as an empty collection.
func loadList[T any](ctx context.Context, kv storage.KV, log *logger.Logger, key string) ([]T, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "load", Key: key, Err: err}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Warn("corrupted collection treated as empty", "key", key, "error", err)
		return nil, nil
	}
	return out, nil
}

func saveList[T any](ctx context.Context, kv storage.KV, key string, list []T) error {
	if list == nil {
		list = []T{}
	}
	buf, err := json.Marshal(list)
	if err != nil {
		return &StorageError{Op: "save", Key: key, Err: err}
	}
	if err := kv.Set(ctx, key, string(buf)); err != nil {
		return &StorageError{Op: "save", Key: key, Err: err}
	}
	return nil
}
