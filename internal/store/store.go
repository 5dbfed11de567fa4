// Package store is the key-value persistence provider behind pairing
// requests, screen sessions and settings. A successful Put is durable when it
// returns.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("store: record not found")

// Namespaces used by the repositories.
const (
	NamespacePairing  = "pairing"
	NamespaceScreens  = "screens"
	NamespaceSettings = "settings"
)

type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) (map[string][]byte, error)
}

// GetJSON loads and decodes a record. A missing record yields (nil, nil).
func GetJSON[T any](ctx context.Context, s Store, namespace, key string) (*T, error) {
	raw, err := s.Get(ctx, namespace, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", namespace, key, err)
	}
	return &v, nil
}

func PutJSON[T any](ctx context.Context, s Store, namespace, key string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", namespace, key, err)
	}
	return s.Put(ctx, namespace, key, raw)
}

// ListJSON decodes every record in a namespace. Records that fail to decode
// are skipped and reported through the returned count.
func ListJSON[T any](ctx context.Context, s Store, namespace string) ([]T, int, error) {
	all, err := s.List(ctx, namespace)
	if err != nil {
		return nil, 0, err
	}

	out := make([]T, 0, len(all))
	skipped := 0
	for _, raw := range all {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped, nil
}
