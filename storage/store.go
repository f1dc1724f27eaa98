// Package storage provides the persisted key-value store used for sort
// preferences, last-access timestamps and the bookmarked library.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Namespaces used by bookshelf
const (
	NamespaceSettings      = "download_settings"
	NamespaceLastAccess    = "download_epub_last_access"
	NamespaceBookmarkState = "result_bookmark_state"
	NamespaceBookmark      = "result_bookmark"
)

// Keys inside NamespaceSettings
const (
	KeyDownloadSortMethod = "download_sorting_method"
	KeyLibrarySortMethod  = "download_normal_sorting_method"
)

// ErrNotFound is returned when a key does not exist in its namespace
var ErrNotFound = errors.New("key not found")

// Store is a namespaced key-value store holding JSON encoded values
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	// Keys returns every key in namespace in ascending order
	Keys(ctx context.Context, namespace string) ([]string, error)
}

// Lookup reads and decodes the value stored under namespace/key
func Lookup[T any](ctx context.Context, s Store, namespace, key string) (T, error) {
	var out T
	raw, err := s.Get(ctx, namespace, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s/%s: %w", namespace, key, err)
	}
	return out, nil
}

// GetOr returns the value under namespace/key, or def if it is missing or unreadable
func GetOr[T any](ctx context.Context, s Store, namespace, key string, def T) T {
	v, err := Lookup[T](ctx, s, namespace, key)
	if err != nil {
		return def
	}
	return v
}

// Put encodes value and stores it under namespace/key
func Put[T any](ctx context.Context, s Store, namespace, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", namespace, key, err)
	}
	return s.Set(ctx, namespace, key, raw)
}
