// Package kv is the key-value store the dashboard persists its state in.
//
// A Backend moves raw bytes. Store layers JSON encoding on top and absorbs
// every failure: reads fall back to a default, writes report success as a bool.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by backends when a key has no value.
var ErrNotFound = errors.New("key not found")

// Backend is a raw byte store keyed by string.
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key in lexical order.
	Keys(ctx context.Context) ([]string, error)
	// Close releases backend resources.
	Close() error
}
