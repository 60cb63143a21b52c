package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/zappabad/agriflow/internal/logging"
)

// ErrCapacity is logged when a value exceeds the store's size limit.
var ErrCapacity = errors.New("value exceeds storage capacity")

// Store is the JSON key-value collaborator handed to services.
// It never returns read or write failures to callers; it logs them.
type Store struct {
	backend       Backend
	logger        *zap.Logger
	maxValueBytes int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxValueBytes limits the encoded size of a single value. Zero means unlimited.
func WithMaxValueBytes(n int) Option {
	return func(s *Store) {
		s.maxValueBytes = n
	}
}

// NewStore wraps backend.
func NewStore(backend Backend, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  logging.OrNop(logger).Named("kv"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Read returns the decoded value under key, or def when the key is missing,
// the backend fails, or the stored bytes do not decode into T.
func Read[T any](ctx context.Context, s *Store, key string, def T) T {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("read failed", zap.String("key", key), zap.Error(err))
		}
		return def
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return def
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger.Warn("corrupt value, using default", zap.String("key", key), zap.Error(err))
		return def
	}
	return v
}

// Write encodes v and stores it under key. It reports whether the write succeeded.
func Write[T any](ctx context.Context, s *Store, key string, v T) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return s.put(ctx, key, data)
}

func (s *Store) put(ctx context.Context, key string, data []byte) bool {
	if s.maxValueBytes > 0 && len(data) > s.maxValueBytes {
		s.logger.Error("write rejected",
			zap.String("key", key),
			zap.Int("bytes", len(data)),
			zap.Int("limit", s.maxValueBytes),
			zap.Error(ErrCapacity),
		)
		return false
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		s.logger.Error("write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete removes key and reports whether the backend accepted the delete.
func (s *Store) Delete(ctx context.Context, key string) bool {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Error("delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Reset deletes every key in keys (factory reset) and returns how many deletes succeeded.
func (s *Store) Reset(ctx context.Context, keys []string) int {
	n := 0
	for _, k := range keys {
		if s.Delete(ctx, k) {
			n++
		}
	}
	s.logger.Info("storage reset", zap.Int("keys", n))
	return n
}

// Export returns an indented JSON document holding the value of every present key in keys.
// Values that are not valid JSON are exported as JSON strings.
func (s *Store) Export(ctx context.Context, keys []string) ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		data, err := s.backend.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", k, err)
		}
		if !json.Valid(data) {
			data, _ = json.Marshal(string(data))
		}
		doc[k] = json.RawMessage(data)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import stores every entry of an exported document whose key is in allowed.
// Unknown keys are skipped. It returns the keys written.
func (s *Store) Import(ctx context.Context, data []byte, allowed []string) ([]string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}

	var written []string
	for _, k := range allowed {
		v, ok := doc[k]
		if !ok {
			continue
		}
		if !s.put(ctx, k, v) {
			return written, fmt.Errorf("import %s: write failed", k)
		}
		written = append(written, k)
	}

	for k := range doc {
		if !slices.Contains(allowed, k) {
			s.logger.Warn("import skipped unknown key", zap.String("key", k))
		}
	}
	return written, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
