package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseBackend runs the shared Backend contract against b.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Set(ctx, "agriflow_market", []byte(`[{"cropName":"Maize"}]`)))
	require.NoError(t, b.Set(ctx, "agriflow_market_trends", []byte(`{"Maize":{"direction":"UP","duration":3}}`)))

	got, err := b.Get(ctx, "agriflow_market")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"cropName":"Maize"}]`, string(got))

	require.NoError(t, b.Set(ctx, "agriflow_market", []byte(`[]`)))
	got, err = b.Get(ctx, "agriflow_market")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"agriflow_market", "agriflow_market_trends"}, keys)

	require.NoError(t, b.Delete(ctx, "agriflow_market"))
	require.NoError(t, b.Delete(ctx, "agriflow_market"))
	_, err = b.Get(ctx, "agriflow_market")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemoryBackend())
}

func TestFileBackend(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	exerciseBackend(t, b)
}

func TestFileBackendEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "../outside/key", []byte(`1`)))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"../outside/key"}, keys)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(dir), "outside*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSQLiteBackend(t *testing.T) {
	b, err := NewSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer b.Close()
	exerciseBackend(t, b)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, kind := range []string{KindMemory, KindFile, KindSQLite} {
		t.Run(kind, func(t *testing.T) {
			b, err := Open(ctx, Config{Backend: kind, Dir: filepath.Join(dir, kind)})
			require.NoError(t, err)
			defer b.Close()
			require.NoError(t, b.Set(ctx, "k", []byte(`1`)))
		})
	}

	_, err := Open(ctx, Config{Backend: "redis"})
	assert.Error(t, err)
}

func TestPostgresConnString(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, Name: "agri", User: "u", Password: "p"}
	assert.Equal(t, "postgres://u:p@db:5432/agri?sslmode=prefer", cfg.ConnString())

	cfg.SSLMode = "disable"
	assert.Equal(t, "postgres://u:p@db:5432/agri?sslmode=disable", cfg.ConnString())
}
