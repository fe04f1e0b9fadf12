package kv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitbrand/internal/logging"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	_, ok, err := s.Get("gh_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("gh_token", "ghp_abc"))
	require.NoError(t, s.Set("llm_provider", "gemini"))
	require.NoError(t, s.Set("gh_token", "ghp_def"))

	v, ok, err := s.Get("gh_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ghp_def", v)

	require.NoError(t, s.Delete("gh_token"))
	require.NoError(t, s.Delete("never-set"))
	_, ok, _ = s.Get("gh_token")
	assert.False(t, ok)

	v, _, _ = s.Get("llm_provider")
	assert.Equal(t, "gemini", v)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "settings.json")
	s, err := NewFileStore(p)
	require.NoError(t, err)
	exerciseStore(t, s)

	// a fresh instance sees the persisted state
	s2, err := NewFileStore(p)
	require.NoError(t, err)
	v, ok, err := s2.Get("llm_provider")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gemini", v)
}

func TestFileStore_MalformedIsMovedAside(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o600))
	s, err := NewFileStore(p, WithLogger(logging.Discard()))
	require.NoError(t, err)

	_, ok, err := s.Get("x")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Set("x", "1"))

	aside, err := filepath.Glob(p + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, aside, 1)
	kept, err := os.ReadFile(aside[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(kept))

	v, ok, err := s.Get("x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestSQLiteStore(t *testing.T) {
	p := filepath.Join(t.TempDir(), "settings.db")
	s, err := NewSQLiteStore(p)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}
