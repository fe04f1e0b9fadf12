package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitbrand/internal/config"
	"gitbrand/internal/github"
	"gitbrand/internal/kv"
	"gitbrand/internal/logging"
	"gitbrand/internal/prompts"
	"gitbrand/internal/settings"
	"gitbrand/internal/storage"
)

func TestOpenStoreBackends(t *testing.T) {
	dir := t.TempDir()

	fileStore, err := openStore(&config.Config{StoreBackend: config.StoreFile, StorePath: filepath.Join(dir, "nested", "settings.json")}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &kv.FileStore{}, fileStore)
	require.NoError(t, fileStore.Set("k", "v"))

	sqlStore, err := openStore(&config.Config{StoreBackend: config.StoreSQLite, StorePath: filepath.Join(dir, "db", "settings.db")}, logging.Discard())
	require.NoError(t, err)
	defer closeStore(sqlStore)
	assert.IsType(t, &kv.SQLiteStore{}, sqlStore)
	require.NoError(t, sqlStore.Set("k", "v"))
	v, ok, err := sqlStore.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"bot", "chat", "repos", "mcp", "stats", "logout"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	repos, _, _ := root.Find([]string{"repos"})
	assert.NotNil(t, repos.Flags().Lookup("score"))
	stats, _, _ := root.Find([]string{"stats"})
	assert.NotNil(t, stats.Flags().Lookup("json"))
}

func TestGreetingFollowsTokenSuppliedLater(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"login":"octo"}`)
	}))
	defer srv.Close()

	log := logging.Discard()
	set := settings.New(kv.NewMemory(), settings.Defaults{}, log)
	hosting, err := github.New(set, "", github.WithBaseURL(srv.URL), github.WithLogger(log))
	require.NoError(t, err)
	a := &app{
		cfg:      &config.Config{RequestTimeout: time.Second},
		log:      log,
		settings: set,
		hosting:  hosting,
		prompts:  prompts.Default(),
		journal:  storage.Discard{},
	}
	ctx := context.Background()

	assert.NotContains(t, a.greeting(ctx), "octo")
	assert.NotContains(t, a.systemPrompt(ctx), "Current user")

	require.NoError(t, set.SetGitHubToken("ghp_later"))
	assert.Contains(t, a.greeting(ctx), "Hello octo!")
	assert.Contains(t, a.systemPrompt(ctx), "Current user: octo.")
	assert.Contains(t, a.newSession("1").Turns()[0].Content, "Hello octo!")
}
