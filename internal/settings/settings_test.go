package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitbrand/internal/github"
	"gitbrand/internal/kv"
	"gitbrand/internal/logging"
)

func newTestSettings(t *testing.T) (*Settings, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	return New(store, Defaults{GitHubToken: "env-token", Provider: "groq", APIKey: "env-key"}, logging.Discard()), store
}

func TestSettings_DefaultsThenOverrides(t *testing.T) {
	s, _ := newTestSettings(t)
	assert.Equal(t, "env-token", s.GitHubToken())
	assert.Equal(t, "groq", s.Provider())
	assert.Equal(t, "env-key", s.APIKey())

	require.NoError(t, s.SetGitHubToken("  ghp_new \n"))
	require.NoError(t, s.SetProvider("Gemini"))
	require.NoError(t, s.SetAPIKey("AIza"))
	assert.Equal(t, "ghp_new", s.GitHubToken())
	assert.Equal(t, "gemini", s.Provider())
	assert.Equal(t, "AIza", s.APIKey())

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "ghp_new", tok.AccessToken)
}

func TestSettings_RejectsUnknownProvider(t *testing.T) {
	s, _ := newTestSettings(t)
	assert.Error(t, s.SetProvider("bard"))
	assert.Equal(t, "groq", s.Provider())
}

func TestSettings_CachedRepos(t *testing.T) {
	s, store := newTestSettings(t)
	assert.Nil(t, s.CachedRepos())

	repos := []github.Repository{{ID: 1, Name: "a", Stars: 2}, {ID: 2, Name: "b"}}
	require.NoError(t, s.SetCachedRepos(repos))
	assert.Equal(t, repos, s.CachedRepos())

	require.NoError(t, store.Set(KeyRepos, "{broken"))
	assert.Nil(t, s.CachedRepos())
}

func TestSettings_Logout(t *testing.T) {
	s, _ := newTestSettings(t)
	require.NoError(t, s.SetProvider("openai"))
	require.NoError(t, s.SetAvatarURL("https://img/a.png"))

	require.NoError(t, s.Logout())
	assert.Empty(t, s.GitHubToken())
	assert.Empty(t, s.APIKey())
	assert.Equal(t, "groq", s.Provider())
	assert.Equal(t, "https://img/a.png", s.AvatarURL())
}
