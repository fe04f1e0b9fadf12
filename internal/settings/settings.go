package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"gitbrand/internal/config"
	"gitbrand/internal/github"
	"gitbrand/internal/kv"
)

const (
	KeyGitHubToken = "gh_token"
	KeyProvider    = "llm_provider"
	KeyAPIKey      = "llm_api_key"
	KeyRepos       = "gma_repos"
	KeyAvatarURL   = "avatar_url"
)

// Defaults are the values used when the store has no entry for a key.
type Defaults struct {
	GitHubToken string
	Provider    string
	APIKey      string
}

func DefaultsFrom(cfg *config.Config) Defaults {
	return Defaults{
		GitHubToken: cfg.GitHubToken,
		Provider:    string(cfg.LLMProvider),
		APIKey:      cfg.LLMAPIKey,
	}
}

// Settings is the runtime-editable configuration persisted in a kv.Store.
// Stored values override the defaults taken from the environment.
type Settings struct {
	store    kv.Store
	defaults Defaults
	log      logrus.FieldLogger
}

func New(store kv.Store, defaults Defaults, log logrus.FieldLogger) *Settings {
	return &Settings{store: store, defaults: defaults, log: log.WithField("component", "settings")}
}

func (s *Settings) get(key, fallback string) string {
	v, ok, err := s.store.Get(key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("settings read failed")
		return fallback
	}
	if !ok {
		return fallback
	}
	return v
}

func (s *Settings) set(key, value string) error {
	if err := s.store.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Settings) GitHubToken() string { return s.get(KeyGitHubToken, s.defaults.GitHubToken) }

func (s *Settings) SetGitHubToken(token string) error {
	return s.set(KeyGitHubToken, strings.TrimSpace(token))
}

// Token implements oauth2.TokenSource so the hosting client always uses the
// current credential.
func (s *Settings) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: s.GitHubToken()}, nil
}

func (s *Settings) Provider() string { return s.get(KeyProvider, s.defaults.Provider) }

func (s *Settings) SetProvider(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !config.IsProvider(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	return s.set(KeyProvider, provider)
}

func (s *Settings) APIKey() string { return s.get(KeyAPIKey, s.defaults.APIKey) }

func (s *Settings) SetAPIKey(key string) error {
	return s.set(KeyAPIKey, strings.TrimSpace(key))
}

func (s *Settings) AvatarURL() string { return s.get(KeyAvatarURL, "") }

func (s *Settings) SetAvatarURL(u string) error { return s.set(KeyAvatarURL, u) }

// CachedRepos returns the last non-empty repository scan. A corrupt cache
// reads as empty.
func (s *Settings) CachedRepos() []github.Repository {
	raw := s.get(KeyRepos, "")
	if raw == "" {
		return nil
	}
	var repos []github.Repository
	if err := json.Unmarshal([]byte(raw), &repos); err != nil {
		s.log.WithError(err).Warn("cached repositories unreadable")
		return nil
	}
	return repos
}

func (s *Settings) SetCachedRepos(repos []github.Repository) error {
	b, err := json.Marshal(repos)
	if err != nil {
		return fmt.Errorf("encode repositories: %w", err)
	}
	return s.set(KeyRepos, string(b))
}

// Logout forgets the credential, provider and API key. Empty values are
// stored rather than deleted so environment defaults stay hidden.
func (s *Settings) Logout() error {
	for _, k := range []string{KeyGitHubToken, KeyAPIKey} {
		if err := s.set(k, ""); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}
	if err := s.store.Delete(KeyProvider); err != nil {
		return fmt.Errorf("logout: delete %s: %w", KeyProvider, err)
	}
	return nil
}

var _ oauth2.TokenSource = (*Settings)(nil)
