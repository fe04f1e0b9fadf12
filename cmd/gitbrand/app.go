package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"gitbrand/internal/assistant"
	"gitbrand/internal/auth"
	"gitbrand/internal/catalog"
	"gitbrand/internal/config"
	"gitbrand/internal/executor"
	"gitbrand/internal/github"
	"gitbrand/internal/kv"
	"gitbrand/internal/llm"
	"gitbrand/internal/logging"
	"gitbrand/internal/prompts"
	"gitbrand/internal/scheduler"
	"gitbrand/internal/settings"
	"gitbrand/internal/storage"
	"gitbrand/internal/studio"
)

// app holds the wired services shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    kv.Store
	settings *settings.Settings
	hosting  *github.Client
	prompts  *prompts.Set
	chat     *llm.Chat
	catalog  *catalog.Catalog
	journal  storage.Recorder
	executor *executor.Executor
	studio   *studio.Studio
}

func newApp() (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	store, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}
	set := settings.New(store, settings.DefaultsFrom(cfg), log)

	var ghOpts []github.Option
	ghOpts = append(ghOpts, github.WithLogger(log), github.WithTimeout(cfg.RequestTimeout))
	if cfg.GitHubBaseURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(cfg.GitHubBaseURL))
	}
	hosting, err := github.New(set, cfg.GitHubAccount, ghOpts...)
	if err != nil {
		closeStore(store)
		return nil, err
	}

	promptSet := prompts.Default()
	if cfg.PromptsPath != "" {
		if promptSet, err = prompts.Load(cfg.PromptsPath); err != nil {
			closeStore(store)
			return nil, err
		}
	}

	// Templates are checked up front; the account is filled in per use.
	if _, err := promptSet.RenderChatSystem(""); err != nil {
		closeStore(store)
		return nil, err
	}
	if _, err := promptSet.RenderGreeting(""); err != nil {
		closeStore(store)
		return nil, err
	}

	var journal storage.Recorder = storage.Discard{}
	if cfg.JournalPath != "" {
		fr, err := storage.NewFileRecorder(cfg.JournalPath)
		if err != nil {
			log.WithError(err).Warn("journal disabled")
		} else {
			journal = fr
		}
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		settings: set,
		hosting:  hosting,
		prompts:  promptSet,
		journal:  journal,
	}
	a.chat = llm.NewChat(llm.NewFactory(cfg), set, a.systemPrompt, log)
	a.catalog = catalog.New(hosting, set, log)
	a.executor = executor.New(hosting, a.catalog, set, log, executor.WithTimeout(cfg.RequestTimeout))
	a.studio = studio.New(hosting, a.chat, promptSet, log)
	return a, nil
}

// account names the current GitHub account, empty while no credential resolves.
func (a *app) account(ctx context.Context) string {
	name, err := a.hosting.Account(ctx)
	if err != nil {
		a.log.WithError(err).Debug("account not resolved")
		return ""
	}
	return name
}

func (a *app) systemPrompt(ctx context.Context) string {
	p, err := a.prompts.RenderChatSystem(a.account(ctx))
	if err != nil {
		a.log.WithError(err).Error("render system prompt")
	}
	return p
}

func (a *app) greeting(ctx context.Context) string {
	g, err := a.prompts.RenderGreeting(a.account(ctx))
	if err != nil {
		a.log.WithError(err).Error("render greeting")
	}
	return g
}

// openStore picks the settings backend and makes sure its directory exists.
func openStore(cfg *config.Config, log logrus.FieldLogger) (kv.Store, error) {
	if dir := filepath.Dir(cfg.StorePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		return kv.NewSQLiteStore(cfg.StorePath)
	default:
		return kv.NewFileStore(cfg.StorePath, kv.WithLogger(log))
	}
}

func closeStore(store kv.Store) {
	if c, ok := store.(io.Closer); ok {
		_ = c.Close()
	}
}

func (a *app) close() {
	if c, ok := a.journal.(io.Closer); ok {
		_ = c.Close()
	}
	closeStore(a.store)
}

// newSession greets with the account known when the session starts.
func (a *app) newSession(id string) *assistant.Session {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
	defer cancel()
	return assistant.NewSession(id, a.greeting(ctx), a.chat, a.executor,
		assistant.WithTimeout(a.cfg.RequestTimeout),
		assistant.WithJournal(a.journal),
		assistant.WithLogger(a.log),
	)
}

func (a *app) newAuth() (*auth.Service, error) {
	return auth.NewWithRepo(auth.NewKVRepository(a.store), a.cfg.AllowedUsers, a.cfg.AdminUserID)
}

// startRefresh keeps the repository cache warm. A nil scheduler means the
// refresh is disabled.
func (a *app) startRefresh(ctx context.Context) (*scheduler.Scheduler, error) {
	if _, err := a.catalog.Refresh(ctx); err != nil {
		a.log.WithError(err).Warn("initial repository scan failed")
	}
	if a.cfg.RefreshSchedule == "" {
		return nil, nil
	}
	s := scheduler.New(a.log)
	err := s.AddJob("refresh-repositories", a.cfg.RefreshSchedule, func(ctx context.Context) error {
		_, err := a.catalog.Refresh(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("schedule repository refresh: %w", err)
	}
	s.Start()
	return s, nil
}
