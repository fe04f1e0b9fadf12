// Package catalog keeps the cached list of the account's repositories.
package catalog

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"gitbrand/internal/github"
)

type lister interface {
	ListRepositories(ctx context.Context) ([]github.Repository, error)
}

type cache interface {
	CachedRepos() []github.Repository
	SetCachedRepos([]github.Repository) error
}

type Catalog struct {
	hosting lister
	cache   cache
	log     logrus.FieldLogger
}

func New(hosting lister, cache cache, log logrus.FieldLogger) *Catalog {
	return &Catalog{hosting: hosting, cache: cache, log: log.WithField("component", "catalog")}
}

// Refresh scans the account. A non-empty result replaces the cache; an empty
// one leaves the previous cache in place.
func (c *Catalog) Refresh(ctx context.Context) ([]github.Repository, error) {
	repos, err := c.hosting.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan repositories: %w", err)
	}
	if len(repos) > 0 {
		if err := c.cache.SetCachedRepos(repos); err != nil {
			c.log.WithError(err).Warn("repository cache not saved")
		}
	}
	c.log.WithField("count", len(repos)).Info("repositories scanned")
	return repos, nil
}

// Repos returns the cached list.
func (c *Catalog) Repos() []github.Repository {
	return c.cache.CachedRepos()
}

// Find looks a repository up by name in the cache.
func (c *Catalog) Find(name string) (github.Repository, bool) {
	for _, r := range c.cache.CachedRepos() {
		if r.Name == name {
			return r, true
		}
	}
	return github.Repository{}, false
}
