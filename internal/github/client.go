package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v66/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	ReadmePath          = "README.md"
	defaultBranch       = "main"
	defaultCommitPrefix = "Update %s via gitbrand"
)

// Client talks to the GitHub REST API on behalf of one account. The credential
// is read from the token source on every call so it can change at runtime.
type Client struct {
	gh      *gh.Client
	tokens  oauth2.TokenSource
	account string
	log     logrus.FieldLogger

	mu      sync.Mutex
	login   string
	loginOf string // access token login was resolved with
}

type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
	timeout time.Duration
	log     logrus.FieldLogger
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *clientOptions) { o.log = l }
}

// New builds a client. account may be empty, in which case the login of the
// authenticated user is used.
func New(tokens oauth2.TokenSource, account string, opts ...Option) (*Client, error) {
	o := clientOptions{timeout: 30 * time.Second, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	httpClient := &http.Client{
		Timeout:   o.timeout,
		Transport: &oauth2.Transport{Source: tokens, Base: http.DefaultTransport},
	}
	client := gh.NewClient(httpClient)
	if o.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = u
	}
	return &Client{
		gh:      client,
		tokens:  tokens,
		account: account,
		log:     o.log.WithField("component", "github"),
	}, nil
}

// authorize fails fast with an AuthError when no credential is configured.
func (c *Client) authorize() error {
	tok, err := c.tokens.Token()
	if err != nil {
		return &AuthError{Err: err}
	}
	if tok == nil || tok.AccessToken == "" {
		return &AuthError{}
	}
	return nil
}

// owner resolves the account name. Without a configured account the login is
// asked from the API and cached until the access token changes.
func (c *Client) owner(ctx context.Context) (string, error) {
	if c.account != "" {
		return c.account, nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", &AuthError{Err: err}
	}
	if tok == nil {
		return "", &AuthError{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.login != "" && c.loginOf == tok.AccessToken {
		return c.login, nil
	}
	c.login, c.loginOf = "", ""
	u, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		if isUnauthorized(err) {
			return "", &AuthError{Err: err}
		}
		return "", &NetworkError{Op: "resolve account", Err: err}
	}
	c.login, c.loginOf = u.GetLogin(), tok.AccessToken
	return c.login, nil
}

// Account returns the configured or resolved account name.
func (c *Client) Account(ctx context.Context) (string, error) {
	if err := c.authorize(); err != nil {
		return "", err
	}
	return c.owner(ctx)
}

// ListRepositories returns the account's repositories, most recently updated
// first. Only credential problems are reported; anything else yields an empty list.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	if err := c.authorize(); err != nil {
		return nil, err
	}
	owner, err := c.owner(ctx)
	if err != nil {
		var ae *AuthError
		if errors.As(err, &ae) {
			return nil, err
		}
		c.log.WithError(err).Warn("list repositories: cannot resolve account")
		return []Repository{}, nil
	}
	repos, _, err := c.gh.Repositories.ListByUser(ctx, owner, &gh.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err != nil {
		if isUnauthorized(err) {
			return nil, &AuthError{Err: err}
		}
		c.log.WithError(err).WithField("account", owner).Warn("list repositories failed")
		return []Repository{}, nil
	}
	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, Repository{
			ID:            r.GetID(),
			Name:          r.GetName(),
			Description:   r.GetDescription(),
			Stars:         r.GetStargazersCount(),
			Forks:         r.GetForksCount(),
			Language:      r.GetLanguage(),
			URL:           r.GetHTMLURL(),
			Private:       r.GetPrivate(),
			DefaultBranch: r.GetDefaultBranch(),
		})
	}
	return out, nil
}

// GetFileTree resolves the default branch and returns its recursive tree.
// A nil slice means the tree could not be fetched.
func (c *Client) GetFileTree(ctx context.Context, repo string) []TreeEntry {
	if err := c.authorize(); err != nil {
		return nil
	}
	owner, err := c.owner(ctx)
	if err != nil {
		return nil
	}
	log := c.log.WithField("repo", repo)
	info, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		log.WithError(err).Warn("tree fetch: repository lookup failed")
		return nil
	}
	branch := info.GetDefaultBranch()
	if branch == "" {
		branch = defaultBranch
	}
	tree, _, err := c.gh.Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		log.WithError(err).WithField("branch", branch).Warn("tree fetch failed")
		return nil
	}
	out := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		out = append(out, TreeEntry{Path: e.GetPath(), Type: e.GetType(), Size: e.GetSize()})
	}
	return out
}

// ReadFile returns the decoded contents of path.
func (c *Client) ReadFile(ctx context.Context, repo, path string) (string, bool) {
	if err := c.authorize(); err != nil {
		return "", false
	}
	owner, err := c.owner(ctx)
	if err != nil {
		return "", false
	}
	fc, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil || fc == nil {
		if err != nil && statusOf(err) != http.StatusNotFound {
			c.log.WithError(err).WithFields(logrus.Fields{"repo": repo, "path": path}).Warn("read file failed")
		}
		return "", false
	}
	content, err := fc.GetContent()
	if err != nil {
		return "", false
	}
	return content, true
}

// ReadReadme returns the repository README whatever its exact file name.
func (c *Client) ReadReadme(ctx context.Context, repo string) (string, bool) {
	if err := c.authorize(); err != nil {
		return "", false
	}
	owner, err := c.owner(ctx)
	if err != nil {
		return "", false
	}
	rc, _, err := c.gh.Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		return "", false
	}
	content, err := rc.GetContent()
	if err != nil {
		return "", false
	}
	return content, true
}

// WriteFile creates or replaces path. The current blob sha is always read
// first because the API refuses to overwrite an existing file without it.
func (c *Client) WriteFile(ctx context.Context, repo, path, content, message string) (*Revision, error) {
	if err := c.authorize(); err != nil {
		return nil, err
	}
	owner, err := c.owner(ctx)
	if err != nil {
		return nil, err
	}
	if message == "" {
		message = fmt.Sprintf(defaultCommitPrefix, path)
	}

	var sha string
	current, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	switch {
	case err == nil && current != nil:
		sha = current.GetSHA()
	case err != nil && statusOf(err) == http.StatusNotFound:
		// new file
	case isUnauthorized(err):
		return nil, &AuthError{Err: err}
	case err != nil:
		return nil, &CommitError{Repo: repo, Path: path, Reason: reason(err)}
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: &message,
		Content: []byte(content),
	}
	var res *gh.RepositoryContentResponse
	if sha == "" {
		res, _, err = c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
	} else {
		opts.SHA = &sha
		res, _, err = c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	}
	if err != nil {
		if isUnauthorized(err) {
			return nil, &AuthError{Err: err}
		}
		return nil, &CommitError{Repo: repo, Path: path, Reason: reason(err)}
	}
	rev := &Revision{Path: path, CommitSHA: res.Commit.GetSHA()}
	if res.Content != nil {
		rev.SHA = res.Content.GetSHA()
		rev.URL = res.Content.GetHTMLURL()
	}
	c.log.WithFields(logrus.Fields{"repo": repo, "path": path, "commit": rev.CommitSHA}).Info("file committed")
	return rev, nil
}

// PatchProfile updates the authenticated user's profile. Supported keys are
// name, bio, location, blog, company, email, twitter_username and hireable.
func (c *Client) PatchProfile(ctx context.Context, fields map[string]string) (*Profile, error) {
	if err := c.authorize(); err != nil {
		return nil, err
	}
	patch := &gh.User{}
	for k, v := range fields {
		switch k {
		case "name":
			patch.Name = &v
		case "bio":
			patch.Bio = &v
		case "location":
			patch.Location = &v
		case "blog":
			patch.Blog = &v
		case "company":
			patch.Company = &v
		case "email":
			patch.Email = &v
		case "twitter_username":
			patch.TwitterUsername = &v
		case "hireable":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, &ProfileUpdateError{Reason: fmt.Sprintf("hireable must be true or false, got %q", v)}
			}
			patch.Hireable = &b
		default:
			return nil, &ProfileUpdateError{Reason: fmt.Sprintf("unsupported profile field %q", k)}
		}
	}
	u, _, err := c.gh.Users.Edit(ctx, patch)
	if err != nil {
		if isUnauthorized(err) {
			return nil, &AuthError{Err: err}
		}
		return nil, &ProfileUpdateError{Reason: reason(err)}
	}
	p := toProfile(u)
	return &p, nil
}

func (c *Client) CreateRepository(ctx context.Context, spec RepoSpec) (*Repository, error) {
	if err := c.authorize(); err != nil {
		return nil, err
	}
	r, _, err := c.gh.Repositories.Create(ctx, "", &gh.Repository{
		Name:        &spec.Name,
		Description: &spec.Description,
		Private:     &spec.Private,
	})
	if err != nil {
		if isUnauthorized(err) {
			return nil, &AuthError{Err: err}
		}
		return nil, &CreateError{Name: spec.Name, Reason: reason(err)}
	}
	return &Repository{
		ID:          r.GetID(),
		Name:        r.GetName(),
		Description: r.GetDescription(),
		URL:         r.GetHTMLURL(),
		Private:     r.GetPrivate(),
	}, nil
}

// DeleteRepository removes repo for good.
func (c *Client) DeleteRepository(ctx context.Context, repo string) error {
	if err := c.authorize(); err != nil {
		return err
	}
	owner, err := c.owner(ctx)
	if err != nil {
		return err
	}
	if _, err := c.gh.Repositories.Delete(ctx, owner, repo); err != nil {
		if isUnauthorized(err) {
			return &AuthError{Err: err}
		}
		return &DeleteError{Repo: repo, Reason: reason(err)}
	}
	c.log.WithField("repo", repo).Warn("repository deleted")
	return nil
}

// GetProfile returns the authenticated user's profile, nil when unavailable.
func (c *Client) GetProfile(ctx context.Context) *Profile {
	if err := c.authorize(); err != nil {
		return nil
	}
	u, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		c.log.WithError(err).Warn("profile fetch failed")
		return nil
	}
	p := toProfile(u)
	return &p
}

func toProfile(u *gh.User) Profile {
	return Profile{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		Bio:         u.GetBio(),
		Location:    u.GetLocation(),
		AvatarURL:   u.GetAvatarURL(),
		Blog:        u.GetBlog(),
		Company:     u.GetCompany(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
	}
}
