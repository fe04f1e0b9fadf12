// Package mcpserver exposes read-only views of the account over MCP, so other
// agents can inspect repositories without going through the chat. Nothing here
// mutates the hosting service; mutations always need a confirmed action.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"gitbrand/internal/github"
	"gitbrand/internal/score"
)

const (
	serverName    = "gitbrand-mcp"
	serverVersion = "1.0.0"

	maxFileRunes = 20000
)

// Hosting is the read side of the hosting client.
type Hosting interface {
	ListRepositories(ctx context.Context) ([]github.Repository, error)
	GetFileTree(ctx context.Context, repo string) []github.TreeEntry
	ReadFile(ctx context.Context, repo, path string) (string, bool)
	GetProfile(ctx context.Context) *github.Profile
}

type ListRepositoriesParams struct {
	Limit int `json:"limit,omitempty" mcp:"maximum number of repositories to return (default: all)"`
}

type RepoParams struct {
	Repo string `json:"repo" mcp:"repository name within the account"`
}

type ReadFileParams struct {
	Repo string `json:"repo" mcp:"repository name within the account"`
	Path string `json:"path" mcp:"file path relative to the repository root"`
}

type ProfileParams struct{}

type Server struct {
	hosting   Hosting
	avatarURL func() string
	log       logrus.FieldLogger
}

// New builds the tool handlers. avatarURL reports the locally stored avatar,
// which takes part in the profile score; it may be nil.
func New(hosting Hosting, avatarURL func() string, log logrus.FieldLogger) *Server {
	if avatarURL == nil {
		avatarURL = func() string { return "" }
	}
	return &Server{hosting: hosting, avatarURL: avatarURL, log: log.WithField("component", "mcp")}
}

// MCP returns a server with every tool registered.
func (s *Server) MCP() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_repositories",
		Description: "Lists the account's repositories, most recently updated first",
	}, s.ListRepositories)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_file_tree",
		Description: "Returns the recursive file tree of a repository's default branch",
	}, s.GetFileTree)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_file",
		Description: "Reads one text file from a repository",
	}, s.ReadFile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_profile",
		Description: "Returns the account profile with its health grade",
	}, s.GetProfile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "score_repository",
		Description: "Grades how presentable a repository is and lists what costs points",
	}, s.ScoreRepository)
	return server
}

// Run serves the tools on stdin/stdout until ctx is done or the peer hangs up.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("serving MCP on stdio")
	return s.MCP().Run(ctx, mcp.NewStdioTransport())
}

func textResult(text string, meta map[string]any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		Meta:    meta,
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "❌ " + fmt.Sprintf(format, args...)}},
	}
}

func (s *Server) ListRepositories(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ListRepositoriesParams]) (*mcp.CallToolResultFor[any], error) {
	repos, err := s.hosting.ListRepositories(ctx)
	if err != nil {
		return errorResult("list repositories: %v", err), nil
	}
	if limit := params.Arguments.Limit; limit > 0 && limit < len(repos) {
		repos = repos[:limit]
	}
	if len(repos) == 0 {
		return textResult("No repositories found.", map[string]any{"total_found": 0}), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d repositories:\n\n", len(repos))
	for i, r := range repos {
		fmt.Fprintf(&b, "%d. %s ★%d", i+1, r.Name, r.Stars)
		if r.Language != "" {
			fmt.Fprintf(&b, " [%s]", r.Language)
		}
		if r.Private {
			b.WriteString(" (private)")
		}
		if r.Description != "" {
			b.WriteString("\n   " + r.Description)
		}
		b.WriteString("\n")
	}
	return textResult(b.String(), map[string]any{"repositories": repos, "total_found": len(repos)}), nil
}

func (s *Server) GetFileTree(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RepoParams]) (*mcp.CallToolResultFor[any], error) {
	repo := strings.TrimSpace(params.Arguments.Repo)
	if repo == "" {
		return errorResult("repo is required"), nil
	}
	tree := s.hosting.GetFileTree(ctx, repo)
	if len(tree) == 0 {
		return errorResult("no files found in %s", repo), nil
	}
	var b strings.Builder
	for _, e := range tree {
		if e.Type == "tree" {
			b.WriteString(e.Path + "/\n")
			continue
		}
		b.WriteString(e.Path + "\n")
	}
	return textResult(b.String(), map[string]any{"repo": repo, "entries": len(tree)}), nil
}

func (s *Server) ReadFile(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ReadFileParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if args.Repo == "" || args.Path == "" {
		return errorResult("repo and path are required"), nil
	}
	content, ok := s.hosting.ReadFile(ctx, args.Repo, args.Path)
	if !ok {
		return errorResult("%s not found in %s", args.Path, args.Repo), nil
	}
	truncated := false
	if r := []rune(content); len(r) > maxFileRunes {
		content = string(r[:maxFileRunes])
		truncated = true
	}
	return textResult(content, map[string]any{"repo": args.Repo, "path": args.Path, "truncated": truncated}), nil
}

func (s *Server) GetProfile(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[ProfileParams]) (*mcp.CallToolResultFor[any], error) {
	p := s.hosting.GetProfile(ctx)
	if p == nil {
		return errorResult("profile is not available"), nil
	}
	report := score.Profile(p, s.avatarURL())
	var b strings.Builder
	fmt.Fprintf(&b, "@%s", p.Login)
	if p.Name != "" {
		fmt.Fprintf(&b, " (%s)", p.Name)
	}
	fmt.Fprintf(&b, "\nBio: %s\nLocation: %s\nPublic repositories: %d\nFollowers: %d\n", p.Bio, p.Location, p.PublicRepos, p.Followers)
	writeReport(&b, report)
	return textResult(b.String(), map[string]any{"profile": p, "score": report}), nil
}

func (s *Server) ScoreRepository(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RepoParams]) (*mcp.CallToolResultFor[any], error) {
	name := strings.TrimSpace(params.Arguments.Repo)
	if name == "" {
		return errorResult("repo is required"), nil
	}
	repos, err := s.hosting.ListRepositories(ctx)
	if err != nil {
		return errorResult("list repositories: %v", err), nil
	}
	for _, r := range repos {
		if r.Name != name {
			continue
		}
		report := score.Repository(r, s.hosting.GetFileTree(ctx, r.Name))
		var b strings.Builder
		b.WriteString(r.Name)
		writeReport(&b, report)
		return textResult(b.String(), map[string]any{"repo": r.Name, "score": report}), nil
	}
	return errorResult("repository %s not found", name), nil
}

func writeReport(b *strings.Builder, r score.Report) {
	if r.Pending() {
		b.WriteString("\nGrade: scanning")
		return
	}
	fmt.Fprintf(b, "\nGrade: %s (%d/100)", r.Grade, r.Score)
	for _, f := range r.Flags {
		b.WriteString("\n- " + f)
	}
}
