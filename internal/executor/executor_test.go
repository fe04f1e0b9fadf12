package executor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"gitbrand/internal/action"
	"gitbrand/internal/github"
	"gitbrand/internal/logging"
)

type call struct {
	Op   string
	Args []any
}

type fakeHosting struct {
	mu    sync.Mutex
	calls []call
	err   error
	panic bool
}

func (f *fakeHosting) record(op string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: op, Args: args})
	if f.panic {
		panic("boom")
	}
	return f.err
}

func (f *fakeHosting) PatchProfile(_ context.Context, fields map[string]string) (*github.Profile, error) {
	if err := f.record("PatchProfile", fields); err != nil {
		return nil, err
	}
	return &github.Profile{}, nil
}

func (f *fakeHosting) WriteFile(_ context.Context, repo, path, content, message string) (*github.Revision, error) {
	if err := f.record("WriteFile", repo, path, content); err != nil {
		return nil, err
	}
	return &github.Revision{Path: path, CommitSHA: "0123456789abcdef"}, nil
}

func (f *fakeHosting) CreateRepository(_ context.Context, spec github.RepoSpec) (*github.Repository, error) {
	if err := f.record("CreateRepository", spec); err != nil {
		return nil, err
	}
	return &github.Repository{Name: spec.Name}, nil
}

func (f *fakeHosting) DeleteRepository(_ context.Context, repo string) error {
	return f.record("DeleteRepository", repo)
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) ([]github.Repository, error) {
	f.calls++
	return nil, f.err
}

type fakeAvatars struct{ url string }

func (f *fakeAvatars) SetAvatarURL(u string) error {
	f.url = u
	return nil
}

type collected []string

func (c *collected) emit(msg string) { *c = append(*c, msg) }

func newExecutor(h Hosting, r Refresher, a AvatarStore) *Executor {
	return New(h, r, a, logging.Discard())
}

func TestRun_UpdateBio(t *testing.T) {
	h := &fakeHosting{}
	var msgs collected
	err := newExecutor(h, &fakeRefresher{}, &fakeAvatars{}).
		Run(context.Background(), action.UpdateBio{Text: "Senior QA Engineer"}, msgs.emit)

	require.NoError(t, err)
	assert.Equal(t, []call{{Op: "PatchProfile", Args: []any{map[string]string{"bio": "Senior QA Engineer"}}}}, h.calls)
	assert.Equal(t, collected{
		"⚙️ Proceeding to update your profile bio...",
		"✅ Bio updated successfully on GitHub!",
	}, msgs)
}

func TestRun_UpdateProfile(t *testing.T) {
	h := &fakeHosting{}
	var msgs collected
	fields := map[string]string{"name": "M", "location": "Pune"}
	require.NoError(t, newExecutor(h, nil, nil).Run(context.Background(), action.UpdateProfile{Fields: fields}, msgs.emit))
	assert.Equal(t, []call{{Op: "PatchProfile", Args: []any{fields}}}, h.calls)
	assert.Len(t, msgs, 2)
}

func TestRun_CreateRepoRefreshes(t *testing.T) {
	h := &fakeHosting{}
	r := &fakeRefresher{}
	var msgs collected
	err := newExecutor(h, r, nil).Run(context.Background(),
		action.CreateRepo{Name: "demo", Description: "d", Private: false}, msgs.emit)

	require.NoError(t, err)
	assert.Equal(t, []call{{Op: "CreateRepository", Args: []any{github.RepoSpec{Name: "demo", Description: "d"}}}}, h.calls)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, `✅ Repository "demo" created! Refreshing list.`, msgs[1])
}

func TestRun_RefreshFailureIsNotSurfaced(t *testing.T) {
	r := &fakeRefresher{err: errors.New("scan failed")}
	var msgs collected
	err := newExecutor(&fakeHosting{}, r, nil).Run(context.Background(), action.DeleteRepo{RepoName: "old"}, msgs.emit)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.Contains(t, msgs[1], "Successfully deleted")
}

func TestRun_DeleteNotFoundFailsOnce(t *testing.T) {
	h := &fakeHosting{err: &github.DeleteError{Repo: "ghost", Reason: "Not Found"}}
	r := &fakeRefresher{}
	var msgs collected

	err := newExecutor(h, r, nil).Run(context.Background(), action.DeleteRepo{RepoName: "ghost"}, msgs.emit)

	var de *github.DeleteError
	require.True(t, errors.As(err, &de))
	assert.Len(t, h.calls, 1, "no retry")
	assert.Zero(t, r.calls, "no refresh after a failed mutation")
	assert.Equal(t, collected{
		`🛡️ Repository "ghost" deletion confirmed. Proceeding with deletion...`,
		`❌ Action failed: delete repository "ghost": Not Found`,
	}, msgs)
}

func TestRun_UpdateAvatarIsLocal(t *testing.T) {
	h := &fakeHosting{}
	a := &fakeAvatars{}
	var msgs collected
	require.NoError(t, newExecutor(h, nil, a).Run(context.Background(), action.UpdateAvatar{ImageURL: "https://img/x.png"}, msgs.emit))
	assert.Empty(t, h.calls)
	assert.Equal(t, "https://img/x.png", a.url)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	h := &fakeHosting{panic: true}
	var msgs collected
	err := newExecutor(h, nil, nil).Run(context.Background(), action.UpdateBio{Text: "x"}, msgs.emit)
	require.Error(t, err)
	assert.Equal(t, "❌ Action failed: internal error: boom", msgs[1])
}

func TestExecute_InvalidCommandMakesNoCall(t *testing.T) {
	h := &fakeHosting{}
	_, err := newExecutor(h, nil, nil).Execute(context.Background(), action.DeleteRepo{})
	require.Error(t, err)
	assert.Empty(t, h.calls)
}

func TestExecute_CommitReadmeReportsCommit(t *testing.T) {
	h := &fakeHosting{}
	status, err := newExecutor(h, nil, nil).Execute(context.Background(), action.CommitReadme{RepoName: "r", Content: "# Hi"})
	require.NoError(t, err)
	assert.Equal(t, []call{{Op: "WriteFile", Args: []any{"r", "README.md", "# Hi"}}}, h.calls)
	assert.Equal(t, `✅ README.md committed to "r". Commit 0123456.`, status)
}

func TestExecute_Timeout(t *testing.T) {
	slow := &blockingHosting{}
	e := New(slow, nil, nil, logging.Discard(), WithTimeout(20*time.Millisecond))
	_, err := e.Execute(context.Background(), action.UpdateBio{Text: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingHosting struct{ fakeHosting }

func (b *blockingHosting) PatchProfile(ctx context.Context, _ map[string]string) (*github.Profile, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// The executor drives the real hosting client: the README commit must read the
// current revision once and then write once with the given content.
func TestExecute_CommitReadmeAgainstRemote(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
		body  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"type":"file","encoding":"base64","sha":"prev","content":""}`)
		case http.MethodPut:
			b, _ := io.ReadAll(r.Body)
			body = string(b)
			_, _ = io.WriteString(w, `{"content":{"sha":"next"},"commit":{"sha":"c0ffee1234"}}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	client, err := github.New(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}), "octo",
		github.WithBaseURL(srv.URL), github.WithLogger(logging.Discard()))
	require.NoError(t, err)

	_, err = newExecutor(client, nil, nil).Execute(context.Background(), action.CommitReadme{RepoName: "r", Content: "# Hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"GET /repos/octo/r/contents/README.md",
		"PUT /repos/octo/r/contents/README.md",
	}, calls)
	assert.Contains(t, body, `"sha":"prev"`)
	assert.Contains(t, body, `"content":"IyBIaQ=="`)
}
