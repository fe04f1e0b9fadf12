package pending

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitbrand/internal/action"
)

func TestStage_LastWriteWins(t *testing.T) {
	s := NewStore()
	a, replaced := s.Stage(action.DeleteRepo{RepoName: "a"}, `ACTION:DELETE_REPO "a"`, 2)
	assert.Nil(t, replaced)
	assert.Equal(t, StatusAwaiting, a.Status)
	assert.NotEmpty(t, a.ID)

	b, replaced := s.Stage(action.UpdateBio{Text: "b"}, `ACTION:UPDATE_BIO "b"`, 4)
	require.NotNil(t, replaced)
	assert.Equal(t, a.ID, replaced.ID)
	assert.NotEqual(t, a.ID, b.ID)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, action.UpdateBio{Text: "b"}, cur.Command)
	assert.Equal(t, 4, cur.Turn)
}

func TestConfirm_NoPending(t *testing.T) {
	s := NewStore()
	_, err := s.Confirm("", 0)
	assert.True(t, errors.Is(err, ErrNoPending))
}

func TestConfirm_TransitionsToExecuting(t *testing.T) {
	s := NewStore()
	a, _ := s.Stage(action.DeleteRepo{RepoName: "x"}, "", 3)

	got, err := s.Confirm(a.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)

	got, ok := s.Begin(a.ID)
	require.True(t, ok)
	assert.Equal(t, StatusExecuting, got.Status)

	_, err = s.Confirm(a.ID, 3)
	assert.True(t, errors.Is(err, ErrNotAwaiting), "double confirm must be rejected")
}

func TestConfirm_ReplacedID(t *testing.T) {
	s := NewStore()
	old, _ := s.Stage(action.DeleteRepo{RepoName: "x"}, "", 1)
	s.Stage(action.DeleteRepo{RepoName: "y"}, "", 3)

	_, err := s.Confirm(old.ID, 3)
	assert.True(t, errors.Is(err, ErrUnknownAction))
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, StatusAwaiting, cur.Status)
}

func TestConfirm_StaleIsDropped(t *testing.T) {
	s := NewStore()
	a, _ := s.Stage(action.DeleteRepo{RepoName: "x"}, "", 1)

	_, err := s.Confirm(a.ID, 3)
	assert.True(t, errors.Is(err, ErrStale))
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestCancelAndFinish(t *testing.T) {
	s := NewStore()
	_, ok := s.Cancel()
	assert.False(t, ok)

	a, _ := s.Stage(action.UpdateAvatar{ImageURL: "u"}, "", 0)
	dropped, ok := s.Cancel()
	require.True(t, ok)
	assert.Equal(t, a.ID, dropped.ID)

	b, _ := s.Stage(action.UpdateAvatar{ImageURL: "v"}, "", 0)
	_, err := s.Confirm(b.ID, 0)
	require.NoError(t, err)
	_, ok = s.Begin(b.ID)
	require.True(t, ok)

	_, ok = s.Finish("other", nil)
	assert.False(t, ok)
	done, ok := s.Finish(b.ID, errors.New("boom"))
	require.True(t, ok)
	assert.Equal(t, StatusFailed, done.Status)
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestStage_ExecutingActionIsNotReportedAsReplaced(t *testing.T) {
	s := NewStore()
	a, _ := s.Stage(action.DeleteRepo{RepoName: "x"}, "", 0)
	_, err := s.Confirm(a.ID, 0)
	require.NoError(t, err)

	_, replaced := s.Stage(action.DeleteRepo{RepoName: "y"}, "", 2)
	assert.Nil(t, replaced)
}
