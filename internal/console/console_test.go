package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitbrand/internal/action"
	"gitbrand/internal/assistant"
	"gitbrand/internal/executor"
	"gitbrand/internal/history"
	"gitbrand/internal/logging"
)

type queue []string

func (q *queue) Reply(_ context.Context, _ []history.Turn) string {
	if len(*q) == 0 {
		return "ok"
	}
	r := (*q)[0]
	*q = (*q)[1:]
	return r
}

type recorder struct{ ran []action.Command }

func (r *recorder) Run(_ context.Context, cmd action.Command, emit executor.Emit) error {
	r.ran = append(r.ran, cmd)
	emit("✅ Repository created.")
	return nil
}

func run(t *testing.T, replies []string, input string) (string, *recorder) {
	t.Helper()
	color.NoColor = true
	q := queue(replies)
	rec := &recorder{}
	log := logging.Discard()
	sess := assistant.NewSession("console", "Hello there.", &q, rec, assistant.WithLogger(log))
	var out bytes.Buffer
	err := New(sess, strings.NewReader(input), &out, log).Run(context.Background())
	require.NoError(t, err)
	return out.String(), rec
}

func TestConfirmRunsAction(t *testing.T) {
	out, rec := run(t,
		[]string{`Creating it. ACTION:CREATE_REPO {"name":"demo","description":"d","private":false}`},
		"make a repo\n:yes\n:quit\n")

	assert.Contains(t, out, "gitbrand> Hello there.")
	assert.Contains(t, out, "gitbrand> Creating it.")
	assert.Contains(t, out, `Awaiting confirmation: Create public repository "demo"`)
	assert.Contains(t, out, "gitbrand> ✅ Repository created.")
	require.Len(t, rec.ran, 1)
	assert.Equal(t, action.CreateRepo{Name: "demo", Description: "d"}, rec.ran[0])
}

func TestNoDropsAction(t *testing.T) {
	out, rec := run(t, []string{`ACTION:DELETE_REPO "old"`}, "delete old\n:no\n:yes\n")

	assert.Contains(t, out, `Cancelled: Delete repository "old"`)
	assert.Contains(t, out, "Nothing is waiting for confirmation.")
	assert.Empty(t, rec.ran)
}

func TestNewTurnWarnsAboutDroppedAction(t *testing.T) {
	out, rec := run(t, []string{`ACTION:UPDATE_BIO "x"`, "Sure."}, "bio x\nnever mind\n:yes\n")

	assert.Contains(t, out, `Dropped the unconfirmed action: Update bio to "x"`)
	assert.Empty(t, rec.ran)
}

func TestResetAndHistory(t *testing.T) {
	out, _ := run(t, []string{"First answer."}, "hi\n:reset\n:history\n:bogus\n")

	assert.Contains(t, out, "Conversation reset.")
	assert.Contains(t, out, "[assistant] Hello there.")
	assert.NotContains(t, out, "[user] hi")
	assert.Contains(t, out, "Unknown command :bogus")
}
