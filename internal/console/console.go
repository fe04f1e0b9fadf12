// Package console runs an assistant session as a terminal chat. Lines starting
// with a colon are commands; everything else is a user turn.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"gitbrand/internal/assistant"
	"gitbrand/internal/pending"
)

const help = `:yes     run the pending action
:no      drop the pending action
:reset   start the conversation over
:history show the transcript
:quit    leave`

type REPL struct {
	session *assistant.Session
	in      io.Reader
	out     io.Writer
	log     logrus.FieldLogger
}

func New(session *assistant.Session, in io.Reader, out io.Writer, log logrus.FieldLogger) *REPL {
	return &REPL{session: session, in: in, out: out, log: log.WithField("component", "console")}
}

// Run reads lines until EOF, :quit or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if turns := r.session.Turns(); len(turns) > 0 {
		r.assistant(turns[0].Content)
	}
	fmt.Fprintln(r.out, color.HiBlackString("Type :help for commands."))

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, color.CyanString("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := r.command(ctx, line); quit {
				return nil
			}
			continue
		}
		r.turn(ctx, line)
	}
}

func (r *REPL) command(ctx context.Context, line string) (quit bool) {
	switch strings.ToLower(line) {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Fprintln(r.out, help)
	case ":yes", ":y":
		r.confirm(ctx)
	case ":no", ":n":
		if a, ok := r.session.Cancel(); ok {
			fmt.Fprintf(r.out, "%s Cancelled: %s\n", color.YellowString("✗"), a.Command.Summary())
		} else {
			fmt.Fprintln(r.out, "Nothing is waiting for confirmation.")
		}
	case ":reset":
		if err := r.session.Reset(); err != nil {
			r.failure(err)
			return false
		}
		fmt.Fprintln(r.out, color.GreenString("Conversation reset."))
	case ":history":
		for _, t := range r.session.Turns() {
			fmt.Fprintf(r.out, "%s %s\n", color.HiBlackString("[%s]", t.Role), t.Content)
		}
	default:
		fmt.Fprintf(r.out, "%s Unknown command %s. Try :help\n", color.RedString("✗"), line)
	}
	return false
}

func (r *REPL) turn(ctx context.Context, line string) {
	reply, err := r.session.Send(ctx, line)
	if err != nil {
		r.failure(err)
		return
	}
	if reply.Replaced != nil {
		fmt.Fprintf(r.out, "%s Dropped the unconfirmed action: %s\n", color.YellowString("⚠"), reply.Replaced.Command.Summary())
	}
	r.assistant(reply.Text)
	if reply.Action != nil {
		fmt.Fprintf(r.out, "%s %s\n  %s\n",
			color.YellowString("⚠ Awaiting confirmation:"), reply.Action.Command.Summary(),
			color.HiBlackString("type :yes to run it or :no to drop it"))
	}
}

func (r *REPL) confirm(ctx context.Context) {
	a, err := r.session.Confirm(ctx, "", r.assistant)
	switch {
	case errors.Is(err, pending.ErrNoPending):
		fmt.Fprintln(r.out, "Nothing is waiting for confirmation.")
	case err != nil:
		r.failure(err)
	default:
		r.log.WithFields(logrus.Fields{"action_id": a.ID, "status": a.Status}).Debug("action finished")
	}
}

func (r *REPL) assistant(text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", color.GreenString("gitbrand>"), text)
}

func (r *REPL) failure(err error) {
	fmt.Fprintf(r.out, "%s %v\n", color.RedString("✗"), err)
}
