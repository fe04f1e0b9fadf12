// Package assistant runs conversations: it sends user turns to the text
// generator, stages the commands found in replies and executes them once the
// user confirms.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gitbrand/internal/action"
	"gitbrand/internal/executor"
	"gitbrand/internal/history"
	"gitbrand/internal/pending"
	"gitbrand/internal/storage"
)

// State is where a session is in its turn cycle.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingReply State = "awaiting_reply"
	StateExecuting     State = "executing"
)

// statusCancelled is journalled when an action is dropped unexecuted.
const statusCancelled = "cancelled"

// ErrBusy is returned when a request arrives while a reply or an execution
// is still outstanding.
var ErrBusy = errors.New("assistant is busy with the previous request")

// Generator produces the assistant's reply to the transcript. It never fails;
// problems come back as displayable text.
type Generator interface {
	Reply(ctx context.Context, turns []history.Turn) string
}

// Runner executes a confirmed command, reporting progress through emit.
type Runner interface {
	Run(ctx context.Context, cmd action.Command, emit executor.Emit) error
}

// Reply is the outcome of one user turn.
type Reply struct {
	// Text is the assistant turn as appended to the transcript.
	Text string
	// Action is the command staged by this reply, if any.
	Action *pending.Action
	// Replaced is an unconfirmed action this turn made unreachable.
	Replaced *pending.Action
}

// Session is one conversation with its transcript and pending action slot.
type Session struct {
	id      string
	gen     Generator
	runner  Runner
	journal storage.Recorder
	timeout time.Duration
	log     logrus.FieldLogger

	mu      sync.Mutex
	state   State
	turns   *history.Log
	pending *pending.Store
}

type Option func(*Session)

// WithTimeout bounds each generation and each execution.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

func WithJournal(r storage.Recorder) Option {
	return func(s *Session) { s.journal = r }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) { s.log = l }
}

// NewSession starts a conversation whose transcript opens with seed.
func NewSession(id, seed string, gen Generator, runner Runner, opts ...Option) *Session {
	s := &Session{
		id:      id,
		gen:     gen,
		runner:  runner,
		journal: storage.Discard{},
		log:     logrus.StandardLogger(),
		state:   StateIdle,
		turns:   history.NewLog(seed),
		pending: pending.NewStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "assistant", "session": id})
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Turns() []history.Turn { return s.turns.Turns() }

// Pending returns the action awaiting confirmation, if any.
func (s *Session) Pending() (pending.Action, bool) { return s.pending.Current() }

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// Send runs one user turn. Blank input is ignored and yields a zero Reply.
// A pending action that was never confirmed does not survive the turn.
func (s *Session) Send(ctx context.Context, text string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, nil
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return Reply{}, ErrBusy
	}
	s.state = StateAwaitingReply
	var reply Reply
	if prev, ok := s.pending.Cancel(); ok && prev.Status == pending.StatusAwaiting {
		reply.Replaced = &prev
		s.record(storage.Event{Kind: storage.KindAction, ActionID: prev.ID, Verb: string(prev.Command.Verb()), Status: statusCancelled})
	}
	s.turns.AppendUser(text)
	transcript := s.turns.Turns()
	s.mu.Unlock()

	gctx, cancel := s.withTimeout(ctx)
	raw := s.gen.Reply(gctx, transcript)
	cancel()

	res, perr := action.Parse(raw)
	if perr != nil {
		s.log.WithError(perr).Debug("directive ignored")
	}
	clean := res.Clean
	if clean == "" && res.Command != nil {
		clean = res.Command.Summary()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.turns.AppendAssistant(clean)
	reply.Text = clean
	if res.Command != nil {
		staged, _ := s.pending.Stage(res.Command, res.Raw, idx)
		reply.Action = &staged
		s.record(storage.Event{Kind: storage.KindAction, ActionID: staged.ID, Verb: string(staged.Command.Verb()), Status: string(staged.Status)})
	}
	s.record(storage.Event{Kind: storage.KindTurn, UserMessage: text, AssistantResponse: raw})
	s.state = StateIdle
	return reply, nil
}

// Stage offers cmd for confirmation outside of a generated reply. note is
// appended as an assistant turn and the action is attached to it.
func (s *Session) Stage(cmd action.Command, raw, note string) (staged pending.Action, replaced *pending.Action, err error) {
	if err := cmd.Validate(); err != nil {
		return pending.Action{}, nil, err
	}
	if raw == "" {
		raw = action.Format(cmd)
	}
	if note == "" {
		note = cmd.Summary()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return pending.Action{}, nil, ErrBusy
	}
	idx := s.turns.AppendAssistant(note)
	staged, replaced = s.pending.Stage(cmd, raw, idx)
	s.record(storage.Event{Kind: storage.KindAction, ActionID: staged.ID, Verb: string(cmd.Verb()), Status: string(staged.Status)})
	return staged, replaced, nil
}

// Confirm executes the pending action with the given id, or whatever is
// pending when id is empty. Status messages are appended to the transcript
// and handed to notify as they happen. With nothing pending it returns
// pending.ErrNoPending and changes nothing.
func (s *Session) Confirm(ctx context.Context, id string, notify func(string)) (pending.Action, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return pending.Action{}, ErrBusy
	}
	a, err := s.pending.Confirm(id, s.turns.LastIndex())
	if err != nil {
		s.mu.Unlock()
		return pending.Action{}, err
	}
	a, _ = s.pending.Begin(a.ID)
	s.state = StateExecuting
	s.record(storage.Event{Kind: storage.KindAction, ActionID: a.ID, Verb: string(a.Command.Verb()), Status: string(a.Status)})
	s.mu.Unlock()

	emit := func(msg string) {
		s.turns.AppendAssistant(msg)
		if notify != nil {
			notify(msg)
		}
	}
	ectx, cancel := s.withTimeout(ctx)
	runErr := s.runner.Run(ectx, a.Command, emit)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	final, ok := s.pending.Finish(a.ID, runErr)
	if !ok {
		final = a
		final.Status = pending.StatusDone
		if runErr != nil {
			final.Status = pending.StatusFailed
		}
	}
	ev := storage.Event{Kind: storage.KindAction, ActionID: a.ID, Verb: string(a.Command.Verb()), Status: string(final.Status)}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	s.record(ev)
	s.state = StateIdle
	return final, nil
}

// Cancel drops the pending action without touching the transcript.
func (s *Session) Cancel() (pending.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.pending.Cancel()
	if ok {
		s.record(storage.Event{Kind: storage.KindAction, ActionID: a.ID, Verb: string(a.Command.Verb()), Status: statusCancelled})
	}
	return a, ok
}

// Reset clears the transcript back to its seed turn and drops the pending action.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.pending.Clear()
	s.turns.Reset()
	return nil
}

// record must be called with s.mu held.
func (s *Session) record(ev storage.Event) {
	ev.Timestamp = time.Now().UTC()
	ev.Session = s.id
	if err := s.journal.Append(ev); err != nil {
		s.log.WithError(err).Warn("journal append failed")
	}
}
