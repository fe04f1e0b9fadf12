package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"gitbrand/internal/history"
)

const (
	MissingKeyReply  = "API Key missing. Please check Settings."
	chatErrorPrefix  = "Chat error: "
	draftErrorPrefix = "Error: "
)

// Credentials supplies the provider selection and API key at call time.
type Credentials interface {
	Provider() string
	APIKey() string
}

// Persona renders the system prompt for a chat turn.
type Persona func(ctx context.Context) string

// StaticPersona always returns prompt.
func StaticPersona(prompt string) Persona {
	return func(context.Context) string { return prompt }
}

type clientFactory interface {
	CreateClient(ctx context.Context, provider, apiKey string) (Client, error)
}

// Chat is the fail-open text generator used by the front ends: it never
// returns an error, only text that can be shown to the user.
type Chat struct {
	factory clientFactory
	creds   Credentials
	system  Persona
	log     logrus.FieldLogger

	mu       sync.Mutex
	cacheKey string
	client   Client
}

func NewChat(factory clientFactory, creds Credentials, system Persona, log logrus.FieldLogger) *Chat {
	return &Chat{
		factory: factory,
		creds:   creds,
		system:  system,
		log:     log.WithField("component", "llm"),
	}
}

// Reply answers the conversation so far. The system prompt is rendered for
// every call and prepended.
func (c *Chat) Reply(ctx context.Context, turns []history.Turn) string {
	msgs := make([]Message, 0, len(turns)+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: c.system(ctx)})
	for _, t := range turns {
		role := RoleUser
		if t.Role == history.RoleAssistant {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: t.Content})
	}
	return c.generate(ctx, msgs, chatErrorPrefix)
}

// Draft runs a single prompt under its own persona, for long-form copy.
func (c *Chat) Draft(ctx context.Context, persona, prompt string) string {
	return c.generate(ctx, []Message{
		{Role: RoleSystem, Content: persona},
		{Role: RoleUser, Content: prompt},
	}, draftErrorPrefix)
}

func (c *Chat) generate(ctx context.Context, msgs []Message, errPrefix string) string {
	client, err := c.current(ctx)
	if errors.Is(err, ErrMissingKey) {
		return MissingKeyReply
	}
	if err != nil {
		c.log.WithError(err).Warn("llm client unavailable")
		return errPrefix + err.Error()
	}
	resp, err := client.Generate(ctx, msgs)
	if err != nil {
		c.log.WithError(err).Warn("generation failed")
		return errPrefix + err.Error()
	}
	c.log.WithFields(logrus.Fields{
		"model":             resp.Model,
		"prompt_tokens":     resp.PromptTokens,
		"completion_tokens": resp.CompletionTokens,
	}).Debug("generation done")
	return resp.Content
}

// current returns a client for the present credentials, rebuilding it when
// provider or key changed since the last call.
func (c *Chat) current(ctx context.Context) (Client, error) {
	provider, key := c.creds.Provider(), c.creds.APIKey()
	if key == "" {
		return nil, ErrMissingKey
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cacheKey := provider + "\x00" + key
	if c.client != nil && c.cacheKey == cacheKey {
		return c.client, nil
	}
	client, err := c.factory.CreateClient(ctx, provider, key)
	if err != nil {
		return nil, err
	}
	c.client, c.cacheKey = client, cacheKey
	return client, nil
}

// IsFailure reports whether text is a fail-open apology rather than generated
// content.
func IsFailure(text string) bool {
	return text == MissingKeyReply ||
		strings.HasPrefix(text, chatErrorPrefix) ||
		strings.HasPrefix(text, draftErrorPrefix)
}
