package telegram

import (
	"context"
	"html"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"gitbrand/internal/assistant"
	"gitbrand/internal/auth"
	"gitbrand/internal/catalog"
	"gitbrand/internal/github"
	"gitbrand/internal/pending"
	"gitbrand/internal/settings"
	"gitbrand/internal/storage"
	"gitbrand/internal/studio"
)

const (
	confirmPrefix = "confirm:"
	cancelPrefix  = "cancel:"
	approvePrefix = "approve:"
	denyPrefix    = "deny:"

	// Telegram rejects longer messages. Counted in UTF-16 units of the
	// escaped text.
	maxMessageLen = 4096
)

// ProfileSource reads the account's public profile.
type ProfileSource interface {
	GetProfile(ctx context.Context) *github.Profile
}

// Deps are the services the bot front end drives.
type Deps struct {
	Auth      *auth.Service
	Sessions  *assistant.Manager
	Settings  *settings.Settings
	Catalog   *catalog.Catalog
	Studio    *studio.Studio
	Profiles  ProfileSource
	Journal   storage.Recorder
	ParseMode string
	Log       logrus.FieldLogger
}

type Bot struct {
	api       *tgbotapi.BotAPI
	s         sender
	authSvc   *auth.Service
	sessions  *assistant.Manager
	settings  *settings.Settings
	catalog   *catalog.Catalog
	studio    *studio.Studio
	profiles  ProfileSource
	journal   storage.Recorder
	parseMode string
	log       logrus.FieldLogger

	mu sync.Mutex
	// message carrying the live confirm/cancel buttons, per chat
	keyboards map[int64]int
}

func New(botToken string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	b := newBot(botAPISender{api: api}, deps)
	b.api = api
	return b, nil
}

func newBot(s sender, deps Deps) *Bot {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	journal := deps.Journal
	if journal == nil {
		journal = storage.Discard{}
	}
	return &Bot{
		s:         s,
		authSvc:   deps.Auth,
		sessions:  deps.Sessions,
		settings:  deps.Settings,
		catalog:   deps.Catalog,
		studio:    deps.Studio,
		profiles:  deps.Profiles,
		journal:   journal,
		parseMode: deps.ParseMode,
		log:       log.WithField("component", "telegram"),
		keyboards: make(map[int64]int),
	}
}

// Start polls for updates until ctx is cancelled. Each update is handled on
// its own goroutine; sessions reject overlapping turns themselves.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.WithField("account", b.api.Self.UserName).Info("bot started")

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) session(chatID int64) *assistant.Session {
	return b.sessions.Get(strconv.FormatInt(chatID, 10))
}

func (b *Bot) lookupSession(chatID int64) (*assistant.Session, bool) {
	return b.sessions.Lookup(strconv.FormatInt(chatID, 10))
}

func (b *Bot) parseModeValue() string {
	return b.parseMode
}

func (b *Bot) escapeIfNeeded(text string) string {
	switch b.parseMode {
	case tgbotapi.ModeHTML:
		return html.EscapeString(text)
	case tgbotapi.ModeMarkdownV2:
		return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
	default:
		return text
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// fit escapes text for the parse mode and cuts it so the escaped form stays
// within the message limit. Escape sequences are never split.
func (b *Bot) fit(text string) string {
	escaped := b.escapeIfNeeded(text)
	if utf16Len(escaped) <= maxMessageLen {
		return escaped
	}
	const ellipsis = "…"
	budget := maxMessageLen - utf16Len(ellipsis)
	var out strings.Builder
	for _, r := range text {
		esc := b.escapeIfNeeded(string(r))
		w := utf16Len(esc)
		if w > budget {
			break
		}
		budget -= w
		out.WriteString(esc)
	}
	return out.String() + ellipsis
}

func (b *Bot) newMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, b.fit(text))
	msg.ParseMode = b.parseModeValue()
	return msg
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.s.Send(b.newMessage(chatID, text)); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("failed to send message")
	}
}

// sendReply shows an assistant message. With a staged action the message
// gets the confirm/cancel buttons and older buttons in the chat go away.
func (b *Bot) sendReply(chatID int64, text string, a *pending.Action) {
	b.clearKeyboard(chatID)
	if a != nil {
		text += "\n\n⚠️ Awaiting confirmation: " + a.Command.Summary()
	}
	msg := b.newMessage(chatID, text)
	if a != nil {
		msg.ReplyMarkup = actionKeyboard(a.ID)
	}
	sent, err := b.s.Send(msg)
	if err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("failed to send reply")
		return
	}
	if a != nil {
		b.mu.Lock()
		b.keyboards[chatID] = sent.MessageID
		b.mu.Unlock()
	}
}

// clearKeyboard strips the buttons from the last action message in the chat.
func (b *Bot) clearKeyboard(chatID int64) {
	b.mu.Lock()
	id, ok := b.keyboards[chatID]
	delete(b.keyboards, chatID)
	b.mu.Unlock()
	if !ok {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, id, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.s.Request(edit); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Debug("failed to clear keyboard")
	}
}

func actionKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", confirmPrefix+id),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cancelPrefix+id),
		),
	)
}
