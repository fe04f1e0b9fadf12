package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"gitbrand/internal/assistant"
	"gitbrand/internal/auth"
	"gitbrand/internal/pending"
)

const (
	busyText      = "⏳ Still working on your previous request."
	nothingText   = "Nothing is waiting for confirmation."
	staleText     = "That action is no longer current. Ask again if you still want it."
	accessPending = "Your access request was sent to the administrator. I will let you know once it is approved."
	accessWaiting = "Your access request is still waiting for the administrator."
)

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	log := b.log.WithField("user_id", msg.From.ID)
	if !b.authSvc.IsAllowed(msg.From.ID) {
		log.WithField("username", msg.From.UserName).Warn("unauthorized access attempt")
		user := auth.User{ID: msg.From.ID, Username: msg.From.UserName, FirstName: msg.From.FirstName, LastName: msg.From.LastName}
		if !b.authSvc.Request(user) {
			b.sendMessage(msg.Chat.ID, accessWaiting)
			return
		}
		b.sendMessage(msg.Chat.ID, accessPending)
		b.notifyAdminRequest(user)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	log.WithField("text", msg.Text).Debug("incoming message")
	b.typing(msg.Chat.ID)

	reply, err := b.session(msg.Chat.ID).Send(ctx, msg.Text)
	if errors.Is(err, assistant.ErrBusy) {
		b.sendMessage(msg.Chat.ID, busyText)
		return
	}
	if err != nil {
		log.WithError(err).Error("turn failed")
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong.")
		return
	}
	if reply.Replaced != nil {
		b.clearKeyboard(msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, "🚫 Dropped the unconfirmed action: "+reply.Replaced.Command.Summary())
	}
	if reply.Text == "" {
		return
	}
	b.sendReply(msg.Chat.ID, reply.Text, reply.Action)
}

func (b *Bot) typing(chatID int64) {
	if _, err := b.s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.WithError(err).Debug("failed to send chat action")
	}
}

func (b *Bot) notifyAdminRequest(user auth.User) {
	adminID := b.authSvc.AdminID()
	if adminID == 0 {
		return
	}
	text := fmt.Sprintf("User @%s (id %d) asks for access to the bot", user.Username, user.ID)
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("approve", approvePrefix+strconv.FormatInt(user.ID, 10)),
			tgbotapi.NewInlineKeyboardButtonData("deny", denyPrefix+strconv.FormatInt(user.ID, 10)),
		),
	)
	msg := b.newMessage(adminID, text)
	msg.ReplyMarkup = kb
	if _, err := b.s.Send(msg); err != nil {
		b.log.WithError(err).Warn("failed to notify admin")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.WithError(err).Debug("failed to answer callback")
	}
	if cb.Message == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(cb.Data, approvePrefix), strings.HasPrefix(cb.Data, denyPrefix):
		if !b.authSvc.IsAdmin(cb.From.ID) {
			return
		}
		if id, ok := strings.CutPrefix(cb.Data, approvePrefix); ok {
			uid, _ := strconv.ParseInt(id, 10, 64)
			b.approveUser(chatID, uid)
			return
		}
		uid, _ := strconv.ParseInt(strings.TrimPrefix(cb.Data, denyPrefix), 10, 64)
		b.denyUser(chatID, uid)
	case !b.authSvc.IsAllowed(cb.From.ID):
		return
	case strings.HasPrefix(cb.Data, confirmPrefix):
		b.confirm(ctx, chatID, strings.TrimPrefix(cb.Data, confirmPrefix))
	case strings.HasPrefix(cb.Data, cancelPrefix):
		b.cancel(chatID, strings.TrimPrefix(cb.Data, cancelPrefix))
	}
}

// confirm runs the pending action with id, or whatever is pending when id is
// empty. Status messages reach the chat as the executor emits them.
func (b *Bot) confirm(ctx context.Context, chatID int64, id string) {
	sess, ok := b.lookupSession(chatID)
	if !ok {
		b.clearKeyboard(chatID)
		b.sendMessage(chatID, nothingText)
		return
	}
	b.clearKeyboard(chatID)
	a, err := sess.Confirm(ctx, id, func(status string) {
		b.sendMessage(chatID, status)
	})
	switch {
	case err == nil:
		b.log.WithFields(logrus.Fields{"chat_id": chatID, "action_id": a.ID, "status": a.Status}).Info("action finished")
	case errors.Is(err, assistant.ErrBusy):
		b.sendMessage(chatID, busyText)
	case errors.Is(err, pending.ErrNoPending):
		b.sendMessage(chatID, nothingText)
	case errors.Is(err, pending.ErrNotAwaiting):
		b.sendMessage(chatID, "That action is already running.")
	default:
		b.sendMessage(chatID, staleText)
	}
}

func (b *Bot) cancel(chatID int64, id string) {
	b.clearKeyboard(chatID)
	sess, ok := b.lookupSession(chatID)
	if !ok {
		b.sendMessage(chatID, nothingText)
		return
	}
	cur, ok := sess.Pending()
	if !ok || cur.Status != pending.StatusAwaiting {
		b.sendMessage(chatID, nothingText)
		return
	}
	if id != "" && cur.ID != id {
		b.sendMessage(chatID, staleText)
		return
	}
	a, _ := sess.Cancel()
	b.sendMessage(chatID, "🚫 Cancelled: "+a.Command.Summary())
}

func (b *Bot) approveUser(chatID, userID int64) {
	u, err := b.authSvc.Approve(userID)
	if err != nil {
		b.sendMessage(chatID, fmt.Sprintf("Cannot approve %d: %v", userID, err))
		return
	}
	b.log.WithField("user_id", userID).Info("access approved")
	b.sendMessage(chatID, fmt.Sprintf("User %d (@%s) approved", u.ID, u.Username))
	b.sendMessage(u.ID, "✅ Access granted. Say hi!")
}

func (b *Bot) denyUser(chatID, userID int64) {
	u, err := b.authSvc.Deny(userID)
	if err != nil {
		b.sendMessage(chatID, fmt.Sprintf("Cannot deny %d: %v", userID, err))
		return
	}
	b.log.WithField("user_id", userID).Info("access denied")
	b.sendMessage(chatID, fmt.Sprintf("User %d (@%s) denied", u.ID, u.Username))
	b.sendMessage(u.ID, "Access denied by the administrator.")
}
