package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gitbrand/internal/analytics"
	"gitbrand/internal/assistant"
	"gitbrand/internal/score"
	"gitbrand/internal/studio"
)

const helpText = `Talk to me about your GitHub presence. When I suggest a change you get Confirm and Cancel buttons; nothing is written until you confirm.

/repos - scan your repositories
/score <repo> - health check for one repository
/profile - profile health check
/readme <repo> [notes] - draft a README narrative to commit
/post <repo> <type> [notes] - draft a social post
/confirm, /cancel - act on the pending action
/reset - start the conversation over
/stats - today's activity
/token, /provider, /apikey, /logout - credentials`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		greeting := ""
		if turns := b.session(chatID).Turns(); len(turns) > 0 {
			greeting = turns[0].Content + "\n\n"
		}
		b.sendMessage(chatID, greeting+helpText)
	case "reset":
		if err := b.session(chatID).Reset(); errors.Is(err, assistant.ErrBusy) {
			b.sendMessage(chatID, busyText)
			return
		}
		b.clearKeyboard(chatID)
		b.sendMessage(chatID, "🧹 Conversation reset.")
	case "confirm":
		b.confirm(ctx, chatID, "")
	case "cancel":
		b.cancel(chatID, "")
	case "repos":
		b.handleRepos(ctx, chatID)
	case "score":
		b.handleScore(ctx, chatID, args)
	case "profile":
		b.handleProfile(ctx, chatID)
	case "readme":
		b.handleReadme(ctx, chatID, args)
	case "post":
		b.handlePost(ctx, chatID, args)
	case "stats":
		b.handleStats(chatID)
	case "token", "provider", "apikey", "logout":
		b.handleCredentials(msg, args)
	case "allowlist", "remove", "pending", "approve", "deny":
		b.handleAdminCommand(msg, args)
	default:
		b.sendMessage(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleRepos(ctx context.Context, chatID int64) {
	b.typing(chatID)
	repos, err := b.catalog.Refresh(ctx)
	if err != nil {
		b.log.WithError(err).Warn("repository scan failed")
		repos = b.catalog.Repos()
		if len(repos) == 0 {
			b.sendMessage(chatID, "❌ "+err.Error())
			return
		}
		b.sendMessage(chatID, "Scan failed, showing the cached list.")
	}
	if len(repos) == 0 {
		b.sendMessage(chatID, "No repositories found.")
		return
	}
	var bld strings.Builder
	fmt.Fprintf(&bld, "📦 %d repositories\n", len(repos))
	for _, r := range repos {
		fmt.Fprintf(&bld, "\n• %s ★%d", r.Name, r.Stars)
		if r.Language != "" {
			fmt.Fprintf(&bld, " [%s]", r.Language)
		}
		if r.Description != "" {
			bld.WriteString(" · " + r.Description)
		}
	}
	b.sendMessage(chatID, bld.String())
}

func (b *Bot) inspect(ctx context.Context, chatID int64, name string) (studio.Inspection, bool) {
	repo, ok := b.catalog.Find(name)
	if !ok {
		b.sendMessage(chatID, fmt.Sprintf("Unknown repository %q. Run /repos to refresh the list.", name))
		return studio.Inspection{}, false
	}
	b.typing(chatID)
	return b.studio.Inspect(ctx, repo), true
}

func (b *Bot) handleScore(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.sendMessage(chatID, "Usage: /score <repo>")
		return
	}
	in, ok := b.inspect(ctx, chatID, strings.Fields(args)[0])
	if !ok {
		return
	}
	b.sendMessage(chatID, formatReport(in.Repo.Name, in.Health))
}

func (b *Bot) handleProfile(ctx context.Context, chatID int64) {
	b.typing(chatID)
	p := b.profiles.GetProfile(ctx)
	report := score.Profile(p, b.settings.AvatarURL())
	title := "Profile"
	if p != nil {
		title = "@" + p.Login
		if p.Bio != "" {
			title += "\n" + p.Bio
		}
	}
	b.sendMessage(chatID, formatReport(title, report))
}

func formatReport(title string, r score.Report) string {
	if r.Pending() {
		return fmt.Sprintf("%s: scanning, try again in a moment.", title)
	}
	var bld strings.Builder
	fmt.Fprintf(&bld, "%s\nGrade %s (%d/100)", title, r.Grade, r.Score)
	for _, f := range r.Flags {
		bld.WriteString("\n• " + f)
	}
	return bld.String()
}

func (b *Bot) handleReadme(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.sendMessage(chatID, "Usage: /readme <repo> [notes]")
		return
	}
	in, ok := b.inspect(ctx, chatID, fields[0])
	if !ok {
		return
	}
	notes := strings.TrimSpace(strings.TrimPrefix(args, fields[0]))
	draft, cmd, err := b.studio.Narrative(ctx, in, notes)
	if err != nil {
		b.sendMessage(chatID, "❌ "+err.Error())
		return
	}
	note := fmt.Sprintf("Drafted a README for %s. Confirm to commit it.", in.Repo.Name)
	staged, replaced, err := b.session(chatID).Stage(cmd, "", note)
	if errors.Is(err, assistant.ErrBusy) {
		b.sendMessage(chatID, busyText)
		return
	}
	if err != nil {
		b.sendMessage(chatID, "❌ "+err.Error())
		return
	}
	if replaced != nil {
		b.sendMessage(chatID, "🚫 Dropped the unconfirmed action: "+replaced.Command.Summary())
	}
	b.sendReply(chatID, draft, &staged)
}

func (b *Bot) handlePost(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.sendMessage(chatID, "Usage: /post <repo> <"+strings.Join(b.studio.PostTypes(), "|")+"> [notes]")
		return
	}
	in, ok := b.inspect(ctx, chatID, fields[0])
	if !ok {
		return
	}
	notes := strings.Join(fields[2:], " ")
	post, err := b.studio.Social(ctx, in, fields[1], notes)
	if err != nil {
		b.sendMessage(chatID, "❌ "+err.Error())
		return
	}
	b.sendMessage(chatID, post)
}

func (b *Bot) handleStats(chatID int64) {
	events, err := b.journal.Load()
	if err != nil {
		b.sendMessage(chatID, "❌ "+err.Error())
		return
	}
	b.sendMessage(chatID, analytics.AnalyzeDay(events, time.Now().UTC()).Summary())
}

// handleCredentials changes stored secrets. Only the admin may do it when one
// is configured, and messages carrying a secret are deleted from the chat.
func (b *Bot) handleCredentials(msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if b.authSvc.AdminID() != 0 && !b.authSvc.IsAdmin(msg.From.ID) {
		b.sendMessage(chatID, "Only the administrator can change credentials.")
		return
	}

	var err error
	switch msg.Command() {
	case "logout":
		err = b.settings.Logout()
		if err == nil {
			b.sendMessage(chatID, "🔒 Credentials cleared.")
		}
	case "provider":
		if args == "" {
			b.sendMessage(chatID, "Current provider: "+b.settings.Provider())
			return
		}
		err = b.settings.SetProvider(args)
		if err == nil {
			b.sendMessage(chatID, "Provider set to "+b.settings.Provider())
		}
	case "token", "apikey":
		b.deleteMessage(chatID, msg.MessageID)
		if args == "" {
			b.sendMessage(chatID, fmt.Sprintf("Usage: /%s <value>", msg.Command()))
			return
		}
		if msg.Command() == "token" {
			err = b.settings.SetGitHubToken(args)
		} else {
			err = b.settings.SetAPIKey(args)
		}
		if err == nil {
			b.sendMessage(chatID, "🔑 Saved. Your message was removed from the chat.")
		}
	}
	if err != nil {
		b.sendMessage(chatID, "❌ "+err.Error())
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.s.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.WithError(err).Debug("failed to delete message")
	}
}

func (b *Bot) handleAdminCommand(msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if !b.authSvc.IsAdmin(msg.From.ID) {
		b.sendMessage(chatID, "This command is for the administrator only.")
		return
	}
	switch msg.Command() {
	case "allowlist":
		var bld strings.Builder
		bld.WriteString("Allowlist:\n")
		for _, u := range b.authSvc.List() {
			bld.WriteString(fmt.Sprintf("- id=%d, @%s %s %s\n", u.ID, u.Username, u.FirstName, u.LastName))
		}
		b.sendMessage(chatID, bld.String())
	case "pending":
		var bld strings.Builder
		bld.WriteString("Access requests:\n")
		for _, u := range b.authSvc.Requests() {
			bld.WriteString(fmt.Sprintf("- id=%d, @%s %s %s\n", u.ID, u.Username, u.FirstName, u.LastName))
		}
		b.sendMessage(chatID, bld.String())
	case "remove", "approve", "deny":
		fields := strings.Fields(args)
		if len(fields) != 1 {
			b.sendMessage(chatID, fmt.Sprintf("Usage: /%s <user_id>", msg.Command()))
			return
		}
		uid, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			b.sendMessage(chatID, "Invalid user_id")
			return
		}
		switch msg.Command() {
		case "approve":
			b.approveUser(chatID, uid)
		case "deny":
			b.denyUser(chatID, uid)
		default:
			if err := b.authSvc.Remove(uid); err != nil {
				b.sendMessage(chatID, fmt.Sprintf("Remove failed: %v", err))
				return
			}
			b.sendMessage(chatID, fmt.Sprintf("User %d removed from the allowlist", uid))
		}
	}
}
