// Package telegram runs the chat flow over a Telegram long-polling bot. Each chat is
// its own session.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nutribudget"
	"nutribudget/session"
)

// maxMessageLen is Telegram's limit for a single text message.
const maxMessageLen = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api     sender
	svc     *session.Service
	allowed map[int64]bool
}

// NewBot wraps an API client. allowedUsers is a comma-separated id list; empty allows all.
func NewBot(api sender, svc *session.Service, allowedUsers string) (*Bot, error) {
	allowed := map[int64]bool{}
	for _, raw := range strings.Split(allowedUsers, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram user id %q: %w", raw, err)
		}
		allowed[id] = true
	}
	return &Bot{api: api, svc: svc, allowed: allowed}, nil
}

// Run long-polls for updates until ctx is done. Messages are handled concurrently; the
// session turn lock serializes messages within a chat.
func Run(ctx context.Context, api *tgbotapi.BotAPI, bot *Bot, timeout int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	updates := api.GetUpdatesChan(u)
	slog.Info("SETUP: Telegram bot polling", "account", api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go bot.HandleUpdate(ctx, update)
		}
	}
}

// SessionID maps a chat to its session.
func SessionID(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if len(b.allowed) > 0 && (msg.From == nil || !b.allowed[msg.From.ID]) {
		slog.Warn("TELEGRAM: Unauthorized message", "chat_id", msg.Chat.ID)
		return
	}

	chatID := msg.Chat.ID
	id := SessionID(chatID)

	switch msg.Command() {
	case "start":
		b.svc.Store().Delete(id)
		b.submit(ctx, chatID, id, "start")
	case "reset":
		b.svc.Store().Delete(id)
		b.reply(chatID, "Starting over. Send /start when you are ready.")
	case "status":
		b.status(ctx, chatID, id)
	default:
		b.submit(ctx, chatID, id, msg.Text)
	}
}

func (b *Bot) submit(ctx context.Context, chatID int64, id, text string) {
	if _, err := b.api.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.Debug("TELEGRAM: Chat action failed", "chat_id", chatID, "error", err)
	}

	res, err := b.svc.SubmitMessage(ctx, id, text)
	if errors.Is(err, nutribudget.ErrSessionBusy) {
		b.reply(chatID, "⏳ Still working on your meal plan. Send /status to check progress.")
		return
	}
	if err != nil {
		slog.Error("TELEGRAM: Submit failed", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	b.reply(chatID, res.Reply)
	if res.ReadyForMealPlan && res.Plan != nil {
		b.reply(chatID, FormatPlan(*res.Plan))
	}
}

func (b *Bot) status(ctx context.Context, chatID int64, id string) {
	res, err := b.svc.PollActivity(ctx, id, 0)
	if err != nil {
		b.reply(chatID, "No conversation yet. Send /start to begin.")
		return
	}
	if len(res.Entries) == 0 {
		b.reply(chatID, fmt.Sprintf("Stage: %s", res.Stage))
		return
	}
	last := res.Entries[len(res.Entries)-1]
	b.reply(chatID, fmt.Sprintf("Stage: %s\n%s", res.Stage, last.Message))
}

func (b *Bot) reply(chatID int64, text string) {
	for _, chunk := range split(text, maxMessageLen) {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			slog.Error("TELEGRAM: Send failed", "chat_id", chatID, "error", err)
			return
		}
	}
}

// split breaks text into chunks of at most n bytes, preferring line boundaries.
func split(text string, n int) []string {
	var chunks []string
	for len(text) > n {
		cut := strings.LastIndexByte(text[:n], '\n')
		if cut <= 0 {
			cut = n
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// FormatPlan renders the full week and grocery list as plain text.
func FormatPlan(plan nutribudget.MealPlan) string {
	var b strings.Builder
	for _, day := range plan.Days {
		fmt.Fprintf(&b, "📅 %s\n", day.Name)
		for _, slot := range nutribudget.MealSlots {
			meal, ok := day.Meals[slot]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s ($%.2f)\n", slot, meal.Name, meal.Cost)
		}
	}

	if len(plan.GroceryList) > 0 {
		b.WriteString("\n🛒 Grocery list\n")
		for _, g := range plan.GroceryList {
			fmt.Fprintf(&b, "  %s: %.2f %s, $%.2f at %s\n", g.Name, g.Quantity, g.Unit, g.Cost, g.Store)
		}
	}

	s := plan.Summary
	fmt.Fprintf(&b, "\nTotal: $%.2f of $%.2f (%.1f%%)", s.TotalCost, s.Budget, s.UtilizationPercent())
	if plan.OverBudget {
		b.WriteString(" ⚠️ over budget")
	}
	return b.String()
}
