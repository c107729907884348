package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutribudget"
	"nutribudget/intake"
	"nutribudget/planner"
	"nutribudget/prices"
	"nutribudget/session"
	"nutribudget/validate"
)

type fakeSender struct {
	mu      sync.Mutex
	texts   []string
	actions int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.texts = append(f.texts, m.Text)
	case tgbotapi.ChatActionConfig:
		f.actions++
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func newTestBot(t *testing.T, allowed string) (*Bot, *fakeSender, *session.Service) {
	t.Helper()
	svc := session.NewService(
		session.NewStore(100, time.Hour),
		intake.NewCollector(nil, 0),
		prices.NewOracle(nil),
		planner.NewGenerator(nil),
		validate.New(),
	)
	api := &fakeSender{}
	bot, err := NewBot(api, svc, allowed)
	require.NoError(t, err)
	return bot, api, svc
}

func textUpdate(chatID, userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: userID},
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestNewBot_AllowedUsers(t *testing.T) {
	_, err := NewBot(&fakeSender{}, nil, "12, 34")
	assert.NoError(t, err)

	_, err = NewBot(&fakeSender{}, nil, "12,abc")
	assert.ErrorContains(t, err, `invalid telegram user id "abc"`)
}

func TestHandleUpdate_Conversation(t *testing.T) {
	bot, api, svc := newTestBot(t, "")
	ctx := context.Background()

	bot.HandleUpdate(ctx, textUpdate(42, 7, "/start"))
	assert.Contains(t, api.last(), "budget")

	for _, turn := range []string{"$75", "4", "Chicago", "none", "none"} {
		bot.HandleUpdate(ctx, textUpdate(42, 7, turn))
	}
	sess, err := svc.Store().Get(SessionID(42))
	require.NoError(t, err)
	assert.Equal(t, intake.AwaitingConfirmation, sess.Stage())

	bot.HandleUpdate(ctx, textUpdate(42, 7, "yes"))
	assert.Equal(t, intake.Complete, sess.Stage())

	plan := api.last()
	assert.Contains(t, plan, "📅 Monday")
	assert.Contains(t, plan, "📅 Sunday")
	assert.Contains(t, plan, "🛒 Grocery list")
	assert.Contains(t, plan, "Total: $")
	assert.Greater(t, api.actions, 0)

	bot.HandleUpdate(ctx, textUpdate(42, 7, "/status"))
	assert.Contains(t, api.last(), "Stage: COMPLETE")
}

func TestHandleUpdate_Reset(t *testing.T) {
	bot, api, svc := newTestBot(t, "")
	ctx := context.Background()

	bot.HandleUpdate(ctx, textUpdate(5, 1, "$50"))
	require.Equal(t, 1, svc.Store().Len())

	bot.HandleUpdate(ctx, textUpdate(5, 1, "/reset"))
	assert.Equal(t, 0, svc.Store().Len())
	assert.Contains(t, api.last(), "Starting over")

	bot.HandleUpdate(ctx, textUpdate(5, 1, "/status"))
	assert.Contains(t, api.last(), "No conversation yet")
}

func TestHandleUpdate_Unauthorized(t *testing.T) {
	bot, api, svc := newTestBot(t, "99")

	bot.HandleUpdate(context.Background(), textUpdate(5, 1, "hi"))
	assert.Empty(t, api.texts)
	assert.Equal(t, 0, svc.Store().Len())

	bot.HandleUpdate(context.Background(), textUpdate(5, 99, "hi"))
	assert.NotEmpty(t, api.texts)
}

func TestHandleUpdate_IgnoresNonMessages(t *testing.T) {
	bot, api, _ := newTestBot(t, "")
	bot.HandleUpdate(context.Background(), tgbotapi.Update{})
	assert.Empty(t, api.texts)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want []string
	}{
		{name: "short", text: "hello", n: 10, want: []string{"hello"}},
		{name: "line boundary", text: "aaaa\nbbbb\ncc", n: 10, want: []string{"aaaa\nbbbb", "cc"}},
		{name: "no newline", text: "abcdefgh", n: 3, want: []string{"abc", "def", "gh"}},
		{name: "empty", text: "", n: 3, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, split(tt.text, tt.n))
		})
	}
}

func TestFormatPlan(t *testing.T) {
	plan := nutribudget.MealPlan{
		Days: []nutribudget.DayPlan{{
			Day:  1,
			Name: "Monday",
			Meals: map[nutribudget.MealSlot]nutribudget.Meal{
				nutribudget.Breakfast: {Name: "Oatmeal", Cost: 0.48},
			},
		}},
		GroceryList: []nutribudget.GroceryItem{{Name: "Oats", Quantity: 1.12, Unit: "container", Cost: 3.35, Store: "Aldi"}},
		Summary:     nutribudget.WeeklySummary{TotalCost: 80, Budget: 75, BudgetUtilization: 1.0667},
		OverBudget:  true,
	}

	want := "📅 Monday\n" +
		"  breakfast: Oatmeal ($0.48)\n" +
		"\n🛒 Grocery list\n" +
		"  Oats: 1.12 container, $3.35 at Aldi\n" +
		"\nTotal: $80.00 of $75.00 (106.7%) ⚠️ over budget"
	assert.Equal(t, want, FormatPlan(plan))
}
