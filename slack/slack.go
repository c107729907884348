// Package slack posts finished meal plans to a Slack incoming webhook.
package slack

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"nutribudget"
)

type Client struct {
	webhookURL string
	httpClient nutribudget.HTTPClient
}

func NewClient(webhookURL string, httpClient nutribudget.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}
	return nil
}

// Notifier announces each completed plan on a channel.
type Notifier struct {
	client  *Client
	channel string
}

func NewNotifier(client *Client, channel string) *Notifier {
	return &Notifier{client: client, channel: channel}
}

func (n *Notifier) HandlePlan(ctx context.Context, sessionID string, plan nutribudget.MealPlan) error {
	return n.client.PostMessage(ctx, n.channel, FormatPlan(sessionID, plan))
}

// FormatPlan renders a short mrkdwn summary: totals, the first day's meals and the
// five most expensive groceries.
func FormatPlan(sessionID string, plan nutribudget.MealPlan) string {
	s := plan.Summary
	var b strings.Builder

	fmt.Fprintf(&b, "*New meal plan* for household of %d", s.HouseholdSize)
	if s.Location != "" {
		fmt.Fprintf(&b, " in %s", s.Location)
	}
	fmt.Fprintf(&b, " (session `%s`)\n", sessionID)
	fmt.Fprintf(&b, "Total: $%.2f of $%.2f (%.1f%%)", s.TotalCost, s.Budget, s.UtilizationPercent())
	if plan.OverBudget {
		b.WriteString(" :warning: over budget")
	}
	if plan.Source == nutribudget.PlanFallback {
		b.WriteString(" _budget fallback_")
	}
	b.WriteString("\n")

	if len(plan.Days) > 0 {
		day := plan.Days[0]
		fmt.Fprintf(&b, "*%s*\n", day.Name)
		for _, slot := range nutribudget.MealSlots {
			if meal, ok := day.Meals[slot]; ok {
				fmt.Fprintf(&b, "• %s: %s ($%.2f)\n", slot, meal.Name, meal.Cost)
			}
		}
	}

	top := topGroceries(plan.GroceryList, 5)
	if len(top) > 0 {
		b.WriteString("*Biggest groceries*\n")
		for _, g := range top {
			fmt.Fprintf(&b, "• %s %.2f %s $%.2f\n", g.Name, g.Quantity, g.Unit, g.Cost)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func topGroceries(items []nutribudget.GroceryItem, n int) []nutribudget.GroceryItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b nutribudget.GroceryItem) int {
		return cmp.Compare(b.Cost, a.Cost)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
