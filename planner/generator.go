// Package planner turns a confirmed profile and a priced ingredient list into a
// 7-day meal plan, using a generation capability when one is available and a
// deterministic rule-based plan otherwise.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nutribudget"
	"nutribudget/activity"
)

const (
	defaultMaxRetries      = 2
	defaultGenerateTimeout = 30 * time.Second
	maxLoggedOutput        = 4000
	generationPhase        = "generate"
)

type Generator struct {
	gen        nutribudget.Generator
	logger     nutribudget.GenerationLogger
	maxRetries int
	timeout    time.Duration
}

type Option func(*Generator)

func WithLogger(l nutribudget.GenerationLogger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMaxRetries sets how many extra attempts are made for days still missing after
// the first request.
func WithMaxRetries(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// NewGenerator creates a plan generator. gen may be nil, in which case every plan is
// the rule-based fallback.
func NewGenerator(gen nutribudget.Generator, opts ...Option) *Generator {
	g := &Generator{
		gen:        gen,
		logger:     nutribudget.NewNoOpGenerationLogger(),
		maxRetries: defaultMaxRetries,
		timeout:    defaultGenerateTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds an unvalidated plan. Restrictions are applied to ingredients before
// anything else. The returned error is ErrUnrecoverablePlan only when no ingredient is
// left to plan with.
func (g *Generator) Generate(ctx context.Context, profile nutribudget.Profile, ingredients []nutribudget.PricedIngredient, log *activity.Log) (nutribudget.MealPlan, error) {
	allowed, _ := Filter(ingredients, profile.DietaryRestrictions)
	if len(allowed) == 0 {
		return nutribudget.MealPlan{}, fmt.Errorf("%w: every ingredient is ruled out by the dietary restrictions", nutribudget.ErrUnrecoverablePlan)
	}
	allowed = Boost(allowed, profile.FoodPreferences)

	log.Appendf("🍳 Generating a 7-day meal plan for %d from %d ingredients", profile.HouseholdSize, len(allowed))

	if g.gen != nil {
		plan, err := g.generate(ctx, profile, allowed, log)
		if err == nil {
			return plan, nil
		}
		slog.Warn("PLANNER: Generation exhausted, using fallback plan", "error", err)
	} else {
		slog.Info("PLANNER: No generation capability, using fallback plan")
	}

	log.Append("📋 Using a simple budget meal plan built from the available ingredients")
	plan, _ := BuildFallback(profile, allowed)
	return plan, nil
}

// generate asks for all days, then re-asks only for the days still missing, merging
// results by day number.
func (g *Generator) generate(ctx context.Context, profile nutribudget.Profile, allowed []nutribudget.PricedIngredient, log *activity.Log) (nutribudget.MealPlan, error) {
	days := map[int]nutribudget.DayPlan{}
	var tips, storage []string
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		missing := missingDays(days)
		if len(missing) == 0 {
			break
		}
		if ctx.Err() != nil {
			return nutribudget.MealPlan{}, fmt.Errorf("%w: %v", nutribudget.ErrCapabilityUnavailable, ctx.Err())
		}
		if attempt > 0 {
			log.Appendf("🔄 Re-requesting %s (attempt %d of %d)", describeDays(missing), attempt+1, g.maxRetries+1)
		}

		parsed, err := g.attempt(ctx, profile, allowed, missing, attempt+1)
		if err != nil {
			lastErr = err
			slog.Warn("PLANNER: Attempt failed", "attempt", attempt+1, "days", missing, "error", err)
			continue
		}
		for n, d := range parsed.days {
			days[n] = d
		}
		if len(tips) == 0 {
			tips = parsed.cookingTips
		}
		if len(storage) == 0 {
			storage = parsed.storageAdvice
		}
		slog.Info("PLANNER: Attempt parsed", "attempt", attempt+1, "requested", len(missing), "received", len(parsed.days))
	}

	if missing := missingDays(days); len(missing) > 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("%w: still missing %s", nutribudget.ErrCapabilityUnavailable, describeDays(missing))
		}
		return nutribudget.MealPlan{}, lastErr
	}

	plan := nutribudget.MealPlan{
		Days:          make([]nutribudget.DayPlan, 0, nutribudget.PlanDays),
		CookingTips:   tips,
		StorageAdvice: storage,
		Source:        nutribudget.PlanGenerated,
		Summary: nutribudget.WeeklySummary{
			HouseholdSize: profile.HouseholdSize,
			Location:      profile.Location,
			Budget:        profile.WeeklyBudget,
		},
	}
	for n := 1; n <= nutribudget.PlanDays; n++ {
		plan.Days = append(plan.Days, days[n])
	}
	if len(plan.CookingTips) == 0 {
		plan.CookingTips = append([]string(nil), fallbackTips...)
	}
	if len(plan.StorageAdvice) == 0 {
		plan.StorageAdvice = append([]string(nil), fallbackStorage...)
	}
	return plan, nil
}

func (g *Generator) attempt(ctx context.Context, profile nutribudget.Profile, allowed []nutribudget.PricedIngredient, days []int, n int) (parsedPlan, error) {
	prompt, err := buildPrompt(profile, allowed, days)
	if err != nil {
		return parsedPlan{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	entry := nutribudget.AttemptLog{
		Phase:       generationPhase,
		Attempt:     n,
		Timestamp:   time.Now(),
		Days:        days,
		PromptBytes: len(prompt),
	}

	out, err := g.gen.Generate(ctx, prompt, Schema())
	if err != nil {
		err = fmt.Errorf("%w: %v", nutribudget.ErrCapabilityUnavailable, err)
		entry.Error = err.Error()
		g.logAttempt(entry)
		return parsedPlan{}, err
	}
	entry.Output = truncate(out, maxLoggedOutput)

	parsed, err := parsePlan(out, days)
	switch {
	case err != nil:
		entry.Error = err.Error()
	case len(parsed.days) < len(days):
		entry.Error = fmt.Sprintf("received %d of %d requested days", len(parsed.days), len(days))
	}
	g.logAttempt(entry)
	return parsed, err
}

func (g *Generator) logAttempt(entry nutribudget.AttemptLog) {
	if err := g.logger.LogAttempt(entry); err != nil {
		slog.Warn("PLANNER: Failed to record attempt", "error", err)
	}
}

func missingDays(days map[int]nutribudget.DayPlan) []int {
	var missing []int
	for n := 1; n <= nutribudget.PlanDays; n++ {
		if _, ok := days[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

func describeDays(days []int) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = nutribudget.DayNames[d-1]
	}
	if len(days) == 1 {
		return "1 missing day: " + names[0]
	}
	return fmt.Sprintf("%d missing days: %s", len(days), strings.Join(names, ", "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
