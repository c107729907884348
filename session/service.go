package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nutribudget"
	"nutribudget/activity"
	"nutribudget/intake"
	"nutribudget/planner"
	"nutribudget/prices"
	"nutribudget/validate"
)

const (
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
)

// SubmitResult is the outcome of one chat turn.
type SubmitResult struct {
	SessionID        string                `json:"session_id"`
	Reply            string                `json:"reply"`
	Stage            intake.Stage          `json:"stage"`
	ReadyForMealPlan bool                  `json:"ready_for_meal_plan"`
	Activity         []activity.Entry      `json:"activity"`
	Plan             *nutribudget.MealPlan `json:"meal_plan"`
	Error            string                `json:"error,omitempty"`
}

type PollResult struct {
	Entries []activity.Entry `json:"entries"`
	Status  string           `json:"status"`
	Stage   intake.Stage     `json:"stage"`
}

// Service runs chat turns against the session store. A turn that confirms the profile
// also runs the planning pipeline before it returns.
type Service struct {
	store      *Store
	collector  *intake.Collector
	oracle     *prices.Oracle
	generator  *planner.Generator
	validator  *validate.Validator
	sinks      []nutribudget.PlanSink
	tracer     trace.Tracer
	categories []string
}

type Option func(*Service)

// WithSinks registers receivers for completed plans.
func WithSinks(sinks ...nutribudget.PlanSink) Option {
	return func(s *Service) {
		for _, sink := range sinks {
			if sink != nil {
				s.sinks = append(s.sinks, sink)
			}
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithCategories sets the ingredient categories asked of the price oracle.
func WithCategories(categories []string) Option {
	return func(s *Service) {
		if len(categories) > 0 {
			s.categories = categories
		}
	}
}

func NewService(store *Store, collector *intake.Collector, oracle *prices.Oracle, generator *planner.Generator, validator *validate.Validator, opts ...Option) *Service {
	s := &Service{
		store:      store,
		collector:  collector,
		oracle:     oracle,
		generator:  generator,
		validator:  validator,
		tracer:     otel.Tracer(nutribudget.TracerNameSession),
		categories: prices.DefaultCategories,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Store() *Store {
	return s.store
}

// SubmitMessage advances the session's conversation by one message. An empty id starts
// a new session. It returns ErrSessionBusy when another turn for the session is running.
func (s *Service) SubmitMessage(ctx context.Context, sessionID, text string) (SubmitResult, error) {
	if sessionID == "" {
		sessionID = NewID()
	}
	ctx, span := s.tracer.Start(ctx, "Service.SubmitMessage", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	sess, _ := s.store.GetOrCreate(sessionID)
	if !sess.turn.TryLock() {
		span.SetStatus(codes.Error, "session busy")
		slog.Info("SESSION: Rejected concurrent turn", "session_id", sessionID)
		return SubmitResult{}, fmt.Errorf("%w: %s", nutribudget.ErrSessionBusy, sessionID)
	}
	defer sess.turn.Unlock()

	st := sess.snapshot()
	from := st.Stage
	reply := s.collector.Advance(ctx, &st, text)
	sess.store(st)

	slog.Info("SESSION: Turn processed",
		"session_id", sessionID,
		"from", from,
		"to", st.Stage,
		"ready_for_meal_plan", reply.ReadyForMealPlan)

	res := SubmitResult{
		SessionID:        sessionID,
		Reply:            reply.Text,
		ReadyForMealPlan: reply.ReadyForMealPlan,
	}

	if reply.ReadyForMealPlan {
		plan, err := s.runPipeline(ctx, sess, st.Profile)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline failed")
			res.Reply = failureReply(err)
			res.Error = err.Error()
		} else {
			res.Reply = readyReply(plan)
			res.Plan = &plan
		}
	} else {
		res.Plan = sess.Plan()
	}

	res.Stage = sess.Stage()
	res.Activity = sess.log.Read(0)
	span.SetAttributes(attribute.String("session.stage", res.Stage.String()))
	return res, nil
}

// PollActivity returns the entries appended after since. It never waits for a running turn.
func (s *Service) PollActivity(ctx context.Context, sessionID string, since uint64) (PollResult, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return PollResult{}, err
	}
	stage := sess.Stage()
	status := StatusInProgress
	if stage == intake.Complete {
		status = StatusComplete
	}
	return PollResult{
		Entries: sess.log.Read(since),
		Status:  status,
		Stage:   stage,
	}, nil
}

// runPipeline prices ingredients, generates a plan and validates it. On success the
// session is COMPLETE; on failure it is back at AWAITING_CONFIRMATION.
func (s *Service) runPipeline(ctx context.Context, sess *Session, profile nutribudget.Profile) (nutribudget.MealPlan, error) {
	ctx, span := s.tracer.Start(ctx, "Service.runPipeline")
	defer span.End()

	start := time.Now()
	log := sess.log

	plan, err := s.plan(ctx, sess, profile)
	if err != nil {
		log.Appendf("❌ Could not build a meal plan: %v", err)
		if ferr := sess.fail(); ferr != nil {
			slog.Error("SESSION: Illegal transition", "session_id", sess.ID, "error", ferr)
		}
		slog.Warn("SESSION: Pipeline failed", "session_id", sess.ID, "error", err, "duration", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		return nutribudget.MealPlan{}, err
	}

	if err := sess.complete(plan); err != nil {
		slog.Error("SESSION: Illegal transition", "session_id", sess.ID, "error", err)
		return nutribudget.MealPlan{}, err
	}
	if plan.OverBudget {
		log.Appendf("⚠️ Meal plan ready at $%.2f, over your $%.2f budget", plan.Summary.TotalCost, profile.WeeklyBudget)
	} else {
		log.Appendf("✅ Meal plan ready: $%.2f of your $%.2f budget", plan.Summary.TotalCost, profile.WeeklyBudget)
	}
	slog.Info("SESSION: Pipeline complete",
		"session_id", sess.ID,
		"total", plan.Summary.TotalCost,
		"source", plan.Source,
		"over_budget", plan.OverBudget,
		"duration", time.Since(start))

	s.deliver(ctx, sess.ID, plan)
	return plan, nil
}

func (s *Service) plan(ctx context.Context, sess *Session, profile nutribudget.Profile) (nutribudget.MealPlan, error) {
	log := sess.log

	rctx, rspan := s.tracer.Start(ctx, "Service.research")
	ingredients := s.oracle.FetchPrices(rctx, profile.Location, s.categories, log)
	rspan.SetAttributes(attribute.Int("ingredients.count", len(ingredients)))
	rspan.End()

	allowed, dropped := planner.Filter(ingredients, profile.DietaryRestrictions)
	if len(dropped) > 0 {
		log.Appendf("🚫 Left out %d ingredients that don't fit your dietary restrictions", len(dropped))
	}
	if err := sess.apply(intake.EventPricesReady); err != nil {
		return nutribudget.MealPlan{}, err
	}

	gctx, gspan := s.tracer.Start(ctx, "Service.generate")
	plan, err := s.generator.Generate(gctx, profile, allowed, log)
	gspan.End()
	if err != nil {
		return nutribudget.MealPlan{}, err
	}
	if plan.Summary.HouseholdSize == 0 {
		plan.Summary.HouseholdSize = profile.HouseholdSize
	}
	plan.Summary.Location = profile.Location

	log.Append("🔍 Checking the plan against prices and your budget")
	_, vspan := s.tracer.Start(ctx, "Service.validate")
	defer vspan.End()
	return s.validator.ValidateAndRepair(plan, allowed, profile.WeeklyBudget)
}

func (s *Service) deliver(ctx context.Context, sessionID string, plan nutribudget.MealPlan) {
	for _, sink := range s.sinks {
		if err := sink.HandlePlan(ctx, sessionID, plan); err != nil {
			slog.Warn("SESSION: Plan sink failed", "session_id", sessionID, "sink", fmt.Sprintf("%T", sink), "error", err)
		}
	}
}

func readyReply(plan nutribudget.MealPlan) string {
	msg := fmt.Sprintf("Your 7-day meal plan is ready! It costs $%.2f for the week (%.1f%% of your budget), with %d items on the grocery list.",
		plan.Summary.TotalCost, plan.Summary.UtilizationPercent(), len(plan.GroceryList))
	if plan.OverBudget {
		msg += " Even with the cheapest swaps it is over your budget, so consider raising the budget or loosening restrictions."
	}
	return msg
}

func failureReply(err error) string {
	reason := "something went wrong while planning"
	if errors.Is(err, nutribudget.ErrUnrecoverablePlan) {
		reason = "there aren't enough affordable ingredients that fit your restrictions"
	}
	return fmt.Sprintf("Sorry, I couldn't build a meal plan: %s. Reply \"yes\" to try again, or \"no\" and tell me what to change.", reason)
}
