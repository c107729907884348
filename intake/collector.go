// Package intake drives the chat turns that collect a household's planning profile.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"nutribudget"
)

const defaultAnswerTimeout = 15 * time.Second

var welcomeWords = map[string]bool{
	"get started": true, "start": true, "hello": true, "hi": true, "hey": true,
	"begin": true, "lets go": true, "let's go": true,
}

var restartWords = map[string]bool{
	"start over": true, "restart": true, "new plan": true, "reset": true, "begin again": true,
}

var yesWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "yup": true, "sure": true, "ok": true,
	"okay": true, "correct": true, "confirmed": true, "confirm": true, "right": true,
}

var yesPhrases = []string{"looks good", "sounds good", "that's right", "all good", "go ahead"}

var noWords = map[string]bool{
	"no": true, "n": true, "nope": true, "nah": true, "incorrect": true, "wrong": true, "change": true,
}

// fieldKeywords is checked in order; restrictions come before preferences so that
// "food restrictions" is not read as a preference.
var fieldKeywords = []struct {
	field    Field
	keywords []string
}{
	{FieldBudget, []string{"budget", "money", "spend", "amount", "price", "cost"}},
	{FieldHouseholdSize, []string{"household", "people", "size", "family", "person", "persons", "servings"}},
	{FieldLocation, []string{"location", "city", "where", "place", "area", "town", "region"}},
	{FieldRestrictions, []string{"restriction", "restrictions", "dietary", "diet", "allergy", "allergies"}},
	{FieldPreferences, []string{"preference", "preferences", "prefer", "like", "cuisine", "food", "foods"}},
}

// State is one session's conversation state. The zero value is a fresh conversation.
type State struct {
	Stage   Stage
	Profile nutribudget.Profile

	editing       bool
	choosingField bool
}

// Apply moves the state along the transition table.
func (st *State) Apply(ev Event) error {
	next, err := Transition(st.Stage, ev)
	if err != nil {
		return err
	}
	st.Stage = next
	return nil
}

// Reply is the collector's response to one user turn.
type Reply struct {
	Text             string
	ReadyForMealPlan bool
}

// Collector implements the intake state machine. The generator is optional and only
// answers free-form questions once intake is over.
type Collector struct {
	gen     nutribudget.Generator
	timeout time.Duration
}

func NewCollector(gen nutribudget.Generator, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = defaultAnswerTimeout
	}
	return &Collector{gen: gen, timeout: timeout}
}

// Advance consumes one user message and mutates st accordingly.
func (c *Collector) Advance(ctx context.Context, st *State, text string) Reply {
	msg := strings.TrimSpace(text)

	switch {
	case st.Stage.Collecting():
		if c.isInitial(st) && welcomeWords[normalizePhrase(msg)] {
			return Reply{Text: welcomeMessage + "\n\n" + fieldPrompts[FieldBudget]}
		}
		return c.collect(st, msg)

	case st.Stage == AwaitingConfirmation:
		return c.confirm(st, msg)

	default:
		return c.answer(ctx, st, msg)
	}
}

func (c *Collector) isInitial(st *State) bool {
	return st.Stage == AwaitingBudget && !st.editing && st.Profile.WeeklyBudget == 0
}

func (c *Collector) collect(st *State, msg string) Reply {
	field, _ := fieldForStage(st.Stage)

	if err := applyField(&st.Profile, field, msg); err != nil {
		slog.Info("INTAKE: Re-prompting", "stage", st.Stage, "error", err)
		return Reply{Text: fieldReprompts[field]}
	}

	ev := EventFieldAccepted
	if st.editing {
		ev = EventFieldRevised
	}
	if err := st.Apply(ev); err != nil {
		slog.Error("INTAKE: Illegal transition", "stage", st.Stage, "event", ev, "error", err)
		return Reply{Text: fieldPrompts[field]}
	}

	if st.Stage == AwaitingConfirmation {
		st.editing = false
		st.Profile.Confirmed = false
		return Reply{Text: Summary(st.Profile)}
	}

	next, _ := fieldForStage(st.Stage)
	return Reply{Text: "Got it. " + fieldPrompts[next]}
}

// applyField parses msg for field and stores it only on success.
func applyField(p *nutribudget.Profile, field Field, msg string) error {
	switch field {
	case FieldBudget:
		v, err := ParseBudget(msg)
		if err != nil {
			return err
		}
		p.WeeklyBudget = v
	case FieldHouseholdSize:
		n, err := ParseHouseholdSize(msg)
		if err != nil {
			return err
		}
		p.HouseholdSize = n
	case FieldLocation:
		loc, err := ParseLocation(msg)
		if err != nil {
			return err
		}
		p.Location = loc
	case FieldRestrictions:
		tags, err := ParseTags(msg)
		if err != nil {
			return err
		}
		p.DietaryRestrictions = tags
		p.RestrictionsSet = true
	case FieldPreferences:
		tags, err := ParseTags(msg)
		if err != nil {
			return err
		}
		p.FoodPreferences = tags
		p.PreferencesSet = true
	default:
		return fmt.Errorf("unknown field %d", field)
	}
	return nil
}

type answerKind int

const (
	answerUnknown answerKind = iota
	answerYes
	answerNo
)

func classifyConfirmation(msg string) answerKind {
	phrase := normalizePhrase(msg)
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return answerUnknown
	}

	switch {
	case yesWords[words[0]]:
		return answerYes
	case noWords[words[0]]:
		return answerNo
	}
	for _, w := range words {
		if w == "change" || w == "wrong" || w == "incorrect" {
			return answerNo
		}
	}
	for _, p := range yesPhrases {
		if strings.Contains(phrase, p) {
			return answerYes
		}
	}
	return answerUnknown
}

func mentionedField(msg string) (Field, bool) {
	words := strings.Fields(normalizePhrase(msg))
	for _, fk := range fieldKeywords {
		for _, w := range words {
			for _, k := range fk.keywords {
				if w == k {
					return fk.field, true
				}
			}
		}
	}
	return 0, false
}

func (c *Collector) confirm(st *State, msg string) Reply {
	kind := classifyConfirmation(msg)
	field, named := mentionedField(msg)

	if st.choosingField {
		if named {
			return c.edit(st, field)
		}
		if kind == answerYes {
			st.choosingField = false
			return c.accept(st)
		}
		return Reply{Text: chooseFieldMessage}
	}

	switch kind {
	case answerYes:
		return c.accept(st)
	case answerNo:
		if named {
			return c.edit(st, field)
		}
		st.choosingField = true
		return Reply{Text: chooseFieldMessage}
	default:
		return Reply{Text: confirmRepromptMessage + "\n\n" + Summary(st.Profile)}
	}
}

func (c *Collector) accept(st *State) Reply {
	if err := st.Apply(EventConfirmed); err != nil {
		slog.Error("INTAKE: Illegal transition", "stage", st.Stage, "error", err)
		return Reply{Text: confirmRepromptMessage}
	}
	st.Profile.Confirmed = true
	return Reply{Text: researchingMessage, ReadyForMealPlan: true}
}

func (c *Collector) edit(st *State, field Field) Reply {
	if err := st.Apply(editEvents[field]); err != nil {
		slog.Error("INTAKE: Illegal transition", "stage", st.Stage, "error", err)
		return Reply{Text: chooseFieldMessage}
	}
	st.editing = true
	st.choosingField = false
	st.Profile.Confirmed = false
	return Reply{Text: fmt.Sprintf("Sure, let's update your %s. %s", field, fieldPrompts[field])}
}

// answer handles messages after intake. It never touches the profile and only
// changes the stage for an explicit restart once the plan is complete.
func (c *Collector) answer(ctx context.Context, st *State, msg string) Reply {
	if st.Stage == Complete && restartWords[normalizePhrase(msg)] {
		*st = State{}
		return Reply{Text: "Let's plan another week. " + fieldPrompts[FieldBudget]}
	}

	static := busyMessage
	if st.Stage == Complete {
		static = completeMessage
	}
	if c.gen == nil || msg == "" {
		return Reply{Text: static}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.gen.Generate(ctx, answerPrompt(st, msg), nil)
	if err != nil {
		slog.Warn("INTAKE: Free-form answer failed, using static reply", "error", err)
		return Reply{Text: static}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return Reply{Text: static}
	}
	return Reply{Text: out}
}

func answerPrompt(st *State, msg string) string {
	var b strings.Builder
	b.WriteString("You are NutriBudget, a friendly assistant helping a household eat well on a tight weekly food budget.\n")
	b.WriteString("Answer the user's question in two to four sentences. Do not change their plan or profile.\n\n")
	fmt.Fprintf(&b, "Planning status: %s\n", st.Stage)
	fmt.Fprintf(&b, "Budget: %s per week, household of %d, shopping in %s.\n",
		formatMoney(st.Profile.WeeklyBudget), st.Profile.HouseholdSize, st.Profile.Location)
	fmt.Fprintf(&b, "Dietary restrictions: %s. Preferences: %s.\n\n",
		formatTags(st.Profile.DietaryRestrictions), formatTags(st.Profile.FoodPreferences))
	fmt.Fprintf(&b, "User: %s", msg)
	return b.String()
}

// normalizePhrase lower-cases msg and strips punctuation other than apostrophes.
func normalizePhrase(msg string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, msg)
	return strings.Join(strings.Fields(cleaned), " ")
}
