// Package mock provides deterministic research and generation capabilities for local
// runs and tests. It reads the same prompts a real model would and answers in the
// requested shape.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"nutribudget"
	"nutribudget/planner"
)

const poolSize = 9

var (
	rowPattern       = regexp.MustCompile(`(?m)^\| (.+?) \| (.+?) \| \$([0-9.]+) \| ([0-9.]+)\b`)
	dayPattern       = regexp.MustCompile(`\bday (\d+) \(`)
	householdPattern = regexp.MustCompile(`household of (\d+)`)
)

const answer = "Cook grains and beans in big batches early in the week, and use the cheapest seasonal vegetables in several meals to keep costs down."

type slotStyle struct {
	name         string
	instructions string
	cookingTime  string
}

var slotStyles = map[nutribudget.MealSlot]slotStyle{
	nutribudget.Breakfast: {"%s with %s", "Prepare the %s and serve with the %s.", "10 minutes"},
	nutribudget.Lunch:     {"%s and %s Bowl", "Cook the %s, add the %s and season to taste.", "20 minutes"},
	nutribudget.Dinner:    {"%s and %s Skillet", "Brown the %s in a skillet, add the %s and simmer until cooked through.", "30 minutes"},
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate answers meal plan requests with a plan for exactly the requested days, built
// from the cheapest listed ingredients. Any other request gets a short canned answer.
func (g *Generator) Generate(ctx context.Context, prompt string, shape *jsonschema.Schema) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "provider", "mock", "prompt_len", len(prompt))

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if shape == nil {
		return answer, nil
	}
	if shape.Title != planner.SchemaTitle {
		return "{}", nil
	}

	rows := parseRows(prompt)
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: mock: no ingredients in prompt", nutribudget.ErrCapabilityUnavailable)
	}
	household := 1
	if m := householdPattern.FindStringSubmatch(prompt); m != nil {
		household, _ = strconv.Atoi(m[1])
	}

	b, err := json.Marshal(buildPlan(rows, household, requestedDays(prompt)))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type row struct {
	name    string
	unit    string
	cost    float64
	portion float64
}

func parseRows(prompt string) []row {
	var rows []row
	for _, m := range rowPattern.FindAllStringSubmatch(prompt, -1) {
		cost, err1 := strconv.ParseFloat(m[3], 64)
		portion, err2 := strconv.ParseFloat(m[4], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		rows = append(rows, row{name: m[1], unit: m[2], cost: cost, portion: portion})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].cost*rows[i].portion < rows[j].cost*rows[j].portion
	})
	if len(rows) > poolSize {
		rows = rows[:poolSize]
	}
	return rows
}

func requestedDays(prompt string) []int {
	var days []int
	for _, m := range dayPattern.FindAllStringSubmatch(prompt, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= nutribudget.PlanDays {
			days = append(days, n)
		}
	}
	if len(days) == 0 {
		for n := 1; n <= nutribudget.PlanDays; n++ {
			days = append(days, n)
		}
	}
	return days
}

type ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

type meal struct {
	Name         string       `json:"name"`
	Instructions string       `json:"instructions"`
	CookingTime  string       `json:"cooking_time"`
	Difficulty   string       `json:"difficulty"`
	Ingredients  []ingredient `json:"ingredients"`
}

type day struct {
	Day   int                           `json:"day"`
	Name  string                        `json:"name"`
	Meals map[nutribudget.MealSlot]meal `json:"meals"`
}

type plan struct {
	Days          []day    `json:"days"`
	CookingTips   []string `json:"cooking_tips"`
	StorageAdvice []string `json:"storage_advice"`
}

func buildPlan(rows []row, household int, days []int) plan {
	out := plan{
		CookingTips:   []string{"Cook a double batch of grains and reuse them for lunch."},
		StorageAdvice: []string{"Keep cooked leftovers in the fridge for up to three days."},
	}
	for _, n := range days {
		d := day{Day: n, Name: nutribudget.DayNames[n-1], Meals: map[nutribudget.MealSlot]meal{}}
		for i, slot := range nutribudget.MealSlots {
			k := (n-1)*len(nutribudget.MealSlots) + i
			base := rows[k%len(rows)]
			side := rows[(k+1)%len(rows)]
			style := slotStyles[slot]

			m := meal{
				Name:         base.name,
				Instructions: fmt.Sprintf("Cook the %s.", base.name),
				CookingTime:  style.cookingTime,
				Difficulty:   "easy",
				Ingredients:  []ingredient{{Name: base.name, Quantity: nutribudget.RoundQuantity(base.portion * float64(household))}},
			}
			if side.name != base.name {
				m.Name = fmt.Sprintf(style.name, base.name, side.name)
				m.Instructions = fmt.Sprintf(style.instructions, base.name, side.name)
				m.Ingredients = append(m.Ingredients, ingredient{Name: side.name, Quantity: nutribudget.RoundQuantity(side.portion * float64(household))})
			}
			d.Meals[slot] = m
		}
		out.Days = append(out.Days, d)
	}
	return out
}
