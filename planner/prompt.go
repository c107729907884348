package planner

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"nutribudget"
)

//go:embed plan_prompt.md
var planPrompt string

var planTemplate = template.Must(template.New("plan").Parse(planPrompt))

type promptIngredient struct {
	Name     string
	Unit     string
	UnitCost string
	Portion  string
}

type promptDay struct {
	Number int
	Name   string
}

type promptData struct {
	Household    int
	Location     string
	Budget       string
	PerDay       string
	PerMeal      string
	Restrictions string
	Preferences  string
	Ingredients  []promptIngredient
	Days         []promptDay
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func tagList(tags []string) string {
	if len(tags) == 0 {
		return "none"
	}
	return strings.Join(tags, ", ")
}

// buildPrompt renders the generation request for the given day numbers.
func buildPrompt(profile nutribudget.Profile, ings []nutribudget.PricedIngredient, days []int) (string, error) {
	data := promptData{
		Household:    max(profile.HouseholdSize, 1),
		Location:     profile.Location,
		Budget:       money(profile.WeeklyBudget),
		PerDay:       money(profile.WeeklyBudget / nutribudget.PlanDays),
		PerMeal:      money(profile.WeeklyBudget / float64(nutribudget.PlanDays*len(nutribudget.MealSlots))),
		Restrictions: tagList(profile.DietaryRestrictions),
		Preferences:  tagList(profile.FoodPreferences),
	}
	for _, ing := range ings {
		data.Ingredients = append(data.Ingredients, promptIngredient{
			Name:     ing.Name,
			Unit:     ing.Unit,
			UnitCost: money(ing.UnitCost),
			Portion:  fmt.Sprintf("%g %s", nutribudget.Portion(ing.Unit), ing.Unit),
		})
	}
	for _, d := range days {
		data.Days = append(data.Days, promptDay{Number: d, Name: nutribudget.DayNames[d-1]})
	}

	var buf bytes.Buffer
	if err := planTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render plan prompt: %w", err)
	}
	return buf.String(), nil
}
