package nutribudget

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// PlanDays is the number of days in every meal plan.
const PlanDays = 7

// DayNames maps day numbers (1-based) to display names.
var DayNames = [PlanDays]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Researcher answers free-form research queries, typically about local grocery prices.
// A nil Researcher means the capability is absent.
type Researcher interface {
	Research(ctx context.Context, query string) (string, error)
}

// Generator turns a prompt into text. When shape is non-nil the caller expects JSON
// matching the schema; providers use it as a hint, not a guarantee.
// A nil Generator means the capability is absent.
type Generator interface {
	Generate(ctx context.Context, prompt string, shape *jsonschema.Schema) (string, error)
}

// PlanSink receives every plan that reaches COMPLETE.
type PlanSink interface {
	HandlePlan(ctx context.Context, sessionID string, plan MealPlan) error
}

// Profile holds the planning constraints collected during intake.
type Profile struct {
	HouseholdSize       int      `json:"household_size"`
	WeeklyBudget        float64  `json:"weekly_budget"`
	Location            string   `json:"location"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	FoodPreferences     []string `json:"food_preferences"`
	RestrictionsSet     bool     `json:"-"`
	PreferencesSet      bool     `json:"-"`
	Confirmed           bool     `json:"confirmed"`
}

// HasAllFields reports whether every field has been parsed, regardless of confirmation.
func (p Profile) HasAllFields() bool {
	return p.WeeklyBudget > 0 &&
		p.HouseholdSize > 0 &&
		p.Location != "" &&
		p.RestrictionsSet &&
		p.PreferencesSet
}

// IsComplete reports whether the profile is parsed and confirmed by the user.
func (p Profile) IsComplete() bool {
	return p.HasAllFields() && p.Confirmed
}

type IngredientSource string

const (
	SourceResearch IngredientSource = "research"
	SourceMock     IngredientSource = "mock"
)

// PricedIngredient is an ingredient with a known price at a store near the user.
// UnitCost is the price of one Unit; Quantity is the size of a typical purchase in Unit.
type PricedIngredient struct {
	Name     string           `json:"name"`
	Quantity float64          `json:"quantity"`
	Unit     string           `json:"unit"`
	UnitCost float64          `json:"unit_cost"`
	Store    string           `json:"store"`
	Category string           `json:"category,omitempty"`
	Source   IngredientSource `json:"source"`
}

// ServingCost is the cost of one default per-person portion.
func (p PricedIngredient) ServingCost() float64 {
	return Portion(p.Unit) * p.UnitCost
}

type MealSlot string

const (
	Breakfast MealSlot = "breakfast"
	Lunch     MealSlot = "lunch"
	Dinner    MealSlot = "dinner"
)

// MealSlots lists the meals of a day in serving order.
var MealSlots = []MealSlot{Breakfast, Lunch, Dinner}

type PlanSource string

const (
	PlanGenerated PlanSource = "generated"
	PlanFallback  PlanSource = "fallback"
)

// MealIngredient references a priced ingredient by name. Quantity is in the priced
// ingredient's unit and covers the whole household.
type MealIngredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

type Meal struct {
	Name         string           `json:"name"`
	Instructions string           `json:"instructions"`
	CookingTime  string           `json:"cooking_time"`
	Difficulty   string           `json:"difficulty"`
	Cost         float64          `json:"cost"`
	Ingredients  []MealIngredient `json:"ingredients"`
}

type DayPlan struct {
	Day   int               `json:"day"`
	Name  string            `json:"name"`
	Meals map[MealSlot]Meal `json:"meals"`
}

// IsComplete reports whether the day has every meal slot with a name and ingredients.
func (d DayPlan) IsComplete() bool {
	for _, slot := range MealSlots {
		meal, ok := d.Meals[slot]
		if !ok || meal.Name == "" || len(meal.Ingredients) == 0 {
			return false
		}
	}
	return true
}

type GroceryItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Cost     float64 `json:"cost"`
	Store    string  `json:"store"`
}

type WeeklySummary struct {
	TotalCost         float64 `json:"total_cost"`
	HouseholdSize     int     `json:"household_size"`
	Location          string  `json:"location"`
	Budget            float64 `json:"budget"`
	// BudgetUtilization is TotalCost / Budget; 0.5 means half the budget is spent.
	BudgetUtilization float64 `json:"budget_utilization"`
}

// UtilizationPercent is BudgetUtilization for display, in percent.
func (s WeeklySummary) UtilizationPercent() float64 {
	return s.BudgetUtilization * 100
}

type MealPlan struct {
	Days          []DayPlan     `json:"days"`
	GroceryList   []GroceryItem `json:"grocery_list"`
	Summary       WeeklySummary `json:"weekly_summary"`
	CookingTips   []string      `json:"cooking_tips,omitempty"`
	StorageAdvice []string      `json:"storage_advice,omitempty"`
	Source        PlanSource    `json:"source"`
	OverBudget    bool          `json:"over_budget"`
	RepairNotes   []string      `json:"repair_notes,omitempty"`
}

// IsValid checks that the plan covers every day with every meal.
func (mp *MealPlan) IsValid() bool {
	if len(mp.Days) != PlanDays {
		return false
	}

	for i, day := range mp.Days {
		if day.Day != i+1 || !day.IsComplete() {
			return false
		}
	}

	return true
}

// Ingredients returns every ingredient name referenced by any meal, in plan order.
func (mp *MealPlan) Ingredients() []string {
	var names []string
	for _, day := range mp.Days {
		for _, slot := range MealSlots {
			for _, ing := range day.Meals[slot].Ingredients {
				names = append(names, ing.Name)
			}
		}
	}
	return names
}
