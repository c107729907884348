package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutribudget"
	"nutribudget/planner"
	"nutribudget/prices"
)

func uniformPlan(days, household int, meal nutribudget.Meal) nutribudget.MealPlan {
	plan := nutribudget.MealPlan{Summary: nutribudget.WeeklySummary{HouseholdSize: household}}
	for d := 1; d <= days; d++ {
		day := nutribudget.DayPlan{Day: d, Meals: map[nutribudget.MealSlot]nutribudget.Meal{}}
		for _, slot := range nutribudget.MealSlots {
			m := meal
			m.Ingredients = append([]nutribudget.MealIngredient(nil), meal.Ingredients...)
			day.Meals[slot] = m
		}
		plan.Days = append(plan.Days, day)
	}
	return plan
}

// assertInvariants checks what every validated plan must satisfy.
func assertInvariants(t *testing.T, plan nutribudget.MealPlan, ings []nutribudget.PricedIngredient, budget float64) {
	t.Helper()

	priced := map[string]bool{}
	for _, ing := range ings {
		priced[strings.ToLower(ing.Name)] = true
	}
	for _, name := range plan.Ingredients() {
		assert.True(t, priced[strings.ToLower(name)], "hallucinated ingredient %q", name)
	}

	var grocery, meals int64
	for _, g := range plan.GroceryList {
		grocery += nutribudget.Cents(g.Cost)
	}
	for _, day := range plan.Days {
		for _, slot := range nutribudget.MealSlots {
			meals += nutribudget.Cents(day.Meals[slot].Cost)
		}
	}
	total := nutribudget.Cents(plan.Summary.TotalCost)
	assert.Equal(t, grocery, total)
	assert.Equal(t, meals, total)

	if !plan.OverBudget {
		assert.LessOrEqual(t, plan.Summary.TotalCost, budget*1.05+1e-9)
	}
	assert.True(t, plan.IsValid())
}

func staples() []nutribudget.PricedIngredient {
	return []nutribudget.PricedIngredient{
		{Name: "Brown Rice", Quantity: 1, Unit: "lb", UnitCost: 2.5, Store: "Aldi", Category: "grains"},
		{Name: "Black Beans", Quantity: 1, Unit: "can", UnitCost: 1.25, Store: "Aldi", Category: "proteins"},
		{Name: "Tomatoes", Quantity: 1, Unit: "lb", UnitCost: 2.99, Store: "Aldi", Category: "vegetables"},
		{Name: "Eggs", Quantity: 1, Unit: "dozen", UnitCost: 2.99, Store: "Aldi", Category: "proteins"},
		{Name: "Oats", Quantity: 1, Unit: "container", UnitCost: 2.99, Store: "Aldi", Category: "grains"},
	}
}

func TestValidateAndRepair_Unrecoverable(t *testing.T) {
	v := New()

	_, err := v.ValidateAndRepair(uniformPlan(7, 2, nutribudget.Meal{Name: "x"}), staples()[:2], 100)
	assert.ErrorIs(t, err, nutribudget.ErrUnrecoverablePlan)

	_, err = v.ValidateAndRepair(nutribudget.MealPlan{}, staples(), 100)
	assert.ErrorIs(t, err, nutribudget.ErrUnrecoverablePlan)
}

func TestValidateAndRepair_Hallucinations(t *testing.T) {
	ings := staples()
	plan := uniformPlan(7, 4, nutribudget.Meal{
		Name: "Rice bowl",
		Ingredients: []nutribudget.MealIngredient{
			{Name: "brown rice", Quantity: 0.5},
			{Name: "rice", Quantity: 0.3},
			{Name: "Tomatoe", Quantity: 1},
			{Name: "Quinoa", Quantity: 1},
		},
	})
	plan.Days[0].Meals[nutribudget.Dinner] = nutribudget.Meal{
		Name:        "Salmon",
		Ingredients: []nutribudget.MealIngredient{{Name: "Salmon Fillet", Quantity: 2}},
	}

	out, err := New().ValidateAndRepair(plan, ings, 200)
	require.NoError(t, err)
	assertInvariants(t, out, ings, 200)

	lunch := out.Days[1].Meals[nutribudget.Lunch]
	assert.Equal(t, "Rice bowl", lunch.Name)
	assert.Equal(t, []nutribudget.MealIngredient{
		{Name: "Brown Rice", Quantity: 0.8, Unit: "lb"},
		{Name: "Tomatoes", Quantity: 1, Unit: "lb"},
	}, lunch.Ingredients)
	assert.InDelta(t, 2.0+2.99, lunch.Cost, 1e-9)

	dinner := out.Days[0].Meals[nutribudget.Dinner]
	assert.True(t, strings.HasPrefix(dinner.Name, "Budget "))
	assert.NotEmpty(t, dinner.Ingredients)

	notes := strings.Join(out.RepairNotes, "\n")
	assert.Contains(t, notes, `Replaced "Tomatoe" with Tomatoes`)
	assert.Contains(t, notes, `Removed "Quinoa"`)
	assert.Contains(t, notes, `Removed "Salmon Fillet"`)

	// the input plan is left alone
	assert.Equal(t, "Quinoa", plan.Days[1].Meals[nutribudget.Lunch].Ingredients[3].Name)
}

func TestValidateAndRepair_RecomputesCosts(t *testing.T) {
	ings := staples()
	plan := uniformPlan(7, 4, nutribudget.Meal{
		Name: "Eggs and rice",
		Cost: 999,
		Ingredients: []nutribudget.MealIngredient{
			{Name: "Eggs", Quantity: 0},
			{Name: "Brown Rice", Quantity: 1},
		},
	})
	plan.Summary.TotalCost = 12345

	out, err := New().ValidateAndRepair(plan, ings, 200)
	require.NoError(t, err)
	assertInvariants(t, out, ings, 200)

	meal := out.Days[0].Meals[nutribudget.Breakfast]
	assert.Equal(t, 0.68, meal.Ingredients[0].Quantity)
	// 0.68 dozen x 2.99 = 2.0332 -> 2.03, plus 2.50
	assert.InDelta(t, 4.53, meal.Cost, 1e-9)
	assert.InDelta(t, 4.53*21, out.Summary.TotalCost, 1e-9)

	require.Len(t, out.GroceryList, 2)
	assert.Equal(t, nutribudget.GroceryItem{Name: "Eggs", Quantity: 14.28, Unit: "dozen", Cost: 42.63, Store: "Aldi"}, out.GroceryList[0])
	assert.Equal(t, "Brown Rice", out.GroceryList[1].Name)
	assert.Equal(t, 21.0, out.GroceryList[1].Quantity)
	assert.InDelta(t, 95.13/200, out.Summary.BudgetUtilization, 1e-4)
	assert.False(t, out.OverBudget)
}

func TestValidateAndRepair_Budget(t *testing.T) {
	ings := []nutribudget.PricedIngredient{
		{Name: "Steak", Unit: "lb", UnitCost: 20, Category: "proteins"},
		{Name: "Rice", Unit: "lb", UnitCost: 1, Category: "grains"},
		{Name: "Beans", Unit: "can", UnitCost: 1, Category: "proteins"},
		{Name: "Carrots", Unit: "lb", UnitCost: 1, Category: "vegetables"},
	}
	steak := nutribudget.Meal{Name: "Steak night", Ingredients: []nutribudget.MealIngredient{{Name: "Steak", Quantity: 2}}}

	tests := []struct {
		name           string
		budget         float64
		wantOverBudget bool
		wantSwaps      int
	}{
		{name: "within budget", budget: 1000, wantOverBudget: false, wantSwaps: 0},
		{name: "within tolerance", budget: 800, wantOverBudget: false, wantSwaps: 0},
		{name: "downgraded", budget: 100, wantOverBudget: false, wantSwaps: 19},
		{name: "flagged", budget: 10, wantOverBudget: true, wantSwaps: 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New().ValidateAndRepair(uniformPlan(7, 2, steak), ings, tt.budget)
			require.NoError(t, err)
			assertInvariants(t, out, ings, tt.budget)

			assert.Equal(t, tt.wantOverBudget, out.OverBudget)
			swaps := 0
			for _, n := range out.RepairNotes {
				if strings.HasPrefix(n, "Swapped") {
					swaps++
				}
			}
			assert.Equal(t, tt.wantSwaps, swaps)

			if tt.wantOverBudget {
				assert.Greater(t, out.Summary.TotalCost, tt.budget*1.05)
			}
		})
	}
}

func TestValidateAndRepair_FillsMissingDays(t *testing.T) {
	ings := staples()
	plan := uniformPlan(5, 2, nutribudget.Meal{Name: "Oats", Ingredients: []nutribudget.MealIngredient{{Name: "Oats", Quantity: 0.2}}})
	plan.Days = append(plan.Days, nutribudget.DayPlan{Day: 9})

	out, err := New().ValidateAndRepair(plan, ings, 100)
	require.NoError(t, err)
	assertInvariants(t, out, ings, 100)
	assert.Equal(t, "Sunday", out.Days[6].Name)
	assert.Contains(t, out.RepairNotes, "Filled in missing Saturday")
	assert.Contains(t, out.RepairNotes, "Dropped day 9, which is outside the week")
}

func TestValidateAndRepair_ScenarioFallbackPlan(t *testing.T) {
	profile := nutribudget.Profile{HouseholdSize: 4, WeeklyBudget: 75, Location: "Chicago"}
	catalog := prices.MockCatalog()

	plan, ok := planner.BuildFallback(profile, catalog)
	require.True(t, ok)

	out, err := New().ValidateAndRepair(plan, catalog, 75)
	require.NoError(t, err)
	assertInvariants(t, out, catalog, 75)
	assert.False(t, out.OverBudget)
	assert.LessOrEqual(t, out.Summary.TotalCost, 78.75)
	assert.NotEmpty(t, out.GroceryList)
	assert.Empty(t, out.RepairNotes)
}

func TestBudgetLimit(t *testing.T) {
	assert.Equal(t, int64(7875), New().BudgetLimit(75))
	assert.Equal(t, int64(10500), New().BudgetLimit(100))
	assert.Equal(t, int64(10000), New(WithTolerance(0)).BudgetLimit(100))
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b  string
		above bool
	}{
		{"brown rice", "Brown Rice", true},
		{"rice", "Brown Rice", true},
		{"Tomatoe", "Tomatoes", true},
		{"cooked brown rice", "Brown Rice", true},
		{"Quinoa", "Brown Rice", false},
		{"salt", "Oats", false},
		{"", "Oats", false},
	}
	for _, tt := range tests {
		s := Similarity(tt.a, tt.b)
		assert.Equal(t, tt.above, s >= DefaultThreshold, "%q vs %q = %.2f", tt.a, tt.b, s)
	}
	assert.Equal(t, 1.0, Similarity("Apples", "apple"))
}

func TestValidateAndRepair_BudgetUtilization(t *testing.T) {
	ings := []nutribudget.PricedIngredient{
		{Name: "Brown Rice", Quantity: 1, Unit: "lb", UnitCost: 1, Store: "Aldi", Category: "grains"},
		{Name: "Black Beans", Quantity: 1, Unit: "can", UnitCost: 1.25, Store: "Aldi", Category: "proteins"},
		{Name: "Eggs", Quantity: 1, Unit: "dozen", UnitCost: 2.99, Store: "Aldi", Category: "proteins"},
	}
	plan := uniformPlan(7, 1, nutribudget.Meal{
		Name:        "Rice",
		Ingredients: []nutribudget.MealIngredient{{Name: "Brown Rice", Quantity: 1}},
	})

	out, err := New().ValidateAndRepair(plan, ings, 42)
	require.NoError(t, err)
	assertInvariants(t, out, ings, 42)

	assert.InDelta(t, 21.0, out.Summary.TotalCost, 1e-9)
	assert.InDelta(t, 0.5, out.Summary.BudgetUtilization, 1e-9)
	assert.InDelta(t, 50.0, out.Summary.UtilizationPercent(), 1e-9)
}
