// Package validate checks a generated meal plan against the priced ingredients and
// the weekly budget, repairing what it can.
package validate

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"nutribudget"
	"nutribudget/planner"
)

const (
	DefaultTolerance      = 0.05
	DefaultThreshold      = 0.6
	DefaultMinIngredients = 3
)

type Validator struct {
	tolerance      float64
	threshold      float64
	minIngredients int
}

type Option func(*Validator)

// WithTolerance sets the share of the budget a plan may exceed it by.
func WithTolerance(t float64) Option {
	return func(v *Validator) {
		if t >= 0 {
			v.tolerance = t
		}
	}
}

// WithThreshold sets the minimum similarity for substituting an unknown ingredient.
func WithThreshold(t float64) Option {
	return func(v *Validator) {
		if t > 0 && t <= 1 {
			v.threshold = t
		}
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{
		tolerance:      DefaultTolerance,
		threshold:      DefaultThreshold,
		minIngredients: DefaultMinIngredients,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// BudgetLimit returns the largest total, in cents, accepted for budget.
func (v *Validator) BudgetLimit(budget float64) int64 {
	return int64(math.Floor(budget*(1+v.tolerance)*100 + 1e-6))
}

type repair struct {
	v      *Validator
	ings   []nutribudget.PricedIngredient
	byName map[string]nutribudget.PricedIngredient
	people int
	notes  []string
}

// ValidateAndRepair returns a copy of plan in which every ingredient is a priced
// ingredient, every cost is recomputed from ingredient prices and the total is within
// budget plus tolerance unless the plan is flagged OverBudget. It fails with
// ErrUnrecoverablePlan when there is too little to build a plan from.
func (v *Validator) ValidateAndRepair(plan nutribudget.MealPlan, ingredients []nutribudget.PricedIngredient, budget float64) (nutribudget.MealPlan, error) {
	if len(ingredients) < v.minIngredients {
		return nutribudget.MealPlan{}, fmt.Errorf("%w: only %d priced ingredients available, need at least %d", nutribudget.ErrUnrecoverablePlan, len(ingredients), v.minIngredients)
	}
	if len(plan.Days) == 0 {
		return nutribudget.MealPlan{}, fmt.Errorf("%w: plan has no days", nutribudget.ErrUnrecoverablePlan)
	}

	r := &repair{
		v:      v,
		ings:   ingredients,
		byName: make(map[string]nutribudget.PricedIngredient, len(ingredients)),
		people: max(plan.Summary.HouseholdSize, 1),
	}
	for _, ing := range ingredients {
		key := nutribudget.NormalizeName(ing.Name)
		if _, dup := r.byName[key]; !dup {
			r.byName[key] = ing
		}
	}

	out := plan
	out.Days = r.days(plan.Days)
	out.OverBudget = false

	total := r.price(&out)
	if budget > 0 && total > v.BudgetLimit(budget) {
		total = r.downgrade(&out, budget, total)
	}

	out.Summary.TotalCost = nutribudget.FromCents(total)
	out.Summary.Budget = budget
	if budget > 0 {
		out.Summary.BudgetUtilization = math.Round(float64(total)/budget*100) / 10000
	}
	out.RepairNotes = append(append([]string(nil), plan.RepairNotes...), r.notes...)

	slog.Info("VALIDATOR: Plan validated",
		"total", out.Summary.TotalCost,
		"budget", budget,
		"over_budget", out.OverBudget,
		"repairs", len(r.notes))
	return out, nil
}

func (r *repair) note(format string, args ...any) {
	r.notes = append(r.notes, fmt.Sprintf(format, args...))
}

// days returns repaired copies of the plan's days, one per day number, in order.
func (r *repair) days(in []nutribudget.DayPlan) []nutribudget.DayPlan {
	byNum := map[int]nutribudget.DayPlan{}
	for _, d := range in {
		if d.Day < 1 || d.Day > nutribudget.PlanDays {
			r.note("Dropped day %d, which is outside the week", d.Day)
			continue
		}
		if _, dup := byNum[d.Day]; !dup {
			byNum[d.Day] = d
		}
	}

	out := make([]nutribudget.DayPlan, 0, nutribudget.PlanDays)
	for n := 1; n <= nutribudget.PlanDays; n++ {
		src, ok := byNum[n]
		if !ok {
			r.note("Filled in missing %s", nutribudget.DayNames[n-1])
		}
		day := nutribudget.DayPlan{Day: n, Name: src.Name, Meals: make(map[nutribudget.MealSlot]nutribudget.Meal, len(nutribudget.MealSlots))}
		if day.Name == "" {
			day.Name = nutribudget.DayNames[n-1]
		}
		for _, slot := range nutribudget.MealSlots {
			day.Meals[slot] = r.meal(day, slot, src.Meals[slot])
		}
		out = append(out, day)
	}
	return out
}

// meal maps every ingredient of m onto a priced ingredient. Unknown names are replaced by
// the most similar priced ingredient or dropped; a meal left empty is rebuilt.
func (r *repair) meal(day nutribudget.DayPlan, slot nutribudget.MealSlot, m nutribudget.Meal) nutribudget.Meal {
	out := m
	out.Ingredients = nil
	index := map[string]int{}

	for _, mi := range m.Ingredients {
		ing, ok := r.byName[nutribudget.NormalizeName(mi.Name)]
		if !ok {
			best, score := r.nearest(mi.Name)
			if score < r.v.threshold {
				r.note("Removed %q from %s %s: not available", mi.Name, day.Name, slot)
				continue
			}
			r.note("Replaced %q with %s in %s %s", mi.Name, best.Name, day.Name, slot)
			ing = best
		}

		qty := mi.Quantity
		if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
			qty = nutribudget.Portion(ing.Unit) * float64(r.people)
		}
		qty = nutribudget.RoundQuantity(qty)
		if qty <= 0 {
			qty = 0.01
		}

		if i, seen := index[ing.Name]; seen {
			out.Ingredients[i].Quantity = nutribudget.RoundQuantity(out.Ingredients[i].Quantity + qty)
			continue
		}
		index[ing.Name] = len(out.Ingredients)
		out.Ingredients = append(out.Ingredients, nutribudget.MealIngredient{Name: ing.Name, Quantity: qty, Unit: ing.Unit})
	}

	if len(out.Ingredients) == 0 {
		rebuilt, _ := planner.CheapestMeal(slot, r.ings, r.people)
		if m.Name == "" && len(m.Ingredients) == 0 {
			r.note("Added missing %s for %s", slot, day.Name)
		} else {
			r.note("Rebuilt %s %s from available ingredients", day.Name, slot)
		}
		return rebuilt
	}
	if out.Name == "" {
		out.Name = out.Ingredients[0].Name
	}
	return out
}

// nearest returns the most similar priced ingredient; ties go to the earlier one.
func (r *repair) nearest(name string) (nutribudget.PricedIngredient, float64) {
	var best nutribudget.PricedIngredient
	bestScore := -1.0
	for _, ing := range r.ings {
		if s := Similarity(name, ing.Name); s > bestScore {
			best, bestScore = ing, s
		}
	}
	return best, bestScore
}

func (r *repair) lineCents(mi nutribudget.MealIngredient) int64 {
	ing := r.byName[nutribudget.NormalizeName(mi.Name)]
	return nutribudget.Cents(mi.Quantity * ing.UnitCost)
}

// price recomputes every meal cost and the grocery list, and returns the total in cents.
// Grocery lines are the sums of the meal lines, so both add up to the same total.
func (r *repair) price(plan *nutribudget.MealPlan) int64 {
	type line struct {
		item  nutribudget.GroceryItem
		qty   float64
		cents int64
	}
	var order []string
	lines := map[string]*line{}
	var total int64

	for _, day := range plan.Days {
		for _, slot := range nutribudget.MealSlots {
			meal := day.Meals[slot]
			var mealCents int64
			for _, mi := range meal.Ingredients {
				c := r.lineCents(mi)
				mealCents += c

				l, ok := lines[mi.Name]
				if !ok {
					ing := r.byName[nutribudget.NormalizeName(mi.Name)]
					l = &line{item: nutribudget.GroceryItem{Name: ing.Name, Unit: ing.Unit, Store: ing.Store}}
					lines[mi.Name] = l
					order = append(order, mi.Name)
				}
				l.qty += mi.Quantity
				l.cents += c
			}
			meal.Cost = nutribudget.FromCents(mealCents)
			day.Meals[slot] = meal
			total += mealCents
		}
	}

	plan.GroceryList = make([]nutribudget.GroceryItem, 0, len(order))
	for _, name := range order {
		l := lines[name]
		l.item.Quantity = nutribudget.RoundQuantity(l.qty)
		l.item.Cost = nutribudget.FromCents(l.cents)
		plan.GroceryList = append(plan.GroceryList, l.item)
	}
	return total
}

type mealRef struct {
	day   int
	slot  nutribudget.MealSlot
	cents int64
}

// downgrade swaps the most expensive meals, each at most once, for the cheapest meal
// the ingredients allow until the plan fits. It flags the plan when that is not enough.
func (r *repair) downgrade(plan *nutribudget.MealPlan, budget float64, total int64) int64 {
	limit := r.v.BudgetLimit(budget)

	var refs []mealRef
	for i, day := range plan.Days {
		for _, slot := range nutribudget.MealSlots {
			refs = append(refs, mealRef{day: i, slot: slot, cents: nutribudget.Cents(day.Meals[slot].Cost)})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].cents > refs[j].cents })

	swapped := 0
	for _, ref := range refs {
		if total <= limit {
			break
		}
		cheap, ok := planner.CheapestMeal(ref.slot, r.ings, r.people)
		if !ok {
			break
		}
		var cheapCents int64
		for _, mi := range cheap.Ingredients {
			cheapCents += r.lineCents(mi)
		}
		if cheapCents >= ref.cents {
			continue
		}
		day := plan.Days[ref.day]
		r.note("Swapped %s %s (%s) for %s to save money", day.Name, ref.slot, day.Meals[ref.slot].Name, cheap.Name)
		day.Meals[ref.slot] = cheap
		total = r.price(plan)
		swapped++
	}

	if total > limit {
		plan.OverBudget = true
		r.note("Plan costs %s, over the %s budget even after cheaper swaps", money(total), money(nutribudget.Cents(budget)))
		slog.Warn("VALIDATOR: Plan over budget", "total_cents", total, "limit_cents", limit, "swapped", swapped)
	}
	return total
}

func money(cents int64) string {
	return fmt.Sprintf("$%.2f", nutribudget.FromCents(cents))
}
