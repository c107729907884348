package planner

import (
	"fmt"
	"sort"
	"strings"

	"nutribudget"
)

const (
	grains     = "grains"
	proteins   = "proteins"
	vegetables = "vegetables"
	fruits     = "fruits"
	dairyFoods = "dairy"
)

// categoryHints classifies ingredients whose category is missing or unfamiliar.
var categoryHints = map[string][]string{
	grains:     {"rice", "oat", "bread", "pasta", "noodle", "tortilla", "quinoa", "barley", "flour", "cereal", "couscous", "bagel", "grain", "loaf"},
	proteins:   {"chicken", "beef", "pork", "turkey", "fish", "tuna", "salmon", "egg", "bean", "lentil", "tofu", "chickpea", "peanut", "sausage", "ham", "shrimp", "meat", "protein"},
	dairyFoods: {"milk", "cheese", "yogurt", "butter", "cream", "dairy"},
	fruits:     {"apple", "banana", "orange", "berry", "grape", "pear", "peach", "melon", "fruit", "mango", "lemon", "lime"},
	vegetables: {"potato", "carrot", "onion", "broccoli", "spinach", "tomato", "cabbage", "pepper", "garlic", "lettuce", "kale", "celery", "squash", "zucchini", "cucumber", "pea", "corn", "vegetable", "produce"},
}

var categoryOrder = []string{grains, proteins, dairyFoods, fruits, vegetables}

// categoryOf maps an ingredient to one of the five planning categories, or "" when unknown.
func categoryOf(ing nutribudget.PricedIngredient) string {
	cat := nutribudget.NormalizeName(ing.Category)
	for _, c := range categoryOrder {
		if cat == nutribudget.NormalizeName(c) {
			return c
		}
	}
	for _, text := range []string{cat, nutribudget.NormalizeName(ing.Name)} {
		for _, c := range categoryOrder {
			for _, hint := range categoryHints[c] {
				if nutribudget.ContainsTerm(text, hint) {
					return c
				}
			}
		}
	}
	return ""
}

// slotPools says which categories provide the base and the side of each meal.
var slotPools = map[nutribudget.MealSlot]struct{ base, side []string }{
	nutribudget.Breakfast: {base: []string{grains}, side: []string{fruits, dairyFoods}},
	nutribudget.Lunch:     {base: []string{grains, vegetables}, side: []string{proteins}},
	nutribudget.Dinner:    {base: []string{proteins}, side: []string{vegetables, grains}},
}

var slotDetails = map[nutribudget.MealSlot]struct {
	cookingTime  string
	instructions string
}{
	nutribudget.Breakfast: {"10 minutes", "Prepare the %s and serve it with the %s."},
	nutribudget.Lunch:     {"20 minutes", "Cook the %s, warm the %s and combine them in a bowl with simple seasoning."},
	nutribudget.Dinner:    {"30 minutes", "Cook the %s until done, prepare the %s alongside and season to taste."},
}

var fallbackTips = []string{
	"Prep vegetables at the beginning of the week to save time",
	"Cook grains in bulk and store for multiple meals",
	"Use leftovers creatively for next day's lunch",
	"Season simply with salt, pepper, and basic spices",
	"Store cooked meals in airtight containers for up to 3 days",
}

var fallbackStorage = []string{
	"Store vegetables in the refrigerator crisper drawer",
	"Keep grains and dry goods in sealed containers",
	"Freeze meat if not using within 2 days",
	"Label and date all meal prep containers",
}

// pool returns the ingredients in cats sorted by serving cost then name, with preferred
// ingredients first. When no ingredient falls in cats the whole list is used.
func pool(ings []nutribudget.PricedIngredient, cats []string, prefs []string) []nutribudget.PricedIngredient {
	var out []nutribudget.PricedIngredient
	for _, ing := range ings {
		c := categoryOf(ing)
		for _, want := range cats {
			if c == want {
				out = append(out, ing)
				break
			}
		}
	}
	if len(out) == 0 {
		out = ings
	}
	return Boost(sortedByCost(out), prefs)
}

// affordable keeps ingredients whose serving cost is within limit, and always at least
// the cheapest one.
func affordable(ings []nutribudget.PricedIngredient, limit float64) []nutribudget.PricedIngredient {
	var out []nutribudget.PricedIngredient
	for _, ing := range ings {
		if ing.ServingCost() <= limit {
			out = append(out, ing)
		}
	}
	if len(out) == 0 && len(ings) > 0 {
		cheapest := ings[0]
		for _, ing := range ings[1:] {
			if ing.ServingCost() < cheapest.ServingCost() {
				cheapest = ing
			}
		}
		out = append(out, cheapest)
	}
	return out
}

func portionOf(ing nutribudget.PricedIngredient, household int) nutribudget.MealIngredient {
	return nutribudget.MealIngredient{
		Name:     ing.Name,
		Quantity: nutribudget.RoundQuantity(nutribudget.Portion(ing.Unit) * float64(household)),
		Unit:     ing.Unit,
	}
}

func buildMeal(slot nutribudget.MealSlot, base nutribudget.PricedIngredient, side *nutribudget.PricedIngredient, household int) nutribudget.Meal {
	d := slotDetails[slot]
	meal := nutribudget.Meal{
		Name:        base.Name,
		CookingTime: d.cookingTime,
		Difficulty:  "easy",
		Ingredients: []nutribudget.MealIngredient{portionOf(base, household)},
	}
	if side == nil {
		meal.Instructions = fmt.Sprintf("Cook the %s simply and season to taste.", strings.ToLower(base.Name))
		return meal
	}
	meal.Name = base.Name + " with " + side.Name
	meal.Instructions = fmt.Sprintf(d.instructions, strings.ToLower(base.Name), strings.ToLower(side.Name))
	meal.Ingredients = append(meal.Ingredients, portionOf(*side, household))
	return meal
}

// pickSide returns the i-th side in rotation, skipping the base ingredient itself.
func pickSide(sides []nutribudget.PricedIngredient, base nutribudget.PricedIngredient, i int) *nutribudget.PricedIngredient {
	for k := 0; k < len(sides); k++ {
		s := sides[(i+k)%len(sides)]
		if nutribudget.NormalizeName(s.Name) != nutribudget.NormalizeName(base.Name) {
			return &s
		}
	}
	return nil
}

// BuildFallback assembles a deterministic plan from the allowed ingredients. Each meal is
// a base and a side drawn round-robin from per-slot pools of affordable ingredients.
// It returns false when there is nothing to build from.
func BuildFallback(profile nutribudget.Profile, allowed []nutribudget.PricedIngredient) (nutribudget.MealPlan, bool) {
	if len(allowed) == 0 {
		return nutribudget.MealPlan{}, false
	}
	household := max(profile.HouseholdSize, 1)

	var limit float64
	if profile.WeeklyBudget > 0 {
		limit = 0.6 * profile.WeeklyBudget / float64(nutribudget.PlanDays*len(nutribudget.MealSlots)*household)
	}

	bases := map[nutribudget.MealSlot][]nutribudget.PricedIngredient{}
	sides := map[nutribudget.MealSlot][]nutribudget.PricedIngredient{}
	for _, slot := range nutribudget.MealSlots {
		p := slotPools[slot]
		b := pool(allowed, p.base, profile.FoodPreferences)
		s := pool(allowed, p.side, profile.FoodPreferences)
		if limit > 0 {
			b, s = affordable(b, limit), affordable(s, limit)
		}
		bases[slot], sides[slot] = b, s
	}

	plan := nutribudget.MealPlan{
		Days:          make([]nutribudget.DayPlan, 0, nutribudget.PlanDays),
		CookingTips:   append([]string(nil), fallbackTips...),
		StorageAdvice: append([]string(nil), fallbackStorage...),
		Source:        nutribudget.PlanFallback,
		Summary: nutribudget.WeeklySummary{
			HouseholdSize: profile.HouseholdSize,
			Location:      profile.Location,
			Budget:        profile.WeeklyBudget,
		},
	}

	for i := 0; i < nutribudget.PlanDays; i++ {
		day := nutribudget.DayPlan{Day: i + 1, Name: nutribudget.DayNames[i], Meals: map[nutribudget.MealSlot]nutribudget.Meal{}}
		for _, slot := range nutribudget.MealSlots {
			base := bases[slot][i%len(bases[slot])]
			day.Meals[slot] = buildMeal(slot, base, pickSide(sides[slot], base, i), household)
		}
		plan.Days = append(plan.Days, day)
	}
	return plan, true
}

// CheapestMeal builds the least expensive meal for slot from ings at default portions:
// the cheapest base with the cheapest side.
func CheapestMeal(slot nutribudget.MealSlot, ings []nutribudget.PricedIngredient, household int) (nutribudget.Meal, bool) {
	if len(ings) == 0 {
		return nutribudget.Meal{}, false
	}
	household = max(household, 1)
	p := slotPools[slot]
	base := pool(ings, p.base, nil)[0]
	side := pickSide(pool(ings, p.side, nil), base, 0)

	meal := buildMeal(slot, base, side, household)
	meal.Name = "Budget " + meal.Name
	return meal, true
}

func sortedByCost(ings []nutribudget.PricedIngredient) []nutribudget.PricedIngredient {
	out := append([]nutribudget.PricedIngredient(nil), ings...)
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i].ServingCost(), out[j].ServingCost()
		if ci != cj {
			return ci < cj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
