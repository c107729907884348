package prices

import (
	"regexp"
	"strconv"
	"strings"

	"nutribudget"
)

const defaultStore = "Local grocery"

var pricePattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?|\.\d+`)

// measures are units that can carry a pack size, as in "per 5 lbs" or "12 oz box".
var measures = map[string]bool{"lb": true, "kg": true, "oz": true, "g": true, "litre": true}

// newIngredient builds a priced ingredient from loosely formatted research or catalog
// fields. A sized unit such as "5 lb" is split into Quantity 5 of "lb" and the price
// spread across it. It reports false when the name is empty or the price is not positive.
func newIngredient(name string, price float64, unit, store, category string, source nutribudget.IngredientSource) (nutribudget.PricedIngredient, bool) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || price <= 0 {
		return nutribudget.PricedIngredient{}, false
	}

	quantity := 1.0
	unit = nutribudget.NormalizeUnit(unit)
	if words := strings.Fields(unit); len(words) >= 2 {
		if size, err := strconv.ParseFloat(words[0], 64); err == nil && size > 0 && measures[words[1]] {
			quantity = size
			unit = words[1]
		}
	}

	if store = strings.TrimSpace(store); store == "" {
		store = defaultStore
	}

	return nutribudget.PricedIngredient{
		Name:     name,
		Quantity: quantity,
		Unit:     unit,
		UnitCost: price / quantity,
		Store:    store,
		Category: strings.ToLower(strings.TrimSpace(category)),
		Source:   source,
	}, true
}

// parsePrice accepts numbers and strings such as "$2.50" or "2.99 CAD".
func parsePrice(v any) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, p > 0
	case int:
		return float64(p), p > 0
	case string:
		if strings.Contains(p, "-") {
			return 0, false
		}
		match := pricePattern.FindString(p)
		if match == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
		if err != nil || f <= 0 {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func dedupe(items []nutribudget.PricedIngredient) []nutribudget.PricedIngredient {
	seen := make(map[string]bool, len(items))
	out := make([]nutribudget.PricedIngredient, 0, len(items))
	for _, it := range items {
		key := nutribudget.NormalizeName(it.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}
