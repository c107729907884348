package prices

import (
	"encoding/json"
	"fmt"
	"strings"

	"nutribudget"
)

var priceKeys = []string{"price", "unit_cost", "cost", "unit_price"}

var listKeys = []string{"ingredients", "items", "prices"}

// ParseIngredients extracts priced ingredients from a research answer. The answer may
// wrap the JSON in prose or markdown. Unusable entries are dropped; an answer with no
// usable entry is reported as ErrCapabilityUnavailable.
func ParseIngredients(text string) ([]nutribudget.PricedIngredient, error) {
	raw, ok := nutribudget.ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON in research response", nutribudget.ErrCapabilityUnavailable)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed research JSON: %v", nutribudget.ErrCapabilityUnavailable, err)
	}

	var entries []any
	switch v := doc.(type) {
	case []any:
		entries = v
	case map[string]any:
		for _, k := range listKeys {
			if list, ok := v[k].([]any); ok {
				entries = list
				break
			}
		}
	}

	items := make([]nutribudget.PricedIngredient, 0, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if it, ok := fromObject(obj); ok {
			items = append(items, it)
		}
	}

	items = dedupe(items)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: research response had no usable prices", nutribudget.ErrCapabilityUnavailable)
	}
	return items, nil
}

func fromObject(obj map[string]any) (nutribudget.PricedIngredient, bool) {
	var price float64
	found := false
	for _, k := range priceKeys {
		if v, ok := obj[k]; ok {
			price, found = parsePrice(v)
			break
		}
	}
	if !found {
		return nutribudget.PricedIngredient{}, false
	}
	source := nutribudget.SourceResearch
	if strings.EqualFold(str(obj["source"]), string(nutribudget.SourceMock)) {
		source = nutribudget.SourceMock
	}
	return newIngredient(str(obj["name"]), price, str(obj["unit"]), str(obj["store"]), str(obj["category"]), source)
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
