package nutribudget

import (
	"math"
	"strings"
)

// portions is the default per-person, per-meal amount expressed in each purchase unit.
var portions = map[string]float64{
	"lb":        0.2,
	"kg":        0.1,
	"oz":        3,
	"g":         90,
	"can":       0.33,
	"dozen":     0.17,
	"loaf":      0.1,
	"box":       0.12,
	"bag":       0.1,
	"jar":       0.06,
	"gallon":    0.06,
	"litre":     0.25,
	"liter":     0.25,
	"block":     0.1,
	"container": 0.08,
	"head":      0.15,
	"bulb":      0.1,
	"bunch":     0.2,
	"pack":      0.15,
	"each":      1,
}

const defaultPortion = 0.2

var unitAliases = map[string]string{
	"lbs":       "lb",
	"pound":     "lb",
	"pounds":    "lb",
	"kgs":       "kg",
	"kilo":      "kg",
	"kilogram":  "kg",
	"kilograms": "kg",
	"ounce":     "oz",
	"ounces":    "oz",
	"gram":      "g",
	"grams":     "g",
	"cans":      "can",
	"bags":      "bag",
	"boxes":     "box",
	"jars":      "jar",
	"loaves":    "loaf",
	"heads":     "head",
	"bulbs":     "bulb",
	"l":         "litre",
	"item":      "each",
	"items":     "each",
	"ea":        "each",
	"piece":     "each",
	"pieces":    "each",
	"unit":      "each",
	"package":   "pack",
	"packet":    "pack",
}

// NormalizeUnit turns unit strings such as "per lb", "/lbs" or "5 lbs bag" into a
// canonical lower-case form ("lb", "lb", "5 lb bag").
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimPrefix(u, "per ")
	u = strings.TrimPrefix(u, "/")
	u = strings.TrimPrefix(u, "a ")
	u = strings.TrimPrefix(u, "an ")

	words := strings.Fields(u)
	if len(words) == 0 {
		return "each"
	}
	for i, w := range words {
		if alias, ok := unitAliases[w]; ok {
			words[i] = alias
		}
	}
	return strings.Join(words, " ")
}

// Portion returns the default per-person amount of an ingredient sold in unit.
// Compound units are judged by their last word, so "5 lb bag" is a bag.
func Portion(unit string) float64 {
	words := strings.Fields(NormalizeUnit(unit))
	if len(words) == 0 {
		return defaultPortion
	}
	if p, ok := portions[words[len(words)-1]]; ok {
		return p
	}
	return defaultPortion
}

// Cents converts a currency amount to integer cents, rounding half away from zero.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer cents back to a currency amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// RoundQuantity rounds an ingredient quantity to two decimal places.
func RoundQuantity(q float64) float64 {
	return math.Round(q*100) / 100
}
