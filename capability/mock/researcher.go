package mock

import (
	"context"
	"encoding/json"
	"log/slog"
)

type priceEntry struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Store    string `json:"store"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
	Source   string `json:"source"`
}

// researchPrices reads like a grounded model answer: string prices, "per" units and
// a mix of stores. Entries carry mock provenance.
var researchPrices = []priceEntry{
	{"Chicken Thighs", "$2.29", "Aldi", "proteins", "per lb", "mock"},
	{"Eggs", "$2.89", "Aldi", "proteins", "per dozen", "mock"},
	{"Dried Black Beans", "$1.49", "Aldi", "proteins", "per lb", "mock"},
	{"Canned Chickpeas", "$0.89", "Aldi", "proteins", "per can", "mock"},
	{"Peanut Butter", "$2.19", "Aldi", "proteins", "per jar", "mock"},
	{"Long Grain Rice", "$3.49", "Walmart", "grains", "per 5 lbs", "mock"},
	{"Rolled Oats", "$2.79", "Walmart", "grains", "per container", "mock"},
	{"Spaghetti", "$0.98", "Walmart", "grains", "per box", "mock"},
	{"Corn Tortillas", "$1.99", "Walmart", "grains", "per pack", "mock"},
	{"Potatoes", "$3.99", "Walmart", "vegetables", "per 5 lbs", "mock"},
	{"Carrots", "$0.99", "Aldi", "vegetables", "per lb", "mock"},
	{"Frozen Mixed Vegetables", "$1.29", "Aldi", "vegetables", "per bag", "mock"},
	{"Onions", "$1.09", "Aldi", "vegetables", "per lb", "mock"},
	{"Green Cabbage", "$0.69", "Walmart", "vegetables", "per lb", "mock"},
	{"Bananas", "$0.58", "Walmart", "fruits", "per lb", "mock"},
	{"Apples", "$1.49", "Aldi", "fruits", "per lb", "mock"},
	{"Frozen Berries", "$2.99", "Aldi", "fruits", "per bag", "mock"},
	{"Whole Milk", "$3.19", "Walmart", "dairy", "per gallon", "mock"},
	{"Cheddar Cheese", "$2.49", "Aldi", "dairy", "per block", "mock"},
	{"Plain Yogurt", "$2.29", "Aldi", "dairy", "per container", "mock"},
}

type Researcher struct{}

func NewResearcher() *Researcher {
	return &Researcher{}
}

// Research returns the same price list for every query.
func (r *Researcher) Research(ctx context.Context, query string) (string, error) {
	slog.Info("LLM_CLIENT: Research invoked", "provider", "mock", "query_len", len(query))
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := json.Marshal(map[string]any{"ingredients": researchPrices})
	if err != nil {
		return "", err
	}
	return "Here are current prices I found:\n```json\n" + string(b) + "\n```", nil
}
