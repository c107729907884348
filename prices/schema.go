package prices

import (
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// DefaultCategories are researched when the caller does not name any.
var DefaultCategories = []string{"proteins", "grains", "vegetables", "fruits", "dairy"}

// Schema describes the price list a research answer should contain.
func Schema() *jsonschema.Schema {
	minPrice := 0.0
	return &jsonschema.Schema{
		Type:  "object",
		Title: "price_list",
		Properties: map[string]*jsonschema.Schema{
			"ingredients": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":     {Type: "string"},
						"price":    {Type: "number", Minimum: &minPrice},
						"store":    {Type: "string"},
						"category": {Type: "string"},
						"unit":     {Type: "string"},
					},
					Required: []string{"name", "price", "unit"},
				},
			},
		},
		Required: []string{"ingredients"},
	}
}

// Query builds the research question for a location.
func Query(location string, categories []string) string {
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Find current grocery prices for affordable, healthy staple ingredients at budget-friendly stores in %s.\n", location)
	fmt.Fprintf(&b, "Cover these categories: %s. Include at least 4 ingredients per category.\n", strings.Join(categories, ", "))
	b.WriteString("Use prices in the local currency and typical package units.\n\n")
	b.WriteString("Respond with JSON only, in this shape:\n")
	b.WriteString(`{"ingredients": [{"name": "Brown Rice", "price": 2.50, "store": "Walmart", "category": "grains", "unit": "per lb"}]}`)
	return b.String()
}
