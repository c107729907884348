package planner

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// SchemaTitle names the shape hint sent with plan requests.
const SchemaTitle = "meal_plan"

func mealSchema() *jsonschema.Schema {
	minQty := 0.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":         {Type: "string"},
			"instructions": {Type: "string"},
			"cooking_time": {Type: "string"},
			"difficulty":   {Type: "string"},
			"ingredients": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":     {Type: "string"},
						"quantity": {Type: "number", Minimum: &minQty},
					},
					Required: []string{"name", "quantity"},
				},
			},
		},
		Required: []string{"name", "ingredients"},
	}
}

// Schema describes the JSON a generator is asked to return for a plan request.
func Schema() *jsonschema.Schema {
	minDay := 1.0
	return &jsonschema.Schema{
		Type:  "object",
		Title: SchemaTitle,
		Properties: map[string]*jsonschema.Schema{
			"days": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"day":  {Type: "integer", Minimum: &minDay},
						"name": {Type: "string"},
						"meals": {
							Type: "object",
							Properties: map[string]*jsonschema.Schema{
								"breakfast": mealSchema(),
								"lunch":     mealSchema(),
								"dinner":    mealSchema(),
							},
							Required: []string{"breakfast", "lunch", "dinner"},
						},
					},
					Required: []string{"day", "meals"},
				},
			},
			"cooking_tips":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"storage_advice": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"days"},
	}
}
