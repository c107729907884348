package prices

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"nutribudget"
)

type catalogEntry struct {
	Name     string    `yaml:"name"`
	Price    flexPrice `yaml:"price"`
	UnitCost flexPrice `yaml:"unit_cost"`
	Unit     string    `yaml:"unit"`
	Store    string    `yaml:"store"`
	Category string    `yaml:"category"`
}

type catalogDocument struct {
	Ingredients []catalogEntry `yaml:"ingredients"`
}

// flexPrice decodes a YAML scalar that is either a number or a string like "$2.50".
type flexPrice float64

func (p *flexPrice) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: price must be a scalar", value.Line)
	}
	v, ok := parsePrice(value.Value)
	if !ok {
		return fmt.Errorf("line %d: invalid price %q", value.Line, value.Value)
	}
	*p = flexPrice(v)
	return nil
}

var builtin = []catalogEntry{
	{Name: "Brown Rice", Price: 2.50, Category: "grains", Unit: "per lb"},
	{Name: "Chicken Breast", Price: 4.99, Category: "proteins", Unit: "per lb"},
	{Name: "Black Beans", Price: 1.25, Category: "proteins", Unit: "per can"},
	{Name: "Eggs", Price: 2.99, Category: "proteins", Unit: "per dozen"},
	{Name: "Potatoes", Price: 3.99, Category: "vegetables", Unit: "per 5 lbs"},
	{Name: "Carrots", Price: 1.50, Category: "vegetables", Unit: "per lb"},
	{Name: "Broccoli", Price: 2.99, Category: "vegetables", Unit: "per lb"},
	{Name: "Onions", Price: 1.99, Category: "vegetables", Unit: "per 3 lbs"},
	{Name: "Bananas", Price: 1.99, Category: "fruits", Unit: "per lb"},
	{Name: "Apples", Price: 2.99, Category: "fruits", Unit: "per lb"},
	{Name: "Whole Wheat Bread", Price: 2.50, Category: "grains", Unit: "per loaf"},
	{Name: "Oats", Price: 2.99, Category: "grains", Unit: "per container"},
	{Name: "Ground Turkey", Price: 4.50, Category: "proteins", Unit: "per lb"},
	{Name: "Spinach", Price: 2.50, Category: "vegetables", Unit: "per bag"},
	{Name: "Tomatoes", Price: 2.99, Category: "vegetables", Unit: "per lb"},
	{Name: "Pasta", Price: 1.99, Category: "grains", Unit: "per box"},
	{Name: "Canned Tuna", Price: 1.75, Category: "proteins", Unit: "per can"},
	{Name: "Peanut Butter", Price: 3.50, Category: "proteins", Unit: "per jar"},
	{Name: "Milk", Price: 4.99, Category: "dairy", Unit: "per gallon"},
	{Name: "Cheese", Price: 3.99, Category: "dairy", Unit: "per block"},
	{Name: "Yogurt", Price: 2.99, Category: "dairy", Unit: "per container"},
	{Name: "Cabbage", Price: 1.99, Category: "vegetables", Unit: "per head"},
	{Name: "Bell Peppers", Price: 2.50, Category: "vegetables", Unit: "per lb"},
	{Name: "Garlic", Price: 1.50, Category: "vegetables", Unit: "per bulb"},
	{Name: "Lentils", Price: 2.25, Category: "proteins", Unit: "per lb"},
}

// MockCatalog returns the built-in fallback price list.
func MockCatalog() []nutribudget.PricedIngredient {
	items := make([]nutribudget.PricedIngredient, 0, len(builtin))
	for _, e := range builtin {
		it, _ := newIngredient(e.Name, float64(e.Price), e.Unit, "Walmart", e.Category, nutribudget.SourceMock)
		items = append(items, it)
	}
	return items
}

// DecodeCatalog reads a replacement catalog from YAML or JSON. The document is either
// a list of entries or an object with an "ingredients" list. Entries accept "price" or
// "unit_cost".
func DecodeCatalog(data []byte) ([]nutribudget.PricedIngredient, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("catalog is empty")
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, errors.New("catalog is empty")
	}

	var entries []catalogEntry
	switch doc := root.Content[0]; doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to decode catalog entries: %w", err)
		}
	case yaml.MappingNode:
		var wrapped catalogDocument
		if err := doc.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode catalog entries: %w", err)
		}
		entries = wrapped.Ingredients
	default:
		return nil, errors.New("catalog must be a list or an object with an ingredients list")
	}

	items := make([]nutribudget.PricedIngredient, 0, len(entries))
	for i, e := range entries {
		price := e.Price
		if price <= 0 {
			price = e.UnitCost
		}
		it, ok := newIngredient(e.Name, float64(price), e.Unit, e.Store, e.Category, nutribudget.SourceMock)
		if !ok {
			return nil, fmt.Errorf("catalog entry %d (%q) needs a name and a positive price", i, e.Name)
		}
		items = append(items, it)
	}

	items = dedupe(items)
	if len(items) == 0 {
		return nil, errors.New("catalog has no ingredients")
	}
	return items, nil
}
