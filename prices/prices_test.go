package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutribudget"
	"nutribudget/activity"
)

func TestMockCatalog(t *testing.T) {
	items := MockCatalog()
	require.GreaterOrEqual(t, len(items), 15)

	names := map[string]bool{}
	for _, it := range items {
		assert.NotEmpty(t, it.Name)
		assert.Greater(t, it.UnitCost, 0.0)
		assert.Equal(t, nutribudget.SourceMock, it.Source)
		assert.Equal(t, "Walmart", it.Store)
		assert.False(t, names[it.Name], "duplicate %s", it.Name)
		names[it.Name] = true
	}

	var potatoes nutribudget.PricedIngredient
	for _, it := range items {
		if it.Name == "Potatoes" {
			potatoes = it
		}
	}
	assert.Equal(t, "lb", potatoes.Unit)
	assert.Equal(t, 5.0, potatoes.Quantity)
	assert.InDelta(t, 0.798, potatoes.UnitCost, 1e-9)
}

func TestDecodeCatalog(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantNames []string
		wantErr   bool
	}{
		{
			name: "yaml list",
			data: `
- name: Rice
  price: 2.5
  unit: per lb
  category: grains
- name: Eggs
  price: "$3.10"
  unit: dozen
`,
			wantNames: []string{"Rice", "Eggs"},
		},
		{
			name:      "json object",
			data:      `{"ingredients": [{"name": "Tofu", "unit_cost": 2.2, "unit": "block", "store": "Costco"}]}`,
			wantNames: []string{"Tofu"},
		},
		{
			name:      "duplicates collapse",
			data:      "- {name: Apples, price: 2}\n- {name: apple, price: 3}\n",
			wantNames: []string{"Apples"},
		},
		{name: "empty", data: "  ", wantErr: true},
		{name: "scalar document", data: "42", wantErr: true},
		{name: "missing price", data: "- name: Rice\n  unit: lb\n", wantErr: true},
		{name: "bad price", data: "- name: Rice\n  price: free\n", wantErr: true},
		{name: "no ingredients", data: "ingredients: []\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := DecodeCatalog([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var names []string
			for _, it := range items {
				names = append(names, it.Name)
				assert.Equal(t, nutribudget.SourceMock, it.Source)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}

	t.Run("fields", func(t *testing.T) {
		items, err := DecodeCatalog([]byte(`{"ingredients": [{"name": "Tofu", "unit_cost": 2.2, "unit": "block", "store": "Costco", "category": "Proteins"}]}`))
		require.NoError(t, err)
		assert.Equal(t, nutribudget.PricedIngredient{
			Name: "Tofu", Quantity: 1, Unit: "block", UnitCost: 2.2,
			Store: "Costco", Category: "proteins", Source: nutribudget.SourceMock,
		}, items[0])
	})
}

func TestParseIngredients(t *testing.T) {
	t.Run("array inside prose", func(t *testing.T) {
		text := "Here are prices in Chicago:\n```json\n" +
			`[{"name": "Brown Rice", "price": 2.5, "store": "Aldi", "category": "grains", "unit": "per lb"},` +
			`{"name": "Eggs", "price": "$2.99", "unit": "per dozen"},` +
			`{"name": "", "price": 1},` +
			`{"name": "Caviar", "price": -4},` +
			`{"name": "Mystery", "price": "ask"},` +
			`{"name": "brown rice", "price": 9}]` +
			"\n```\nPrices may vary."

		items, err := ParseIngredients(text)
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, "Brown Rice", items[0].Name)
		assert.Equal(t, "lb", items[0].Unit)
		assert.Equal(t, "Aldi", items[0].Store)
		assert.Equal(t, nutribudget.SourceResearch, items[0].Source)

		assert.Equal(t, "Eggs", items[1].Name)
		assert.Equal(t, 2.99, items[1].UnitCost)
		assert.Equal(t, "dozen", items[1].Unit)
		assert.Equal(t, defaultStore, items[1].Store)
	})

	t.Run("wrapped object", func(t *testing.T) {
		items, err := ParseIngredients(`{"items": [{"name": "Onions", "unit_cost": 1.99, "unit": "per 3 lbs"}]}`)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 3.0, items[0].Quantity)
		assert.InDelta(t, 1.99/3, items[0].UnitCost, 1e-9)
	})

	failures := map[string]string{
		"no json":       "Sorry, I could not find prices.",
		"malformed":     `[{"name": "Rice", "price": 2.5`,
		"no usable":     `[{"name": "Rice"}]`,
		"unknown shape": `{"data": [{"name": "Rice", "price": 2}]}`,
	}
	for name, text := range failures {
		t.Run(name, func(t *testing.T) {
			_, err := ParseIngredients(text)
			assert.ErrorIs(t, err, nutribudget.ErrCapabilityUnavailable)
		})
	}
}

type researcherFunc func(ctx context.Context, query string) (string, error)

func (f researcherFunc) Research(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

func TestOracle_FetchPrices(t *testing.T) {
	live := `[{"name": "Rice", "price": 2}, {"name": "Beans", "price": 1.2, "unit": "can"}, {"name": "Kale", "price": 3}]`

	tests := []struct {
		name       string
		researcher nutribudget.Researcher
		wantSource nutribudget.IngredientSource
		wantCount  int
		wantLog    string
	}{
		{
			name:       "no researcher",
			wantSource: nutribudget.SourceMock,
			wantCount:  len(builtin),
			wantLog:    "⚠️ Live price research unavailable, using 25 typical prices",
		},
		{
			name: "research error",
			researcher: researcherFunc(func(ctx context.Context, query string) (string, error) {
				return "", errors.New("rate limited")
			}),
			wantSource: nutribudget.SourceMock,
			wantCount:  len(builtin),
			wantLog:    "⚠️ Live price research unavailable, using 25 typical prices",
		},
		{
			name: "timeout",
			researcher: researcherFunc(func(ctx context.Context, query string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}),
			wantSource: nutribudget.SourceMock,
			wantCount:  len(builtin),
			wantLog:    "⚠️ Live price research unavailable, using 25 typical prices",
		},
		{
			name: "unparseable answer",
			researcher: researcherFunc(func(ctx context.Context, query string) (string, error) {
				return "prices are high these days", nil
			}),
			wantSource: nutribudget.SourceMock,
			wantCount:  len(builtin),
			wantLog:    "⚠️ Live price research unavailable, using 25 typical prices",
		},
		{
			name: "live research",
			researcher: researcherFunc(func(ctx context.Context, query string) (string, error) {
				return live, nil
			}),
			wantSource: nutribudget.SourceResearch,
			wantCount:  3,
			wantLog:    "✅ Found 3 ingredient prices near Chicago from live research",
		},
		{
			name: "research answered with mock provenance",
			researcher: researcherFunc(func(ctx context.Context, query string) (string, error) {
				return `[{"name": "Rice", "price": 2, "unit": "lb", "source": "mock"},` +
					`{"name": "Beans", "price": 1.5, "unit": "lb", "source": "MOCK"}]`, nil
			}),
			wantSource: nutribudget.SourceMock,
			wantCount:  2,
			wantLog:    "✅ Found 2 ingredient prices near Chicago from sample prices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := NewOracle(tt.researcher, WithTimeout(20*time.Millisecond))
			log := activity.New()

			items := oracle.FetchPrices(context.Background(), "Chicago", nil, log)
			require.Len(t, items, tt.wantCount)
			for _, it := range items {
				assert.Equal(t, tt.wantSource, it.Source)
			}

			entries := log.Read(0)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLog, entries[0].Message)
		})
	}
}

func TestOracle_QueryNamesLocationAndCategories(t *testing.T) {
	var got string
	oracle := NewOracle(researcherFunc(func(ctx context.Context, query string) (string, error) {
		got = query
		return "", errors.New("offline")
	}))
	oracle.FetchPrices(context.Background(), "Toronto", []string{"proteins", "grains"}, activity.New())

	assert.Contains(t, got, "Toronto")
	assert.Contains(t, got, "proteins, grains")
}

func TestOracle_WithCatalog(t *testing.T) {
	custom := []nutribudget.PricedIngredient{{Name: "Rice", Quantity: 1, Unit: "lb", UnitCost: 2, Source: nutribudget.SourceMock}}
	oracle := NewOracle(nil, WithCatalog(custom))

	items := oracle.FetchPrices(context.Background(), "Chicago", nil, activity.New())
	assert.Equal(t, custom, items)

	items[0].Name = "changed"
	assert.Equal(t, "Rice", oracle.Catalog()[0].Name)

	assert.Len(t, NewOracle(nil, WithCatalog(nil)).Catalog(), len(builtin))
}
