package nutribudget

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeDay(n int) DayPlan {
	meal := Meal{Name: "Rice and Beans", Ingredients: []MealIngredient{{Name: "Brown Rice", Quantity: 0.5}}}
	return DayPlan{Day: n, Meals: map[MealSlot]Meal{Breakfast: meal, Lunch: meal, Dinner: meal}}
}

func TestMealPlan_IsValid(t *testing.T) {
	full := func() MealPlan {
		var mp MealPlan
		for d := 1; d <= PlanDays; d++ {
			mp.Days = append(mp.Days, completeDay(d))
		}
		return mp
	}

	tests := []struct {
		name string
		plan func() MealPlan
		want bool
	}{
		{"seven complete days", full, true},
		{"missing a day", func() MealPlan { mp := full(); mp.Days = mp.Days[:6]; return mp }, false},
		{"days out of order", func() MealPlan { mp := full(); mp.Days[0].Day = 2; return mp }, false},
		{"missing dinner", func() MealPlan { mp := full(); delete(mp.Days[3].Meals, Dinner); return mp }, false},
		{"meal without ingredients", func() MealPlan {
			mp := full()
			mp.Days[5].Meals[Lunch] = Meal{Name: "Air"}
			return mp
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp := tt.plan()
			assert.Equal(t, tt.want, mp.IsValid())
		})
	}
}

func TestProfile_IsComplete(t *testing.T) {
	p := Profile{WeeklyBudget: 75, HouseholdSize: 4, Location: "Chicago", RestrictionsSet: true}
	assert.False(t, p.HasAllFields())

	p.PreferencesSet = true
	assert.True(t, p.HasAllFields())
	assert.False(t, p.IsComplete())

	p.Confirmed = true
	assert.True(t, p.IsComplete())
}

func TestFileGenerationLogger_Flush(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFileGenerationLogger(&buf)

	require.NoError(t, logger.LogAttempt(AttemptLog{Phase: "generate", Attempt: 1, Days: []int{1, 2}}))
	require.NoError(t, logger.LogAttempt(AttemptLog{Phase: "generate", Attempt: 2, Error: "timeout"}))
	require.NoError(t, logger.Flush())

	var out struct {
		GenerationLog struct {
			Attempts []AttemptLog `json:"attempts"`
		} `json:"generation_log"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.GenerationLog.Attempts, 2)
	assert.Equal(t, []int{1, 2}, out.GenerationLog.Attempts[0].Days)
	assert.Equal(t, "timeout", out.GenerationLog.Attempts[1].Error)
	assert.Empty(t, logger.attempts)
}

func TestStdoutGenerationLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := &StdoutGenerationLogger{out: &buf}

	require.NoError(t, logger.LogAttempt(AttemptLog{Phase: "research", Attempt: 1}))
	assert.Contains(t, buf.String(), `"phase":"research"`)
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestDumpTo(t *testing.T) {
	var buf bytes.Buffer
	DumpTo(&buf, GroceryItem{Name: "Oats", Quantity: 1.5, Unit: "container", Cost: 4.49, Store: "Aldi"})

	out := buf.String()
	assert.Contains(t, out, "nutribudget.GroceryItem")
	assert.Contains(t, out, `Name: (string) (len=4) "Oats"`)
	assert.Contains(t, out, "Quantity: (float64) 1.5")
}
