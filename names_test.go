package nutribudget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Brown Rice", "brown rice"},
		{"  BELL   Peppers ", "bell pepper"},
		{"Tomatoes", "tomato"},
		{"Berries", "berry"},
		{"Oats", "oat"},
		{"Hummus", "hummus"},
		{"Peanut-Butter", "peanut butter"},
		{"Baker's Yeast", "baker yeast"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestContainsTerm(t *testing.T) {
	assert.True(t, ContainsTerm("Peanut Butter", "peanuts"))
	assert.True(t, ContainsTerm("Chicken Breast", "chicken"))
	assert.False(t, ContainsTerm("Peanut Butter", "nut"))
	assert.False(t, ContainsTerm("Eggplant", "egg"))
	assert.False(t, ContainsTerm("Eggs", ""))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "bare array",
			text:   `[{"name":"Eggs"}]`,
			want:   `[{"name":"Eggs"}]`,
			wantOK: true,
		},
		{
			name:   "fenced object with prose",
			text:   "Here you go:\n```json\n{\"days\": [1, 2]}\n```\nEnjoy!",
			want:   `{"days": [1, 2]}`,
			wantOK: true,
		},
		{
			name:   "brackets inside strings",
			text:   `note {"name": "rice [long grain] }"} trailing`,
			want:   `{"name": "rice [long grain] }"}`,
			wantOK: true,
		},
		{
			name:   "unbalanced first candidate",
			text:   `[oops {"ok": true}`,
			want:   `{"ok": true}`,
			wantOK: true,
		},
		{
			name:   "no json",
			text:   "sorry, no prices available",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortion(t *testing.T) {
	tests := []struct {
		unit string
		want float64
	}{
		{"lb", 0.2},
		{"per lbs", 0.2},
		{"5 lb bag", 0.1},
		{"/can", 0.33},
		{"Dozen", 0.17},
		{"sack", defaultPortion},
		{"", 1},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			assert.InDelta(t, tt.want, Portion(tt.unit), 1e-9)
		})
	}
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(7875), Cents(78.75))
	assert.Equal(t, int64(10), Cents(0.1))
	assert.Equal(t, int64(33), Cents(0.3333))
	assert.Equal(t, 78.75, FromCents(7875))
}
