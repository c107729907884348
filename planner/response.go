package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"nutribudget"
)

var quantityPattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)|\d+(?:\.\d+)?|\.\d+`)

// flexNumber accepts 1.5, "1.5", "1/2 cup" or "2 cans"; anything else decodes to 0.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = flexNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*n = 0
		return nil
	}
	m := quantityPattern.FindStringSubmatch(s)
	switch {
	case m == nil:
		*n = 0
	case m[1] != "":
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den > 0 {
			*n = flexNumber(num / den)
		}
	default:
		f, _ := strconv.ParseFloat(m[0], 64)
		*n = flexNumber(f)
	}
	return nil
}

// flexDay accepts 3, "3", "Day 3" or "Wednesday".
type flexDay int

func (d *flexDay) UnmarshalJSON(b []byte) error {
	var i int
	if err := json.Unmarshal(b, &i); err == nil {
		*d = flexDay(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range nutribudget.DayNames {
		if strings.HasPrefix(s, strings.ToLower(name[:3])) {
			*d = flexDay(i + 1)
			return nil
		}
	}
	if m := quantityPattern.FindString(s); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			*d = flexDay(v)
		}
	}
	return nil
}

// flexText accepts a string or a number of minutes.
type flexText string

func (t *flexText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = flexText(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*t = flexText(fmt.Sprintf("%g minutes", f))
	}
	return nil
}

type wireIngredient struct {
	Name       string     `json:"name"`
	Ingredient string     `json:"ingredient"`
	Quantity   flexNumber `json:"quantity"`
}

type wireMeal struct {
	Name         string           `json:"name"`
	Instructions string           `json:"instructions"`
	Recipe       string           `json:"recipe"`
	CookingTime  flexText         `json:"cooking_time"`
	Difficulty   string           `json:"difficulty"`
	Ingredients  []wireIngredient `json:"ingredients"`
}

type wireDay struct {
	Day       flexDay             `json:"day"`
	Name      string              `json:"name"`
	Meals     map[string]wireMeal `json:"meals"`
	Breakfast *wireMeal           `json:"breakfast"`
	Lunch     *wireMeal           `json:"lunch"`
	Dinner    *wireMeal           `json:"dinner"`
}

type wirePlan struct {
	Days          []wireDay `json:"days"`
	CookingTips   []string  `json:"cooking_tips"`
	StorageAdvice []string  `json:"storage_advice"`
}

func (m wireMeal) toMeal() nutribudget.Meal {
	meal := nutribudget.Meal{
		Name:         strings.TrimSpace(m.Name),
		Instructions: strings.TrimSpace(m.Instructions),
		CookingTime:  string(m.CookingTime),
		Difficulty:   strings.ToLower(strings.TrimSpace(m.Difficulty)),
	}
	if meal.Instructions == "" {
		meal.Instructions = strings.TrimSpace(m.Recipe)
	}
	for _, ing := range m.Ingredients {
		name := ing.Name
		if name == "" {
			name = ing.Ingredient
		}
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		meal.Ingredients = append(meal.Ingredients, nutribudget.MealIngredient{Name: name, Quantity: float64(ing.Quantity)})
	}
	return meal
}

func (d wireDay) meal(slot nutribudget.MealSlot) (wireMeal, bool) {
	for k, m := range d.Meals {
		if strings.EqualFold(strings.TrimSpace(k), string(slot)) {
			return m, true
		}
	}
	var m *wireMeal
	switch slot {
	case nutribudget.Breakfast:
		m = d.Breakfast
	case nutribudget.Lunch:
		m = d.Lunch
	case nutribudget.Dinner:
		m = d.Dinner
	}
	if m == nil {
		return wireMeal{}, false
	}
	return *m, true
}

// parsedPlan is what one generation attempt produced.
type parsedPlan struct {
	days          map[int]nutribudget.DayPlan
	cookingTips   []string
	storageAdvice []string
}

// parsePlan reads the complete days out of a generator answer. Days without a usable
// number take the position of the requested day they were listed at. Only requested days
// are kept.
func parsePlan(text string, requested []int) (parsedPlan, error) {
	raw, ok := nutribudget.ExtractJSON(text)
	if !ok {
		return parsedPlan{}, fmt.Errorf("%w: no JSON in plan response", nutribudget.ErrCapabilityUnavailable)
	}

	var wp wirePlan
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &wp.Days); err != nil {
			return parsedPlan{}, fmt.Errorf("%w: malformed plan JSON: %v", nutribudget.ErrCapabilityUnavailable, err)
		}
	} else if err := json.Unmarshal([]byte(raw), &wp); err != nil {
		return parsedPlan{}, fmt.Errorf("%w: malformed plan JSON: %v", nutribudget.ErrCapabilityUnavailable, err)
	}

	want := make(map[int]bool, len(requested))
	for _, d := range requested {
		want[d] = true
	}

	out := parsedPlan{
		days:          map[int]nutribudget.DayPlan{},
		cookingTips:   wp.CookingTips,
		storageAdvice: wp.StorageAdvice,
	}
	for i, wd := range wp.Days {
		num := int(wd.Day)
		if num == 0 && i < len(requested) {
			num = requested[i]
		}
		if !want[num] {
			continue
		}
		if _, dup := out.days[num]; dup {
			continue
		}

		day := nutribudget.DayPlan{Day: num, Name: nutribudget.DayNames[num-1], Meals: map[nutribudget.MealSlot]nutribudget.Meal{}}
		for _, slot := range nutribudget.MealSlots {
			if m, ok := wd.meal(slot); ok {
				day.Meals[slot] = m.toMeal()
			}
		}
		if day.IsComplete() {
			out.days[num] = day
		}
	}
	return out, nil
}
