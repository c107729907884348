package intake

import (
	"fmt"
	"strings"

	"nutribudget"
)

const welcomeMessage = "Hi! I'm NutriBudget. I'll build you a 7-day meal plan and grocery list that fits your weekly food budget."

var fieldPrompts = map[Field]string{
	FieldBudget:        `What's your weekly food budget? (e.g. "$100" or "100 CAD")`,
	FieldHouseholdSize: `How many people are you feeding? (e.g. "4" or "4 people")`,
	FieldLocation:      `Which city are you shopping in? (e.g. "Toronto" or "I'm in Chicago")`,
	FieldRestrictions:  `Any dietary restrictions or allergies? List them separated by commas (e.g. "vegetarian, no peanuts"), or say "none".`,
	FieldPreferences:   `Any food preferences I should lean towards? (e.g. "chicken, rice, spicy food"), or say "none".`,
}

var fieldReprompts = map[Field]string{
	FieldBudget:        `Sorry, I couldn't find a positive amount in that. Please give your weekly budget as a number, like "$100" or "100 CAD".`,
	FieldHouseholdSize: `Sorry, I need a whole number of people greater than zero, like "4" or "4 people".`,
	FieldLocation:      `Please tell me the city or region where you shop, like "Chicago".`,
	FieldRestrictions:  `Please list any dietary restrictions separated by commas, or say "none".`,
	FieldPreferences:   `Please list any food preferences separated by commas, or say "none".`,
}

const chooseFieldMessage = "No problem. What would you like to change: budget, household size, location, restrictions or preferences?"

const confirmRepromptMessage = `Please answer "yes" if everything looks right, or "no" and tell me what to change (e.g. "no, change budget").`

const researchingMessage = "Great! I'm researching grocery prices near you and building your plan now."

const busyMessage = "I'm still working on your meal plan. Keep an eye on the activity log for progress."

const completeMessage = `Your meal plan is ready. Ask me about any meal, or say "start over" to plan another week.`

func formatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "none"
	}
	return strings.Join(tags, ", ")
}

// Summary renders the profile for confirmation.
func Summary(p nutribudget.Profile) string {
	var b strings.Builder
	b.WriteString("Here's what I have:\n")
	fmt.Fprintf(&b, "- Weekly budget: %s\n", formatMoney(p.WeeklyBudget))
	fmt.Fprintf(&b, "- Household size: %d\n", p.HouseholdSize)
	fmt.Fprintf(&b, "- Location: %s\n", p.Location)
	fmt.Fprintf(&b, "- Dietary restrictions: %s\n", formatTags(p.DietaryRestrictions))
	fmt.Fprintf(&b, "- Food preferences: %s\n", formatTags(p.FoodPreferences))
	b.WriteString("\nIs this correct? (yes/no)")
	return b.String()
}
