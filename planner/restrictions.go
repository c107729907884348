package planner

import (
	"sort"
	"strings"

	"nutribudget"
)

var (
	meats     = []string{"chicken", "beef", "pork", "turkey", "ham", "bacon", "sausage", "lamb", "veal", "steak", "meat", "prosciutto", "pepperoni", "salami", "duck", "venison", "goat", "chorizo", "hot dog"}
	shellfish = []string{"shrimp", "prawn", "crab", "lobster", "clam", "mussel", "oyster", "scallop"}
	fish      = append([]string{"fish", "tuna", "salmon", "cod", "tilapia", "sardine", "anchovy", "trout", "mackerel", "halibut", "pollock"}, shellfish...)
	dairy     = []string{"milk", "cheese", "yogurt", "yoghurt", "butter", "cream", "whey", "ghee", "kefir", "paneer", "ricotta", "mozzarella", "cheddar", "parmesan"}
	gluten    = []string{"wheat", "bread", "pasta", "spaghetti", "noodle", "flour", "barley", "rye", "couscous", "bagel", "cracker", "tortilla", "seitan", "cereal", "macaroni"}
	nuts      = []string{"peanut", "almond", "walnut", "cashew", "pecan", "pistachio", "hazelnut", "macadamia", "nut"}
	pork      = []string{"pork", "bacon", "ham", "prosciutto", "pepperoni", "salami", "chorizo", "lard"}
)

// groups maps a food group named in a tag ("no dairy", "gluten-free") to its terms.
var groups = map[string][]string{
	"meat":      meats,
	"fish":      fish,
	"seafood":   fish,
	"shellfish": shellfish,
	"dairy":     dairy,
	"lactose":   dairy,
	"milk":      dairy,
	"gluten":    gluten,
	"wheat":     gluten,
	"nut":       nuts,
	"tree nut":  nuts,
	"peanut":    nuts,
	"egg":       {"egg"},
	"pork":      pork,
}

// diets maps a diet name to the groups it rules out.
var diets = map[string][]string{
	"vegetarian":  {"meat", "fish"},
	"vegan":       {"meat", "fish", "dairy", "egg"},
	"plant based": {"meat", "fish", "dairy", "egg"},
	"pescatarian": {"meat"},
	"halal":       {"pork"},
	"kosher":      {"pork", "shellfish"},
	"celiac":      {"gluten"},
	"coeliac":     {"gluten"},
}

// groupCategories lets a whole ingredient category be ruled out by a group.
var groupCategories = map[string]string{
	"dairy":   "dairy",
	"lactose": "dairy",
	"milk":    "dairy",
	"meat":    "meat",
	"seafood": "seafood",
	"fish":    "seafood",
}

// exempt names contain an excluded term without containing the food it names.
var exempt = map[string]string{
	"peanut butter":   "butter",
	"almond butter":   "butter",
	"cashew butter":   "butter",
	"apple butter":    "butter",
	"coconut milk":    "milk",
	"almond milk":     "milk",
	"oat milk":        "milk",
	"soy milk":        "milk",
	"rice milk":       "milk",
	"cream of tartar": "cream",
}

// tagFillers are leading words of a natural answer ("I'm vegetarian", "we are strictly vegan").
var tagFillers = []string{"i'm ", "i’m ", "im ", "i am ", "we're ", "we’re ", "we are ", "i ", "we ", "all ", "strictly ", "fully ", "completely "}

var tagPrefixes = []string{"allergic to ", "can't eat ", "cant eat ", "cannot eat ", "no more ", "don't eat ", "dont eat ", "do not eat ", "without ", "avoid ", "not ", "no "}

var tagSuffixes = []string{" allergies", " allergy", " intolerance", " intolerant", " free", "-free", " diet"}

// Exclusions is the set of ingredient terms ruled out by a list of dietary restrictions.
type Exclusions struct {
	terms      []string
	categories map[string]bool
}

// NewExclusions interprets restriction tags. Known diets ("vegan") and food groups
// ("gluten-free", "no dairy") expand to their member foods wherever they appear in the
// tag; the remaining words name a food directly ("no peanuts", "shrimp allergy").
func NewExclusions(tags []string) Exclusions {
	e := Exclusions{categories: map[string]bool{}}
	seen := map[string]bool{}
	add := func(terms ...string) {
		for _, t := range terms {
			if n := nutribudget.NormalizeName(t); n != "" && !seen[n] {
				seen[n] = true
				e.terms = append(e.terms, n)
			}
		}
	}
	addGroup := func(g string) {
		add(groups[g]...)
		if c, ok := groupCategories[g]; ok {
			e.categories[c] = true
		}
	}

	for _, tag := range splitAlternatives(tags) {
		term := stripTag(tag)
		for _, d := range sortedKeys(diets) {
			if mentions(term, d) {
				for _, g := range diets[d] {
					addGroup(g)
				}
			}
		}
		for _, g := range sortedKeys(groups) {
			if mentions(term, g) && !isExempt(term, g) {
				addGroup(g)
			}
		}
		add(term)
	}
	return e
}

// splitAlternatives lowercases tags and splits "chicken or fish" and "nuts/eggs".
func splitAlternatives(tags []string) []string {
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.ReplaceAll(tag, "/", " or "))
		for _, part := range strings.Split(tag, " or ") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// mentions reports whether key appears as whole words in tag and is not negated by "non".
func mentions(tag, key string) bool {
	return nutribudget.ContainsTerm(tag, key) && !nutribudget.ContainsTerm(tag, "non "+key)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stripTag(tag string) string {
	tag = strings.TrimSpace(tag)
	for stripped := true; stripped; {
		stripped = false
		for _, f := range tagFillers {
			if strings.HasPrefix(tag, f) {
				tag = strings.TrimSpace(strings.TrimPrefix(tag, f))
				stripped = true
			}
		}
	}
	for _, p := range tagPrefixes {
		if strings.HasPrefix(tag, p) {
			tag = strings.TrimPrefix(tag, p)
			break
		}
	}
	for _, s := range tagSuffixes {
		if strings.HasSuffix(tag, s) {
			tag = strings.TrimSuffix(tag, s)
			break
		}
	}
	return strings.TrimSpace(tag)
}

// Empty reports whether nothing is excluded.
func (e Exclusions) Empty() bool {
	return len(e.terms) == 0 && len(e.categories) == 0
}

// Excludes reports whether ing is ruled out.
func (e Exclusions) Excludes(ing nutribudget.PricedIngredient) bool {
	if e.categories[strings.ToLower(ing.Category)] {
		return true
	}
	name := nutribudget.NormalizeName(ing.Name)
	for _, term := range e.terms {
		if !nutribudget.ContainsTerm(name, term) {
			continue
		}
		if !isExempt(name, term) {
			return true
		}
	}
	return false
}

func isExempt(name, term string) bool {
	for phrase, t := range exempt {
		if t == term && nutribudget.ContainsTerm(name, phrase) {
			return true
		}
	}
	return false
}

// Filter drops every ingredient ruled out by restrictions and returns the names it dropped.
func Filter(ings []nutribudget.PricedIngredient, restrictions []string) ([]nutribudget.PricedIngredient, []string) {
	ex := NewExclusions(restrictions)
	kept := make([]nutribudget.PricedIngredient, 0, len(ings))
	var dropped []string
	for _, ing := range ings {
		if ex.Excludes(ing) {
			dropped = append(dropped, ing.Name)
			continue
		}
		kept = append(kept, ing)
	}
	return kept, dropped
}

// Prefers reports whether ing matches one of the food preferences by name or category.
func Prefers(ing nutribudget.PricedIngredient, prefs []string) bool {
	for _, p := range prefs {
		if nutribudget.ContainsTerm(ing.Name, p) || nutribudget.ContainsTerm(p, ing.Name) {
			return true
		}
		if ing.Category != "" && nutribudget.NormalizeName(ing.Category) == nutribudget.NormalizeName(p) {
			return true
		}
	}
	return false
}

// Boost returns a copy of ings with preferred ingredients moved to the front, keeping
// the relative order within each group.
func Boost(ings []nutribudget.PricedIngredient, prefs []string) []nutribudget.PricedIngredient {
	out := append([]nutribudget.PricedIngredient(nil), ings...)
	if len(prefs) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Prefers(out[i], prefs) && !Prefers(out[j], prefs)
	})
	return out
}
