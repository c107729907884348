package intake

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"nutribudget"
)

var (
	amountPattern  = regexp.MustCompile(`(?:[$€£]\s*)?-?\d[\d,]*(?:\.\d+)?|-?\.\d+`)
	integerPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	tagSeparators  = regexp.MustCompile(`\s*(?:,|;|&|\n|\band\b|\bplus\b)\s*`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"just me": 1, "myself": 1, "couple": 2,
}

var noneWords = map[string]bool{
	"none": true, "no": true, "nothing": true, "n/a": true, "na": true, "nope": true,
	"no restrictions": true, "no preferences": true, "no preference": true,
	"nothing special": true, "anything": true, "none really": true, "no thanks": true,
}

var locationPrefixes = []string{
	"i'm in ", "im in ", "i am in ", "i live in ", "we're in ", "we are in ",
	"we live in ", "located in ", "in ",
}

// ParseBudget extracts the first amount from text such as "$100", "100 CAD" or
// "my budget is $75 per week". A comma followed by exactly two final digits is a decimal
// comma ("12,50"). A minus sign counts only when it starts a word ("-5", "$-5", not
// "weekly-100" or "budget - $100"). Non-positive amounts are rejected.
func ParseBudget(text string) (float64, error) {
	loc := amountPattern.FindStringIndex(text)
	if loc == nil {
		return 0, fmt.Errorf("%w: no amount found in %q", nutribudget.ErrParse, text)
	}
	match := text[loc[0]:loc[1]]

	negative := false
	switch {
	case strings.HasPrefix(match, "-"):
		negative = startsWord(text, loc[0])
	case loc[0] > 0 && text[loc[0]-1] == '-':
		negative = startsWord(text, loc[0]-1)
	case strings.Contains(match, "-"):
		negative = true
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			return r
		}
		return -1
	}, match)
	if i := strings.LastIndexByte(cleaned, ','); i >= 0 && !strings.Contains(cleaned, ".") && len(cleaned)-i == 3 {
		cleaned = cleaned[:i] + "." + cleaned[i+1:]
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", nutribudget.ErrParse, match)
	}
	if negative || v <= 0 {
		return 0, fmt.Errorf("%w: budget must be positive, got %q", nutribudget.ErrParse, strings.TrimSpace(match))
	}
	return v, nil
}

// startsWord reports whether the byte at i is not preceded by a letter or digit.
func startsWord(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// ParseHouseholdSize extracts the first whole number (digits or a small number word).
func ParseHouseholdSize(text string) (int, error) {
	if match := integerPattern.FindString(text); match != "" {
		n, err := strconv.Atoi(match)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: household size must be a positive whole number, got %q", nutribudget.ErrParse, match)
		}
		return n, nil
	}

	lower := strings.ToLower(text)
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool { return r == ' ' || r == ',' || r == '.' || r == '!' }) {
		if n, ok := numberWords[word]; ok {
			return n, nil
		}
	}
	for phrase, n := range numberWords {
		if strings.Contains(phrase, " ") && strings.Contains(lower, phrase) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: no number found in %q", nutribudget.ErrParse, text)
}

// ParseLocation accepts any non-empty city or region name.
func ParseLocation(text string) (string, error) {
	loc := strings.TrimSpace(text)
	lower := strings.ToLower(loc)
	for _, prefix := range locationPrefixes {
		if strings.HasPrefix(lower, prefix) {
			loc = strings.TrimSpace(loc[len(prefix):])
			break
		}
	}
	loc = strings.TrimRight(loc, ".!?")
	loc = strings.Join(strings.Fields(loc), " ")
	if loc == "" {
		return "", fmt.Errorf("%w: location is empty", nutribudget.ErrParse)
	}
	return loc, nil
}

// ParseTags splits free text into a normalized, de-duplicated tag list. Inputs meaning
// "none" yield an empty, non-nil list.
func ParseTags(text string) ([]string, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	lower = strings.TrimRight(lower, ".!")
	if lower == "" {
		return nil, fmt.Errorf("%w: empty answer", nutribudget.ErrParse)
	}
	if noneWords[strings.Join(strings.Fields(lower), " ")] {
		return []string{}, nil
	}

	seen := map[string]bool{}
	tags := []string{}
	for _, part := range tagSeparators.Split(lower, -1) {
		tag := strings.Join(strings.Fields(part), " ")
		if tag == "" || noneWords[tag] || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return []string{}, nil
	}
	return tags, nil
}
