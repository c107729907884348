package nutribudget

import (
	"strings"
	"unicode"
)

// NormalizeName folds an ingredient name for comparison: lower case, punctuation
// dropped, whitespace collapsed and each word singularized.
func NormalizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '\'':
			return -1
		default:
			return ' '
		}
	}, name)

	words := strings.Fields(cleaned)
	for i, w := range words {
		words[i] = singular(w)
	}
	return strings.Join(words, " ")
}

func singular(w string) string {
	if len(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "oes"),
		strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"),
		strings.HasSuffix(w, "xes"),
		strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

// ContainsTerm reports whether the normalized term appears as whole words inside name.
func ContainsTerm(name, term string) bool {
	n, t := NormalizeName(name), NormalizeName(term)
	if n == "" || t == "" {
		return false
	}
	return strings.Contains(" "+n+" ", " "+t+" ")
}
