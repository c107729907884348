package validate

import (
	"strings"

	"github.com/agext/levenshtein"

	"nutribudget"
)

const containmentWeight = 0.85

// Similarity scores how alike two ingredient names are, from 0 to 1. It is the larger of
// the edit-distance similarity and a discounted share of shared words, so "rice" is close
// to "Brown Rice" and "tomatoe" is close to "Tomatoes".
func Similarity(a, b string) float64 {
	na, nb := nutribudget.NormalizeName(a), nutribudget.NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return max(levenshtein.Similarity(na, nb, nil), containmentWeight*containment(na, nb))
}

// containment is the share of the shorter name's words found in the longer one.
func containment(a, b string) float64 {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	words := make(map[string]bool, len(tb))
	for _, w := range tb {
		words[w] = true
	}
	common := 0
	for _, w := range ta {
		if words[w] {
			common++
		}
	}
	return float64(common) / float64(len(ta))
}
