package retrieval

import "strings"

// tokenize lowercases text and splits it into a set of alphanumeric words.
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		default:
			return true
		}
	})

	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}

// overlapScore counts query tokens present in the document word set.
func overlapScore(query, doc map[string]struct{}) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	var hits int
	for tok := range query {
		if _, ok := doc[tok]; ok {
			hits++
		}
	}
	return float64(hits)
}
