package ranking

import (
	"strings"
	"unicode"
)

// minKeywordLength is the shortest word kept as an idea keyword.
const minKeywordLength = 3

var stopWords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "into": {}, "our": {}, "your": {}, "their": {}, "are": {},
	"was": {}, "will": {}, "can": {}, "app": {}, "using": {}, "use": {},
	"who": {}, "what": {}, "how": {}, "want": {}, "build": {}, "make": {},
	"people": {}, "help": {}, "helps": {}, "something": {}, "about": {},
}

// splitWords lowercases s and splits it on anything that is not a letter or digit.
func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// tagSet normalizes labels such as skills into a lowercase set.
func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// wordSet returns every word appearing in any of the labels.
func wordSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tags {
		for _, w := range splitWords(t) {
			set[w] = struct{}{}
		}
	}
	return set
}

// keywordSet extracts the distinct content words of free text.
func keywordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range splitWords(text) {
		if len(w) < minKeywordLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// jaccard is |a ∩ b| / |a ∪ b|. Both sets must be non-empty.
func jaccard(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
