package matcher

import "strings"

// stopDescriptors are filler words that carry no product identity and are
// stripped before queries are built and names are compared.
var stopDescriptors = map[string]bool{
	"the": true, "and": true, "with": true, "for": true, "new": true,
	"pack": true, "combo": true, "set": true, "latest": true, "edition": true,
	"official": true, "original": true, "genuine": true,
}

// significantWords tokenizes a product name, keeping lowercase words longer
// than two characters that are not stop-descriptors.
func significantWords(name string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}, strings.ToLower(name))

	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 2 && !stopDescriptors[w] {
			words = append(words, w)
		}
	}
	return words
}

// Similarity scores how likely two listing names refer to the same product:
// the fraction of the larger name's significant words that have a
// containment match in the other name. The score is symmetric in its
// arguments and lies in [0, 1].
func Similarity(a, b string) float64 {
	wordsA := significantWords(a)
	wordsB := significantWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	base, other := wordsA, wordsB
	if len(wordsB) > len(wordsA) ||
		(len(wordsB) == len(wordsA) && strings.Join(wordsB, " ") > strings.Join(wordsA, " ")) {
		base, other = wordsB, wordsA
	}

	matched := 0
	for _, w := range base {
		if containsWord(other, w) {
			matched++
		}
	}

	return float64(matched) / float64(len(base))
}

// containsWord reports whether w has a containment match against any word in
// the list: either word containing the other counts.
func containsWord(words []string, w string) bool {
	for _, v := range words {
		if strings.Contains(v, w) || strings.Contains(w, v) {
			return true
		}
	}
	return false
}
