// Package ngram extracts padded character n-grams from tokens and compares
// them with Jaccard similarity.
package ngram

// Pad is the boundary marker placed before and after a token so prefix and
// suffix grams differ from interior ones.
const Pad = '#'

// DefaultN is the default gram length.
const DefaultN = 2

// Set is a set of n-grams.
type Set map[string]struct{}

// Grams returns the set of length-n rune windows over "#token#".
//
// A token of L runes yields L+2-n+1 windows before deduplication. If the
// padded token is shorter than n, or n < 1, the set is empty.
//
// Example:
//
//	Grams("star", 2) → {"#s", "st", "ta", "ar", "r#"}
func Grams(token string, n int) Set {
	set := make(Set)
	if n < 1 {
		return set
	}

	padded := make([]rune, 0, len(token)+2)
	padded = append(padded, Pad)
	padded = append(padded, []rune(token)...)
	padded = append(padded, Pad)

	for i := 0; i+n <= len(padded); i++ {
		set[string(padded[i:i+n])] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B|, or 0 when both sets are empty.
func Jaccard(a, b Set) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}

	inter := 0
	for g := range a {
		if _, ok := b[g]; ok {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Similarity is Jaccard over the n-grams of two tokens.
func Similarity(a, b string, n int) float64 {
	return Jaccard(Grams(a, n), Grams(b, n))
}
