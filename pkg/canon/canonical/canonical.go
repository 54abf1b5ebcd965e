// Package canonical picks one representative token per equivalence class and
// builds the token -> canonical mapping.
package canonical

import (
	"fmt"

	"github.com/cognicore/canon/pkg/canon/cluster"
	"github.com/cognicore/canon/pkg/canon/internalerr"
)

// Map sends every clustered token to its canonical form.
type Map map[string]string

// Options controls which tokens appear in the map.
type Options struct {
	// IncludeSingletons maps every token in Vocabulary that belongs to no
	// component onto itself, making the map total over the filtered vocabulary.
	// Off by default: unpaired tokens are left out of the map.
	IncludeSingletons bool

	// Vocabulary is the filtered token order; only read when IncludeSingletons is set.
	Vocabulary []string
}

// Choose returns the member of comp with the highest count. Among members tied
// for the highest count the lexicographically smallest wins.
//
// A member without a count can only come from a bug upstream (every graph
// vertex originates in the filtered vocabulary), so Choose panics rather than
// guessing.
func Choose(comp cluster.Component, counts map[string]int64) string {
	if len(comp) == 0 {
		panic(fmt.Errorf("%w: empty component", internalerr.ErrInconsistent))
	}

	best := ""
	var bestCount int64 = -1
	for _, tok := range comp {
		n, ok := counts[tok]
		if !ok {
			panic(fmt.Errorf("%w: token %q has no occurrence count", internalerr.ErrInconsistent, tok))
		}
		if n > bestCount || (n == bestCount && tok < best) {
			best, bestCount = tok, n
		}
	}
	return best
}

// Select builds the canonical map for comps.
func Select(comps []cluster.Component, counts map[string]int64, opts Options) Map {
	m := make(Map)
	for _, comp := range comps {
		canon := Choose(comp, counts)
		for _, tok := range comp {
			m[tok] = canon
		}
	}

	if opts.IncludeSingletons {
		for _, tok := range opts.Vocabulary {
			if _, ok := m[tok]; !ok {
				m[tok] = tok
			}
		}
	}
	return m
}

// Groups inverts m into canonical -> members (members include the canonical).
func (m Map) Groups() map[string][]string {
	out := make(map[string][]string)
	for tok, canon := range m {
		out[canon] = append(out[canon], tok)
	}
	return out
}

// Rewrites returns how many entries map a token to a different token.
func (m Map) Rewrites() int {
	n := 0
	for tok, canon := range m {
		if tok != canon {
			n++
		}
	}
	return n
}
