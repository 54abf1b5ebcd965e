package lexicon

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon stores the vocabulary equivalence classes discovered for a corpus:
// - Variants: near-duplicate spellings (galaxy ↔ galaxies, redshift ↔ red-shift)
// - Canonical: the representative each variant is rewritten to
//
// It is the hand-off point between canonicalization and the rewrite pass:
// a canonical map goes in, rewritten documents come out.
type Lexicon struct {
	// canonical -> all variants (including canonical itself)
	// Example: "galaxy" -> ["galaxy", "galaxies", "galaxie"]
	groups map[string][]string

	// variant -> canonical
	// Example: "galaxies" -> "galaxy"
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		groups:       make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// FromMap builds a lexicon from a token -> canonical mapping.
// Groups are added in canonical order so variant lists are reproducible.
func FromMap(m map[string]string) *Lexicon {
	byCanonical := make(map[string][]string)
	for tok, canonical := range m {
		byCanonical[canonical] = append(byCanonical[canonical], tok)
	}

	lex := New()
	for _, canonical := range sortedKeys(byCanonical) {
		variants := byCanonical[canonical]
		sort.Strings(variants)
		lex.AddGroup(canonical, variants)
	}
	return lex
}

type yamlFile struct {
	Synonyms []yamlGroup `yaml:"synonyms"`
}

type yamlGroup struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// LoadFromYAML loads groups from a YAML file.
//
// Expected format:
//
//	synonyms:
//	  - canonical: galaxy
//	    variants: [galaxies, galaxie]
//	  - canonical: spectrum
//	    variants: [spectra]
//
// Tokens are lowercased; the canonical is included in its own group.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range file.Synonyms {
		canonical := strings.ToLower(strings.TrimSpace(entry.Canonical))
		if canonical == "" {
			return nil, fmt.Errorf("lexicon %s: group with empty canonical", path)
		}
		variants := make([]string, 0, len(entry.Variants))
		for _, v := range entry.Variants {
			variants = append(variants, strings.ToLower(strings.TrimSpace(v)))
		}
		lex.AddGroup(canonical, variants)
	}

	return lex, nil
}

// WriteYAML writes the lexicon in the format read by LoadFromYAML.
// Groups with no variant other than the canonical are omitted.
func (l *Lexicon) WriteYAML(w io.Writer) error {
	var file yamlFile
	for _, canonical := range sortedKeys(l.groups) {
		variants := l.groups[canonical][1:]
		if len(variants) == 0 {
			continue
		}
		file.Synonyms = append(file.Synonyms, yamlGroup{
			Canonical: canonical,
			Variants:  append([]string(nil), variants...),
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return err
	}
	return enc.Close()
}

// SaveYAML writes the lexicon to path.
func (l *Lexicon) SaveYAML(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := l.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// AddGroup adds a group with a canonical form and its variants.
// The canonical form is always the first entry of the group.
// A variant already owned by another group moves to this one. Claiming the
// canonical of another group dissolves that group.
func (l *Lexicon) AddGroup(canonical string, variants []string) {
	// Clean up old reverse index entries if this canonical already exists
	if oldVariants, exists := l.groups[canonical]; exists {
		for _, oldV := range oldVariants {
			delete(l.reverseIndex, oldV)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)

	normalized = append(normalized, canonical)
	seen[canonical] = true

	for _, v := range variants {
		if v == "" || seen[v] {
			continue
		}
		normalized = append(normalized, v)
		seen[v] = true
	}

	for _, v := range normalized {
		if prev, ok := l.reverseIndex[v]; ok && prev != canonical {
			l.dropVariant(prev, v)
		}
	}

	l.groups[canonical] = normalized
	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

func (l *Lexicon) dropVariant(canonical, variant string) {
	group := l.groups[canonical]
	if variant == canonical {
		for _, v := range group {
			delete(l.reverseIndex, v)
		}
		delete(l.groups, canonical)
		return
	}
	kept := make([]string, 0, len(group))
	for _, v := range group {
		if v != variant {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(l.groups, canonical)
		return
	}
	l.groups[canonical] = kept
}

// Normalize returns the canonical form of a token.
// If the token is not in the lexicon, returns the token itself.
//
// Examples:
//   - Normalize("galaxies") -> "galaxy"
//   - Normalize("redshift") -> "redshift"
func (l *Lexicon) Normalize(token string) string {
	if canonical, ok := l.reverseIndex[token]; ok {
		return canonical
	}
	return token
}

// Variants returns every member of the token's group, canonical first.
// Unknown tokens return a slice containing only the token itself.
func (l *Lexicon) Variants(token string) []string {
	if canonical, ok := l.reverseIndex[token]; ok {
		return append([]string(nil), l.groups[canonical]...)
	}
	return []string{token}
}

// Has returns true if the token belongs to a group.
func (l *Lexicon) Has(token string) bool {
	_, exists := l.reverseIndex[token]
	return exists
}

// RewriteTokens replaces every token by its canonical form, in place.
// It returns the number of tokens that changed.
func (l *Lexicon) RewriteTokens(tokens []string) int {
	changed := 0
	for i, tok := range tokens {
		if canonical := l.Normalize(tok); canonical != tok {
			tokens[i] = canonical
			changed++
		}
	}
	return changed
}

// Rewrite applies the lexicon to a space-joined document.
func (l *Lexicon) Rewrite(doc string) string {
	tokens := strings.Split(doc, " ")
	l.RewriteTokens(tokens)
	return strings.Join(tokens, " ")
}

// Map returns the token -> canonical mapping held by the lexicon.
func (l *Lexicon) Map() map[string]string {
	out := make(map[string]string, len(l.reverseIndex))
	for v, c := range l.reverseIndex {
		out[v] = c
	}
	return out
}

// Canonicals returns all canonical forms in ascending order.
func (l *Lexicon) Canonicals() []string {
	return sortedKeys(l.groups)
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, variants := range l.groups {
		total += len(variants)
	}
	return Stats{
		Groups:        len(l.groups),
		TotalVariants: total,
	}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Groups        int // Number of canonical forms
	TotalVariants int // Number of tokens across all groups, canonicals included
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
