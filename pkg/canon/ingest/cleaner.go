package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/canon/pkg/canon/lexicon"
	"github.com/cognicore/canon/pkg/canon/stoplist"
)

// DefaultMinTokenLength drops tokens shorter than four letters.
const DefaultMinTokenLength = 4

var (
	digitsRe   = regexp.MustCompile(`\d+`)
	mathRe     = regexp.MustCompile(`\$.*?\$`)
	citationRe = regexp.MustCompile(`\[.*?\]|\(.*?et al\.\)`)

	// Markup left behind by abstracts written in LaTeX: commands with and
	// without arguments, superscripts, unit sequences and braced fragments.
	latexRe = regexp.MustCompile(strings.Join([]string{
		`\\cite\w*\{[^}]*\}`,
		`\\emph\{[^}]*\}`,
		`\\[a-zA-Z]+\{[^}]*\}`,
		`\\[a-zA-Z]+\\?`,
		`\^\{[^}]*\}`,
		`\^\S*`,
		`,\\~?[a-zA-Z]+`,
		`~\\?[a-zA-Z]+`,
		`/\\?[a-zA-Z]+`,
		`\.\{\\?[a-zA-Z]+\}`,
		`\{\\?[a-zA-Z]+\}`,
		`a\([a-z]+\)=\S*`,
	}, "|"))
)

// Cleaner turns raw abstract text into a space-joined token document.
// A Cleaner is safe for concurrent use once configured.
type Cleaner struct {
	stops   *stoplist.Manager
	minLen  int
	lexicon *lexicon.Lexicon // Optional: canonical rewrite after cleaning
}

// NewCleaner creates a cleaner with the given stoplist.
// A nil stoplist uses stoplist.Default(); minLen <= 0 uses DefaultMinTokenLength.
func NewCleaner(stops *stoplist.Manager, minLen int) *Cleaner {
	if stops == nil {
		stops = stoplist.Default()
	}
	if minLen <= 0 {
		minLen = DefaultMinTokenLength
	}
	return &Cleaner{stops: stops, minLen: minLen}
}

// SetLexicon assigns a lexicon for canonical rewriting.
// When set, surviving tokens are replaced by their canonical forms.
// Example: "galaxies" → "galaxy"
func (c *Cleaner) SetLexicon(lex *lexicon.Lexicon) {
	c.lexicon = lex
}

// Clean runs the full cleaning pass and joins the tokens with single spaces.
func (c *Cleaner) Clean(text string) string {
	return strings.Join(c.Tokenize(text), " ")
}

// Tokenize lowercases and strips markup from text, then splits it into
// letter runs, dropping stopwords and short tokens.
func (c *Cleaner) Tokenize(text string) []string {
	text = strip(fold(text))

	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := c.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// processToken applies stopword filtering, the length floor and the
// optional lexicon.
func (c *Cleaner) processToken(word string) string {
	if c.stops.IsStop(word) {
		return ""
	}
	if utf8.RuneCountInString(word) < c.minLen {
		return ""
	}
	if c.lexicon != nil {
		word = c.lexicon.Normalize(word)
	}
	return word
}

// fold lowercases text and removes combining marks (é → e).
func fold(text string) string {
	lower := cases.Lower(language.English).String(text)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, lower)
	if err != nil {
		return lower
	}
	return out
}

// strip removes digits, inline math, citations and LaTeX markup, then joins
// hyphenated words.
func strip(text string) string {
	text = digitsRe.ReplaceAllString(text, "")
	text = mathRe.ReplaceAllString(text, "")
	text = citationRe.ReplaceAllString(text, "")
	text = latexRe.ReplaceAllString(text, "")
	return strings.ReplaceAll(text, "-", "")
}
