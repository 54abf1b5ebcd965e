package config

import (
	"fmt"
	"strings"

	"github.com/cognicore/canon/pkg/canon/ingest"
	"github.com/cognicore/canon/pkg/canon/lexicon"
	"github.com/cognicore/canon/pkg/canon/stoplist"
)

// Loader loads the cleaning resources and constructs components
type Loader struct {
	StoplistPath   string
	LexiconPath    string
	MinTokenLength int
}

// NewLoader returns a loader for the cleaning section.
func NewLoader(c Cleaning) *Loader {
	return &Loader{
		StoplistPath:   c.Stoplist,
		LexiconPath:    c.Lexicon,
		MinTokenLength: c.MinTokenLength,
	}
}

// Components holds all loaded configuration components
type Components struct {
	Stoplist *stoplist.Manager
	Lexicon  *lexicon.Lexicon // nil when no lexicon file is configured
	Cleaner  *ingest.Cleaner
}

// Load reads all configuration files and returns initialized components.
// Stoplist terms extend the built-in English and domain lists.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Stoplist: stoplist.Default()}

	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		terms := make([]string, 0, len(sl.Terms))
		for _, t := range sl.Terms {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				terms = append(terms, t)
			}
		}
		comp.Stoplist.AddAll(terms, stoplist.Reason{Source: "config"})
	}

	if l.LexiconPath != "" {
		lex, err := lexicon.LoadFromYAML(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	}

	comp.Cleaner = ingest.NewCleaner(comp.Stoplist, l.MinTokenLength)
	if comp.Lexicon != nil {
		comp.Cleaner.SetLexicon(comp.Lexicon)
	}

	return comp, nil
}
