package stoplist

import "sort"

// Manager holds the stopwords dropped by the cleaning pass.
type Manager struct {
	stops map[string]Reason
}

// Reason records where a stopword came from.
type Reason struct {
	Source    string  // "english", "domain", "config", "df"
	DFPercent float64 // document frequency when suggested from corpus stats
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]Reason, len(initialStops))
	for _, s := range initialStops {
		stops[s] = Reason{Source: "config"}
	}
	return &Manager{stops: stops}
}

// Default returns a manager seeded with the English and domain lists.
func Default() *Manager {
	m := &Manager{stops: make(map[string]Reason, len(English)+len(Domain))}
	for _, s := range English {
		m.stops[s] = Reason{Source: "english"}
	}
	for _, s := range Domain {
		m.stops[s] = Reason{Source: "domain"}
	}
	return m
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist with a reason
func (m *Manager) Add(token string, reason Reason) {
	m.stops[token] = reason
}

// AddAll adds tokens with the same reason.
func (m *Manager) AddAll(tokens []string, reason Reason) {
	for _, t := range tokens {
		m.stops[t] = reason
	}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, token)
}

// Reason returns why token is a stopword.
func (m *Manager) Reason(token string) (Reason, bool) {
	r, ok := m.stops[token]
	return r, ok
}

// Len returns the number of stopwords.
func (m *Manager) Len() int {
	return len(m.stops)
}

// All returns all stopwords in ascending order.
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Stats holds document-frequency figures for candidate evaluation.
type Stats struct {
	Token     string
	DF        int64
	DFPercent float64
}

// Candidate represents a candidate stopword
type Candidate struct {
	Token  string
	Reason Reason
}

// SuggestCandidates returns tokens whose document frequency exceeds
// dfPercent, ordered by descending frequency then token.
// Tokens already on the list are skipped.
func (m *Manager) SuggestCandidates(stats []Stats, dfPercent float64) []Candidate {
	if dfPercent <= 0 {
		dfPercent = DefaultDFPercent
	}

	var candidates []Candidate
	for _, s := range stats {
		if m.IsStop(s.Token) || s.DFPercent <= dfPercent {
			continue
		}
		candidates = append(candidates, Candidate{
			Token:  s.Token,
			Reason: Reason{Source: "df", DFPercent: s.DFPercent},
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Reason.DFPercent != b.Reason.DFPercent {
			return a.Reason.DFPercent > b.Reason.DFPercent
		}
		return a.Token < b.Token
	})
	return candidates
}

// DefaultDFPercent flags tokens present in more than 60% of documents.
const DefaultDFPercent = 60.0

// DocumentFrequencies computes per-token document frequency over
// tokenized documents.
func DocumentFrequencies(docs [][]string) []Stats {
	if len(docs) == 0 {
		return nil
	}

	df := make(map[string]int64)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, tok := range doc {
			if tok == "" {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	stats := make([]Stats, 0, len(df))
	for tok, n := range df {
		stats = append(stats, Stats{
			Token:     tok,
			DF:        n,
			DFPercent: 100 * float64(n) / float64(len(docs)),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Token < stats[j].Token })
	return stats
}
