// Package report turns persisted runs into readable summaries: run IDs,
// cluster tables, pair tables and run listings.
package report

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/oklog/ulid/v2"

	"github.com/cognicore/canon/pkg/canon/store"
)

// IDs issues lexicographically sortable run identifiers.
type IDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDs creates a new ID source
func NewIDs() *IDs {
	return &IDs{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// New returns a ULID for the current time.
func (g *IDs) New() string {
	return g.At(time.Now())
}

// At returns a ULID for t. IDs issued within the same millisecond increase.
func (g *IDs) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

// Member is a token inside a cluster.
type Member struct {
	Token string
	Count int64
}

// Cluster groups every token mapped to one canonical.
type Cluster struct {
	Canonical string
	Members   []Member // canonical first, then by count descending
	Total     int64
}

// Clusters groups a run's canonical map. Groups of one token are skipped.
// Clusters are ordered by total count descending, then canonical.
func Clusters(r store.Run) []Cluster {
	groups := make(map[string][]string)
	for tok, canonical := range r.Map {
		groups[canonical] = append(groups[canonical], tok)
	}

	var out []Cluster
	for canonical, tokens := range groups {
		if len(tokens) < 2 {
			continue
		}
		c := Cluster{Canonical: canonical}
		for _, tok := range tokens {
			n := r.Vocabulary[tok]
			c.Members = append(c.Members, Member{Token: tok, Count: n})
			c.Total += n
		}
		sort.Slice(c.Members, func(i, j int) bool {
			a, b := c.Members[i], c.Members[j]
			if (a.Token == canonical) != (b.Token == canonical) {
				return a.Token == canonical
			}
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.Token < b.Token
		})
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Canonical < out[j].Canonical
	})
	return out
}

// RenderClusters renders clusters as a table. limit <= 0 shows all.
func RenderClusters(clusters []Cluster, limit int) string {
	if limit > 0 && len(clusters) > limit {
		clusters = clusters[:limit]
	}
	rows := make([][]string, 0, len(clusters))
	for _, c := range clusters {
		variants := make([]string, 0, len(c.Members)-1)
		for _, m := range c.Members[1:] {
			variants = append(variants, fmt.Sprintf("%s (%d)", m.Token, m.Count))
		}
		rows = append(rows, []string{
			c.Canonical,
			strconv.FormatInt(c.Members[0].Count, 10),
			strings.Join(variants, ", "),
			strconv.FormatInt(c.Total, 10),
		})
	}
	return renderTable(
		[]string{"Canonical", "Count", "Variants", "Total"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight},
	)
}

// RenderPairs renders accepted pairs in scored order. limit <= 0 shows all.
func RenderPairs(pairs []store.Pair, limit int) string {
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{
			p.A,
			p.B,
			strconv.FormatFloat(p.Jaccard, 'f', 3, 64),
			strconv.FormatFloat(p.Cosine, 'f', 3, 64),
		})
	}
	return renderTable(
		[]string{"Token", "Similar", "Jaccard", "Cosine"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

// RenderRuns renders run summaries.
func RenderRuns(runs []store.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			strconv.Itoa(r.Docs),
			strconv.Itoa(r.VocabularySize),
			strconv.Itoa(r.FilteredSize),
			strconv.Itoa(r.PairCount),
			strconv.Itoa(r.ComponentCount),
		})
	}
	return renderTable(
		[]string{"Run", "Created", "Docs", "Vocabulary", "Filtered", "Pairs", "Clusters"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
