// Package arxiv fetches paper metadata from the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/cognicore/canon/pkg/canon/ingest"
)

// DefaultBaseURL is the arXiv query endpoint.
const DefaultBaseURL = "https://export.arxiv.org/api/query"

// DefaultRateLimit is the pause between page requests asked for by arXiv.
const DefaultRateLimit = 3 * time.Second

// DefaultBatchSize is the page size used when Query.BatchSize is unset.
const DefaultBatchSize = 100

// Query selects papers. Categories may name archives ("astro-ph") or
// subject classes ("astro-ph.GA").
type Query struct {
	Categories []string
	Titles     []string
	Authors    []string
	Abstracts  []string
	From, To   time.Time // submission date window; zero means open
	Start      int
	MaxResults int
	BatchSize  int
}

// SearchQuery renders the search_query parameter.
//
// Example: (cat:astro-ph.CO OR cat:astro-ph.GA) AND submittedDate:[202401010600 TO 202401310600]
func (q Query) SearchQuery() string {
	var terms []string
	for _, c := range ExpandCategories(q.Categories) {
		terms = append(terms, "cat:"+c)
	}
	for _, t := range q.Titles {
		terms = append(terms, fmt.Sprintf("ti:%q", t))
	}
	for _, a := range q.Authors {
		terms = append(terms, fmt.Sprintf("au:%q", a))
	}
	for _, a := range q.Abstracts {
		terms = append(terms, fmt.Sprintf("abs:%q", a))
	}

	query := "all:*"
	if len(terms) > 0 {
		query = "(" + strings.Join(terms, " OR ") + ")"
	}

	if !q.From.IsZero() || !q.To.IsZero() {
		from, to := "*", "*"
		if !q.From.IsZero() {
			from = q.From.UTC().Format("200601021504")
		}
		if !q.To.IsZero() {
			to = q.To.UTC().Format("200601021504")
		}
		query += fmt.Sprintf(" AND submittedDate:[%s TO %s]", from, to)
	}
	return query
}

// Client pages through the arXiv API.
type Client struct {
	BaseURL    string
	RateLimit  time.Duration // pause between pages; 0 uses DefaultRateLimit, < 0 disables
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Fetch returns every paper matching q, from q.Start up to q.MaxResults.
// Paging stops early when arXiv returns a short page.
func (c *Client) Fetch(ctx context.Context, q Query) ([]ingest.Doc, error) {
	batch := q.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	limit := q.MaxResults
	if limit <= 0 {
		limit = batch
	}

	var docs []ingest.Doc
	for start := q.Start; start < q.Start+limit; start += batch {
		size := min(batch, q.Start+limit-start)
		page, err := c.fetchPage(ctx, q, start, size)
		if err != nil {
			return docs, err
		}
		docs = append(docs, page...)
		c.logger().Info("fetched arXiv page", "start", start, "papers", len(page), "total", len(docs))

		if len(page) < size || start+batch >= q.Start+limit {
			break
		}
		if err := c.wait(ctx); err != nil {
			return docs, err
		}
	}
	return docs, nil
}

func (c *Client) fetchPage(ctx context.Context, q Query, start, size int) ([]ingest.Doc, error) {
	params := url.Values{}
	params.Set("search_query", q.SearchQuery())
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(size))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "ascending")

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: HTTP %d", resp.StatusCode)
	}
	return ParseFeed(resp.Body, c.logger())
}

func (c *Client) wait(ctx context.Context) error {
	d := c.RateLimit
	if d == 0 {
		d = DefaultRateLimit
	}
	if d < 0 {
		return nil
	}
	c.logger().Debug("sleeping between arXiv requests", "delay", d)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Feed represents the Atom response from the arXiv API
type Feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []Entry  `xml:"entry"`
}

// Entry represents a single paper
type Entry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

// ParseFeed decodes an Atom feed into docs. Entries that fail validation
// are logged and skipped.
func ParseFeed(r io.Reader, logger *slog.Logger) ([]ingest.Doc, error) {
	var feed Feed
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv: parse feed: %w", err)
	}

	docs := make([]ingest.Doc, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		doc := e.Doc()
		if err := doc.Validate(); err != nil {
			if logger != nil {
				logger.Warn("skipping arXiv entry", "id", e.ID, "err", err)
			}
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Doc converts the entry into an ingest.Doc.
func (e Entry) Doc() ingest.Doc {
	doc := ingest.Doc{
		ID:        PaperID(e.ID),
		Title:     cleanText(e.Title),
		Abstract:  cleanText(e.Summary),
		Published: parseTime(e.Published),
		Updated:   parseTime(e.Updated),
		URL:       strings.TrimSpace(e.ID),
	}
	for _, a := range e.Authors {
		if name := cleanText(a.Name); name != "" {
			doc.Authors = append(doc.Authors, name)
		}
	}
	seen := make(map[string]struct{})
	for _, c := range e.Categories {
		if _, ok := seen[c.Term]; ok || c.Term == "" {
			continue
		}
		seen[c.Term] = struct{}{}
		doc.Categories = append(doc.Categories, c.Term)
	}
	return doc
}

// PaperID extracts the identifier from an abstract URL,
// e.g. http://arxiv.org/abs/2401.01234v1 -> 2401.01234v1.
func PaperID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/abs/"); i >= 0 {
		return s[i+len("/abs/"):]
	}
	return s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(stripHTML(s)), " ")
}

func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		// Fallback to string if parsing fails
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
