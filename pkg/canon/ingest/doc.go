package ingest

import (
	"errors"
	"strings"
	"time"
)

// Doc represents a paper record as fetched from a feed or a JSONL dump.
type Doc struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Abstract   string    `json:"abstract"`
	Authors    []string  `json:"authors,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	Published  time.Time `json:"published"`
	Updated    time.Time `json:"updated,omitzero"`
	URL        string    `json:"url,omitempty"`
}

// Validate checks if the document has required fields
func (d *Doc) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("doc id is required")
	}

	if strings.TrimSpace(d.Title) == "" {
		return errors.New("doc title is required")
	}

	if d.Published.IsZero() {
		return errors.New("doc published time is required")
	}

	if strings.TrimSpace(d.Abstract) == "" {
		return errors.New("doc abstract is required")
	}

	return nil
}
