// Package corpus reads and writes paper dumps as JSON lines.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cognicore/canon/pkg/canon/ingest"
)

// maxLine bounds a single JSONL record.
const maxLine = 16 << 20

// LoadFromJSONL loads docs from a JSONL file. Malformed or invalid lines are
// logged and skipped; a file without any valid doc is an error.
func LoadFromJSONL(path string, logger *slog.Logger) ([]ingest.Doc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	defer f.Close()

	docs, err := Read(f, path, logger)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no valid docs found in %s", path)
	}
	return docs, nil
}

// Read decodes docs from r. name labels log records.
func Read(r io.Reader, name string, logger *slog.Logger) ([]ingest.Doc, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var docs []ingest.Doc
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		var doc ingest.Doc
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			logger.Warn("skipping malformed JSON", "file", name, "line", line, "err", err)
			continue
		}
		if err := doc.Validate(); err != nil {
			logger.Warn("skipping invalid doc", "file", name, "line", line, "id", doc.ID, "err", err)
			continue
		}
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return docs, nil
}

// Write encodes docs to w, one JSON object per line.
func Write(w io.Writer, docs []ingest.Doc) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes docs to path, replacing it.
func WriteFile(path string, docs []ingest.Doc) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, docs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
