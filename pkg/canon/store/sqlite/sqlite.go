package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/canon/pkg/canon/internalerr"
	"github.com/cognicore/canon/pkg/canon/store"
)

// maxParams keeps IN lists under SQLite's bound-parameter limit.
const maxParams = 500

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	// One connection serializes writers instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS papers (
	arxiv_id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	abstract TEXT NOT NULL,
	authors TEXT,
	categories TEXT,
	published TEXT,
	updated TEXT,
	cleaned TEXT NOT NULL DEFAULT '',
	rewritten TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS paper_categories (
	arxiv_id TEXT NOT NULL,
	category TEXT NOT NULL,
	UNIQUE(arxiv_id, category),
	FOREIGN KEY(arxiv_id) REFERENCES papers(arxiv_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_paper_categories ON paper_categories(category);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	docs INTEGER NOT NULL,
	vocabulary_size INTEGER NOT NULL,
	filtered_size INTEGER NOT NULL,
	pair_count INTEGER NOT NULL,
	component_count INTEGER NOT NULL,
	config TEXT
);

CREATE TABLE IF NOT EXISTS run_vocabulary (
	run_id TEXT NOT NULL,
	token TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, token),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS run_pairs (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	a TEXT NOT NULL,
	b TEXT NOT NULL,
	jaccard REAL NOT NULL,
	cosine REAL NOT NULL,
	PRIMARY KEY(run_id, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS canonical_map (
	run_id TEXT NOT NULL,
	token TEXT NOT NULL,
	canonical TEXT NOT NULL,
	PRIMARY KEY(run_id, token),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS embeddings (
	model TEXT NOT NULL,
	token TEXT NOT NULL,
	dims INTEGER NOT NULL,
	vector BLOB NOT NULL,
	PRIMARY KEY(model, token)
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertPaper inserts a paper or refreshes its metadata. The cleaned and
// rewritten text survive unless the abstract changed.
func (s *sqliteStore) UpsertPaper(ctx context.Context, p store.Paper) (bool, error) {
	if strings.TrimSpace(p.ID) == "" {
		return false, fmt.Errorf("%w: paper id is required", internalerr.ErrInvalidInput)
	}

	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return false, err
	}
	catsJSON, err := json.Marshal(p.Categories)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers WHERE arxiv_id=?`, p.ID).Scan(&exists)
	if err != nil {
		return false, err
	}

	const stmt = `
INSERT INTO papers (arxiv_id, title, abstract, authors, categories, published, updated, cleaned, rewritten)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(arxiv_id) DO UPDATE SET
	title=excluded.title,
	authors=excluded.authors,
	categories=excluded.categories,
	published=excluded.published,
	updated=excluded.updated,
	cleaned=CASE WHEN papers.abstract = excluded.abstract THEN papers.cleaned ELSE '' END,
	rewritten=CASE WHEN papers.abstract = excluded.abstract THEN papers.rewritten ELSE '' END,
	abstract=excluded.abstract;
`
	_, err = tx.ExecContext(ctx, stmt,
		p.ID,
		p.Title,
		p.Abstract,
		string(authorsJSON),
		string(catsJSON),
		formatTime(p.Published),
		formatTime(p.Updated),
		p.Cleaned,
		p.Rewritten,
	)
	if err != nil {
		return false, err
	}

	if err := replacePaperCategories(ctx, tx, p.ID, uniqueStrings(p.Categories)); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return exists == 0, nil
}

func replacePaperCategories(ctx context.Context, tx *sql.Tx, id string, cats []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM paper_categories WHERE arxiv_id=?`, id); err != nil {
		return err
	}
	if len(cats) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO paper_categories (arxiv_id, category) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, cat := range cats {
		if _, err := stmt.ExecContext(ctx, id, cat); err != nil {
			return err
		}
	}
	return nil
}

const paperColumns = `p.arxiv_id, p.title, p.abstract, p.authors, p.categories, p.published, p.updated, p.cleaned, p.rewritten`

// GetPaper retrieves a paper by arXiv ID
func (s *sqliteStore) GetPaper(ctx context.Context, id string) (store.Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers p WHERE p.arxiv_id = ?`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Paper{}, fmt.Errorf("paper %s: %w", id, internalerr.ErrNotFound)
	}
	return p, err
}

// ListPapers returns papers ordered by publication date, then ID.
func (s *sqliteStore) ListPapers(ctx context.Context, f store.PaperFilter) ([]store.Paper, error) {
	var (
		where []string
		args  []interface{}
		from  = `papers p`
	)
	if f.Category != "" {
		from = `papers p JOIN paper_categories pc ON pc.arxiv_id = p.arxiv_id`
		where = append(where, `pc.category = ?`)
		args = append(args, f.Category)
	}
	if f.CleanedOnly {
		where = append(where, `p.cleaned <> ''`)
	}

	query := `SELECT ` + paperColumns + ` FROM ` + from
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY p.published ASC, p.arxiv_id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []store.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// CountPapers returns the number of stored papers
func (s *sqliteStore) CountPapers(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&total)
	return total, err
}

// SetCleaned stores the cleaned abstract of a paper
func (s *sqliteStore) SetCleaned(ctx context.Context, id, cleaned string) error {
	return s.setText(ctx, `UPDATE papers SET cleaned=?, rewritten='' WHERE arxiv_id=?`, id, cleaned)
}

// SetRewritten stores the canonically rewritten abstract of a paper
func (s *sqliteStore) SetRewritten(ctx context.Context, id, rewritten string) error {
	return s.setText(ctx, `UPDATE papers SET rewritten=? WHERE arxiv_id=?`, id, rewritten)
}

func (s *sqliteStore) setText(ctx context.Context, stmt, id, text string) error {
	res, err := s.db.ExecContext(ctx, stmt, text, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("paper %s: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

// SaveRun persists a run with its vocabulary, pairs and canonical map
// in a single transaction.
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, created_at, docs, vocabulary_size, filtered_size, pair_count, component_count, config)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, r.ID, formatTime(r.CreatedAt), r.Docs, r.VocabularySize, r.FilteredSize, r.PairCount, r.ComponentCount, r.Config)
	if err != nil {
		return err
	}

	vocabStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_vocabulary (run_id, token, count) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer vocabStmt.Close()
	for tok, n := range r.Vocabulary {
		if _, err := vocabStmt.ExecContext(ctx, r.ID, tok, n); err != nil {
			return err
		}
	}

	pairStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_pairs (run_id, seq, a, b, jaccard, cosine) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer pairStmt.Close()
	for i, p := range r.Pairs {
		if _, err := pairStmt.ExecContext(ctx, r.ID, i, p.A, p.B, p.Jaccard, p.Cosine); err != nil {
			return err
		}
	}

	mapStmt, err := tx.PrepareContext(ctx, `INSERT INTO canonical_map (run_id, token, canonical) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer mapStmt.Close()
	for tok, canonical := range r.Map {
		if _, err := mapStmt.ExecContext(ctx, r.ID, tok, canonical); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const runColumns = `id, created_at, docs, vocabulary_size, filtered_size, pair_count, component_count, config`

// GetRun loads a run and its details
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return s.loadRun(ctx, row, id)
}

// LatestRun loads the most recent run. Run IDs are ULIDs, so they sort by time.
func (s *sqliteStore) LatestRun(ctx context.Context) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT 1`)
	return s.loadRun(ctx, row, "latest")
}

func (s *sqliteStore) loadRun(ctx context.Context, row *sql.Row, label string) (store.Run, error) {
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", label, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, err
	}

	if r.Vocabulary, err = s.loadVocabulary(ctx, r.ID); err != nil {
		return store.Run{}, err
	}
	if r.Pairs, err = s.loadPairs(ctx, r.ID); err != nil {
		return store.Run{}, err
	}
	if r.Map, err = s.loadMap(ctx, r.ID); err != nil {
		return store.Run{}, err
	}
	return r, nil
}

// ListRuns returns run summaries, newest first. Details are not loaded.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *sqliteStore) loadVocabulary(ctx context.Context, runID string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token, count FROM run_vocabulary WHERE run_id=?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vocab := make(map[string]int64)
	for rows.Next() {
		var tok string
		var n int64
		if err := rows.Scan(&tok, &n); err != nil {
			return nil, err
		}
		vocab[tok] = n
	}
	return vocab, rows.Err()
}

func (s *sqliteStore) loadPairs(ctx context.Context, runID string) ([]store.Pair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT a, b, jaccard, cosine FROM run_pairs WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []store.Pair
	for rows.Next() {
		var p store.Pair
		if err := rows.Scan(&p.A, &p.B, &p.Jaccard, &p.Cosine); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (s *sqliteStore) loadMap(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token, canonical FROM canonical_map WHERE run_id=?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var tok, canonical string
		if err := rows.Scan(&tok, &canonical); err != nil {
			return nil, err
		}
		m[tok] = canonical
	}
	return m, rows.Err()
}

// GetEmbeddings returns cached vectors for the tokens that have one.
func (s *sqliteStore) GetEmbeddings(ctx context.Context, model string, tokens []string) (map[string][]float32, error) {
	unique := uniqueStrings(tokens)
	out := make(map[string][]float32, len(unique))

	for start := 0; start < len(unique); start += maxParams {
		end := min(start+maxParams, len(unique))
		chunk := unique[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, model)
		for _, tok := range chunk {
			args = append(args, tok)
		}

		query := fmt.Sprintf(`SELECT token, dims, vector FROM embeddings WHERE model = ? AND token IN (%s)`, placeholders)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var (
				tok  string
				dims int
				blob []byte
			)
			if err := rows.Scan(&tok, &dims, &blob); err != nil {
				rows.Close()
				return nil, err
			}
			vec, err := decodeVector(blob, dims)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("embedding %s/%s: %w", model, tok, err)
			}
			out[tok] = vec
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PutEmbeddings stores vectors for a model, replacing existing ones.
func (s *sqliteStore) PutEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO embeddings (model, token, dims, vector) VALUES (?, ?, ?, ?)
ON CONFLICT(model, token) DO UPDATE SET dims=excluded.dims, vector=excluded.vector;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for tok, vec := range vectors {
		if _, err := stmt.ExecContext(ctx, model, tok, len(vec), encodeVector(vec)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPaper(row scanner) (store.Paper, error) {
	var (
		p                   store.Paper
		authors, categories sql.NullString
		published, updated  sql.NullString
	)
	err := row.Scan(&p.ID, &p.Title, &p.Abstract, &authors, &categories, &published, &updated, &p.Cleaned, &p.Rewritten)
	if err != nil {
		return store.Paper{}, err
	}
	if authors.Valid && authors.String != "" {
		if err := json.Unmarshal([]byte(authors.String), &p.Authors); err != nil {
			return store.Paper{}, fmt.Errorf("paper %s authors: %w", p.ID, err)
		}
	}
	if categories.Valid && categories.String != "" {
		if err := json.Unmarshal([]byte(categories.String), &p.Categories); err != nil {
			return store.Paper{}, fmt.Errorf("paper %s categories: %w", p.ID, err)
		}
	}
	p.Published = parseTime(published.String)
	p.Updated = parseTime(updated.String)
	return p, nil
}

func scanRun(row scanner) (store.Run, error) {
	var (
		r       store.Run
		created string
		config  sql.NullString
	)
	err := row.Scan(&r.ID, &created, &r.Docs, &r.VocabularySize, &r.FilteredSize, &r.PairCount, &r.ComponentCount, &config)
	if err != nil {
		return store.Run{}, err
	}
	r.CreatedAt = parseTime(created)
	r.Config = config.String
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte, dims int) ([]float32, error) {
	if len(buf) != 4*dims {
		return nil, fmt.Errorf("%w: blob has %d bytes for %d dims", internalerr.ErrDimensionMismatch, len(buf), dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}

func uniqueStrings(in []string) []string {
	set := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
