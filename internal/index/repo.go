package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/pdfarchiver/internal/apperr"
	"github.com/starford/pdfarchiver/internal/models"
)

// Sort orders accepted by ListDocuments.
const (
	SortDateDesc = "date"
	SortDateAsc  = "date_asc"
	SortPath     = "path"
	SortUpdated  = "updated"
)

const defaultListLimit = 50

// ListFilter narrows and pages a document listing.
type ListFilter struct {
	Limit  int
	Offset int
	Tag    string
	Year   int
	Sort   string
}

// SearchResult represents one full-text hit.
type SearchResult struct {
	Path          string `json:"path"`
	Specification string `json:"specification"`
	Snippet       string `json:"snippet"`
}

const documentColumns = `path, filename, date, specification, tags, tagged, checksum, size, pages, updated_at`

// UpsertDocument inserts or replaces a document, its tag rows and its FTS
// entry within a transaction.
func (db *DB) UpsertDocument(d models.Document, content string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO documents (path, filename, date, specification, tags, tagged, checksum, size, pages, content, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename      = excluded.filename,
			date          = excluded.date,
			specification = excluded.specification,
			tags          = excluded.tags,
			tagged        = excluded.tagged,
			checksum      = excluded.checksum,
			size          = excluded.size,
			pages         = excluded.pages,
			content       = excluded.content,
			updated_at    = excluded.updated_at
	`, d.Path, d.Filename, formatDate(d.Date), d.Specification, string(tagsJSON), d.Tagged,
		d.Checksum, d.Size, d.Pages, content, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, d.Path, d.Specification, content, tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM document_tags WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	if len(tags) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO document_tags (path, tag) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tag := range tags {
			if _, err := stmt.Exec(d.Path, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its tags and its FTS entry.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM document_tags WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete tags: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or the empty
// string if it is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns one indexed document with its extracted text.
func (db *DB) GetDocument(path string) (*models.DocumentDetail, error) {
	row := db.conn.QueryRow(`SELECT `+documentColumns+`, content FROM documents WHERE path = ?`, path)
	var out models.DocumentDetail
	if err := scanDocument(row, &out.Document, &out.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("index: get document %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &out, nil
}

// ListDocuments returns one page of documents plus the total number matching
// the filter.
func (db *DB) ListDocuments(f ListFilter) ([]models.Document, int, error) {
	var where []string
	var args []any
	if f.Tag != "" {
		where = append(where, `path IN (SELECT path FROM document_tags WHERE tag = ?)`)
		args = append(args, f.Tag)
	}
	if f.Year > 0 {
		where = append(where, `substr(date, 1, 4) = ?`)
		args = append(args, strconv.Itoa(f.Year))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := max(f.Offset, 0)

	query := `SELECT ` + documentColumns + ` FROM documents` + clause +
		` ORDER BY ` + orderBy(f.Sort) + ` LIMIT ? OFFSET ?`
	docs, err := db.queryDocuments(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// AllDocuments returns every indexed document, newest first.
func (db *DB) AllDocuments() ([]models.Document, error) {
	return db.queryDocuments(`SELECT ` + documentColumns + ` FROM documents ORDER BY ` + orderBy(SortDateDesc))
}

// Tags returns every tag with the number of documents carrying it, most
// used first.
func (db *DB) Tags() ([]models.TagCount, error) {
	rows, err := db.conn.Query(`SELECT tag, count(*) AS n FROM document_tags GROUP BY tag ORDER BY n DESC, tag`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	out := []models.TagCount{}
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func (db *DB) queryDocuments(query string, args ...any) ([]models.Document, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner, d *models.Document, extra ...any) error {
	var date, tagsJSON string
	dest := append([]any{&d.Path, &d.Filename, &date, &d.Specification, &tagsJSON, &d.Tagged,
		&d.Checksum, &d.Size, &d.Pages, &d.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	if date != "" {
		d.Date, _ = time.Parse(dateLayout, date)
	}
	d.Tags = []string{}
	_ = json.Unmarshal([]byte(tagsJSON), &d.Tags)
	return nil
}

func orderBy(sort string) string {
	switch sort {
	case SortDateAsc:
		return `date = '', date ASC, path ASC`
	case SortPath:
		return `path ASC`
	case SortUpdated:
		return `updated_at DESC, path ASC`
	default:
		return `date DESC, path ASC`
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
