// Package archive coordinates storage, the index and the metadata parser for
// document operations shared by the REST API and the MCP server.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/pdfarchiver/internal/apperr"
	"github.com/starford/pdfarchiver/internal/checksum"
	"github.com/starford/pdfarchiver/internal/fuzzy"
	"github.com/starford/pdfarchiver/internal/index"
	"github.com/starford/pdfarchiver/internal/models"
	"github.com/starford/pdfarchiver/internal/naming"
	"github.com/starford/pdfarchiver/internal/pdftext"
	"github.com/starford/pdfarchiver/internal/storage"
)

// DefaultUntaggedDir is where documents without complete metadata land.
const DefaultUntaggedDir = "untagged"

// Options configure a Service. Zero values fall back to defaults.
type Options struct {
	UntaggedDir      string
	Dates            *naming.DateParser
	Tagger           *naming.Tagger
	ContentPages     int
	MinPartitionSize int
	Logger           *slog.Logger
}

// ListOptions narrows and pages ListDocuments.
type ListOptions struct {
	Limit  int
	Offset int
	Tag    string
	Year   int
	Sort   string
}

// Update is the new metadata for a document.
type Update struct {
	Date          time.Time `json:"date"`
	Specification string    `json:"specification"`
	Tags          []string  `json:"tags"`
}

// Suggestion is the metadata the archive proposes for a document, derived
// from its file name first and its text layer second.
type Suggestion struct {
	Path          string                 `json:"path"`
	Date          time.Time              `json:"date,omitzero"`
	Dates         []naming.DateCandidate `json:"dates"`
	Specification string                 `json:"specification,omitempty"`
	Tags          []string               `json:"tags"`
	Filename      string                 `json:"filename,omitempty"`
}

// SearchHit is a fuzzy search result.
type SearchHit struct {
	models.Document
	Score int `json:"score"`
}

// Service coordinates storage and index operations.
type Service struct {
	store        storage.Provider
	db           index.DocumentIndex
	dates        *naming.DateParser
	tagger       *naming.Tagger
	untaggedDir  string
	contentPages int
	minPartition int
	logger       *slog.Logger
}

// NewService creates a new archive service.
func NewService(store storage.Provider, db index.DocumentIndex, opts Options) *Service {
	s := &Service{
		store:        store,
		db:           db,
		dates:        opts.Dates,
		tagger:       opts.Tagger,
		untaggedDir:  strings.Trim(opts.UntaggedDir, "/"),
		contentPages: opts.ContentPages,
		minPartition: opts.MinPartitionSize,
		logger:       opts.Logger,
	}
	if s.dates == nil {
		s.dates = naming.NewDateParser(naming.SystemLocales()...)
	}
	if s.tagger == nil {
		s.tagger = naming.NewTagger(false)
	}
	if s.untaggedDir == "" {
		s.untaggedDir = DefaultUntaggedDir
	}
	if s.contentPages == 0 {
		s.contentPages = pdftext.DefaultMaxPages
	}
	if s.minPartition <= 0 {
		s.minPartition = fuzzy.MinPartitionSize
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Ready reports whether the index is reachable.
func (s *Service) Ready(_ context.Context) error {
	return s.db.Ping()
}

// ParseFilename parses name with the configured locales.
func (s *Service) ParseFilename(name string) naming.ParsedFilename {
	return s.dates.ParseFilename(name)
}

// GetDocument returns an indexed document. Files that are on disk but not
// (or no longer correctly) indexed are indexed on the way.
func (s *Service) GetDocument(_ context.Context, p string) (*models.DocumentDetail, error) {
	meta, err := s.store.Stat(p)
	if err != nil {
		return nil, err
	}
	d, err := s.db.GetDocument(meta.Path)
	if err == nil && d.Checksum == meta.Checksum {
		return d, nil
	}
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	data, err := s.store.Read(meta.Path)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(meta.Path, data); err != nil {
		return nil, err
	}
	return s.db.GetDocument(meta.Path)
}

// ReadDocument returns the raw PDF bytes.
func (s *Service) ReadDocument(_ context.Context, p string) ([]byte, error) {
	return s.store.Read(p)
}

// ListDocuments returns paginated documents with optional tag and year filters.
func (s *Service) ListDocuments(_ context.Context, opts ListOptions) ([]models.Document, int, error) {
	return s.db.ListDocuments(index.ListFilter(opts))
}

// ImportDocument validates data as a PDF and files it. Metadata missing from
// name is filled from the text layer; fully described documents are stored
// under their canonical name in the year folder, everything else in the
// untagged folder under name.
func (s *Service) ImportDocument(_ context.Context, name string, data []byte) (*models.DocumentDetail, error) {
	info, err := pdftext.Inspect(data)
	if err != nil {
		return nil, err
	}
	name = importName(name)
	text := s.text(name, data)

	meta := naming.StripPlaceholders(s.dates.ParseFilename(name))
	if !meta.HasDate() {
		if c, ok := s.dates.Parse(text); ok {
			meta.Date = c.Date
		}
	}
	if len(meta.Tags) == 0 {
		meta.Tags = s.contentTags(text)
	}

	target := path.Join(s.untaggedDir, name)
	if naming.IsComplete(meta) {
		target = canonicalPath(meta.Date, meta.Specification, meta.Tags)
	}

	if err := s.store.Create(target, data); err != nil {
		return nil, err
	}
	if err := s.upsert(target, data, info, text); err != nil {
		// Leave nothing behind so that a retry does not hit ErrAlreadyExists.
		if rmErr := s.store.Delete(target); rmErr != nil {
			s.logger.Warn("archive: import rollback failed", slog.String("path", target), slog.String("error", rmErr.Error()))
		}
		return nil, err
	}
	s.logger.Info("archive: imported", slog.String("path", target), slog.Int("pages", info.Pages))
	return s.db.GetDocument(target)
}

// Suggest proposes metadata for the document at p.
func (s *Service) Suggest(_ context.Context, p string) (*Suggestion, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	text := s.text(p, data)
	meta := naming.StripPlaceholders(s.dates.ParseFilename(path.Base(p)))

	out := &Suggestion{
		Path:          p,
		Date:          meta.Date,
		Dates:         s.dates.ParseAll(text),
		Specification: meta.Specification,
		Tags:          naming.NormalizeTags(append(meta.Tags, s.contentTags(text)...)),
	}
	if out.Date.IsZero() && len(out.Dates) > 0 {
		out.Date = out.Dates[0].Date
	}
	if !out.Date.IsZero() {
		out.Filename = naming.CreateFilename(out.Date, out.Specification, out.Tags)
	}
	return out, nil
}

// UpdateDocument renames the document at p to the canonical name for u and
// moves it into its year folder. A non-empty ifMatch must equal the current
// checksum.
func (s *Service) UpdateDocument(_ context.Context, p string, u Update, ifMatch string) (*models.DocumentDetail, error) {
	meta, err := s.store.Stat(p)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != meta.Checksum {
		return nil, apperr.ErrConflict
	}
	if u.Date.IsZero() {
		u.Date = s.dates.ParseFilename(path.Base(p)).Date
	}
	if u.Date.IsZero() {
		return nil, fmt.Errorf("archive: update %s: date is required: %w", p, apperr.ErrInvalidDocument)
	}

	target := canonicalPath(u.Date, u.Specification, u.Tags)
	if target != meta.Path {
		if err := s.store.Move(meta.Path, target); err != nil {
			return nil, err
		}
		if err := s.db.DeleteDocument(meta.Path); err != nil {
			return nil, err
		}
	}
	data, err := s.store.Read(target)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(target, data); err != nil {
		return nil, err
	}
	s.logger.Info("archive: renamed", slog.String("from", meta.Path), slog.String("to", target))
	return s.db.GetDocument(target)
}

// DeleteDocument removes a document from storage and index.
func (s *Service) DeleteDocument(_ context.Context, p string) error {
	if err := s.store.Delete(p); err != nil {
		return err
	}
	return s.db.DeleteDocument(p)
}

// Search fuzzy-matches query against every document's date, specification,
// tags and file name, best first. limit <= 0 returns every hit.
func (s *Service) Search(_ context.Context, query string, limit int) ([]SearchHit, error) {
	docs, err := s.db.AllDocuments()
	if err != nil {
		return nil, err
	}
	items := make([]searchable, len(docs))
	for i, d := range docs {
		items[i] = newSearchable(d)
	}
	matches := fuzzy.FindPartitioned(items, query, fuzzy.Partitions(len(items), s.minPartition))
	fuzzy.Rank(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]SearchHit, len(matches))
	for i, m := range matches {
		out[i] = SearchHit{Document: m.Item.doc, Score: m.Score}
	}
	return out, nil
}

// SearchContent runs a full-text search over extracted document text.
func (s *Service) SearchContent(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Tags returns every tag with its document count.
func (s *Service) Tags(_ context.Context) ([]models.TagCount, error) {
	return s.db.Tags()
}

// SearchTags fuzzy-matches query against the tag names, best first.
func (s *Service) SearchTags(ctx context.Context, query string) ([]models.TagCount, error) {
	tags, err := s.Tags(ctx)
	if err != nil {
		return nil, err
	}
	matches := fuzzy.FindPartitioned(tags, query, fuzzy.Partitions(len(tags), s.minPartition))
	fuzzy.Rank(matches)
	out := make([]models.TagCount, len(matches))
	for i, m := range matches {
		out[i] = m.Item
	}
	return out, nil
}

// IndexFile parses data and upserts it into the index.
// Exported so that sync and watcher can reuse it.
func (s *Service) IndexFile(p string, data []byte) error {
	info, err := pdftext.Inspect(data)
	if err != nil {
		return err
	}
	return s.upsert(p, data, info, s.text(p, data))
}

func (s *Service) upsert(p string, data []byte, info pdftext.Info, text string) error {
	meta := naming.StripPlaceholders(s.dates.ParseFilename(path.Base(p)))
	tags := meta.Tags
	if tags == nil {
		tags = []string{}
	}
	return s.db.UpsertDocument(models.Document{
		Path:          p,
		Filename:      path.Base(p),
		Date:          meta.Date,
		Specification: meta.Specification,
		Tags:          tags,
		Tagged:        naming.IsComplete(meta),
		Checksum:      checksum.Sum(data),
		Size:          int64(len(data)),
		Pages:         info.Pages,
		UpdatedAt:     time.Now(),
	}, text)
}

// text extracts the text layer, logging rather than failing: a document
// without readable text is still a valid document.
func (s *Service) text(p string, data []byte) string {
	text, err := pdftext.Text(data, s.contentPages)
	if err != nil {
		s.logger.Warn("archive: text extraction failed", slog.String("path", p), slog.String("error", err.Error()))
		return ""
	}
	return text
}

// contentTags suggests tags from text using the configured keywords plus
// every tag already in the archive.
func (s *Service) contentTags(text string) []string {
	if !s.tagger.Enabled() || text == "" {
		return []string{}
	}
	known, err := s.db.Tags()
	if err != nil {
		s.logger.Warn("archive: load tags failed", slog.String("error", err.Error()))
		return s.tagger.ParseTags(text)
	}
	words := make([]string, len(known))
	for i, t := range known {
		words[i] = t.Name
	}
	return s.tagger.WithVocabulary(words...).ParseTags(text)
}

func canonicalPath(date time.Time, specification string, tags []string) string {
	return path.Join(strconv.Itoa(date.Year()), naming.CreateFilename(date, specification, tags))
}

// importName reduces a client supplied name to a safe base name with a .pdf
// extension, inventing one when nothing usable is left.
func importName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		name = ""
	}
	if !storage.IsDocument(name) {
		name = strings.TrimSuffix(name, path.Ext(name))
		if name == "" {
			name = uuid.NewString()
		}
		name += naming.Extension
	}
	return name
}

type searchable struct {
	doc  models.Document
	term []byte
}

func newSearchable(d models.Document) searchable {
	parts := []string{d.Specification, strings.Join(d.Tags, " "), d.Filename}
	if !d.Date.IsZero() {
		parts = append([]string{d.Date.Format("2006-01-02")}, parts...)
	}
	return searchable{doc: d, term: []byte(strings.ToLower(strings.Join(parts, " ")))}
}

func (s searchable) Term() []byte { return s.term }
