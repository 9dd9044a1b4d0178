package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pdfarchiver/internal/archive"
	"github.com/starford/pdfarchiver/internal/naming"
)

const maxJSONBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *archive.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *archive.Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the document path from the wildcard part of the URL.
// Supports encoded slashes from OpenAPI clients (e.g. 2010%2Fscan.pdf).
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination and filtering
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			year	query		int		false	"Filter by year"
//	@Param			sort	query		string	false	"Sort order"	Enums(date, date_asc, path, updated)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	year, _ := strconv.Atoi(q.Get("year"))

	docs, total, err := h.svc.ListDocuments(r.Context(), archive.ListOptions{
		Limit:  limit,
		Offset: offset,
		Tag:    q.Get("tag"),
		Year:   year,
		Sort:   q.Get("sort"),
	})
	if err != nil {
		writeError(w, "list documents", "", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single document by path
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), path)
	if err != nil {
		writeError(w, "get document", path, err)
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocument handles PUT /api/documents/*.
//
//	@Summary		Rename a document to the canonical name for new metadata
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string					true	"Document path"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateDocumentRequest	true	"New metadata"
//	@Success		200			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	u := archive.Update{Specification: req.Specification, Tags: req.Tags}
	if req.Date != "" {
		u.Date, _ = time.Parse(dateLayout, req.Date)
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	doc, err := h.svc.UpdateDocument(r.Context(), path, u, ifMatch)
	if err != nil {
		writeError(w, "update document", path, err)
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/*.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			path	path	string	true	"Document path"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), path); err != nil {
		writeError(w, "delete document", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Suggest handles GET /api/suggestions/*.
//
//	@Summary		Suggest metadata from file name and content
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	archive.Suggestion
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/suggestions/{path} [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	sug, err := h.svc.Suggest(r.Context(), path)
	if err != nil {
		writeError(w, "suggest", path, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

// Search handles GET /api/search.
//
//	@Summary		Fuzzy search over document dates, descriptions and tags
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", "", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}

// SearchContent handles GET /api/search/content.
//
//	@Summary		Full-text search across extracted document text
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	ContentSearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search/content [get]
func (h *Handler) SearchContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.SearchContent(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search content", "", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentSearchResponse{Results: results})
}

// Tags handles GET /api/tags.
//
//	@Summary		List tags with document counts, optionally fuzzy filtered
//	@Tags			tags
//	@Produce		json
//	@Param			q	query		string	false	"Fuzzy filter"
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	var (
		resp TagsResponse
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		resp.Tags, err = h.svc.SearchTags(r.Context(), q)
	} else {
		resp.Tags, err = h.svc.Tags(r.Context())
	}
	if err != nil {
		writeError(w, "tags", "", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Parse handles POST /api/parse.
//
//	@Summary		Parse date, description and tags from a file name
//	@Tags			naming
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ParseRequest	true	"File name"
//	@Success		200		{object}	ParseResponse
//	@Failure		400		{object}	errResponse
//	@Router			/parse [post]
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	parsed := naming.StripPlaceholders(h.svc.ParseFilename(req.Filename))
	resp := ParseResponse{
		Specification: parsed.Specification,
		Tags:          parsed.Tags,
		Complete:      naming.IsComplete(parsed),
	}
	if parsed.HasDate() {
		resp.Date = parsed.Date.Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateFilename handles POST /api/filename.
//
//	@Summary		Build the canonical file name for metadata
//	@Tags			naming
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FilenameRequest	true	"Metadata"
//	@Success		200		{object}	FilenameResponse
//	@Failure		400		{object}	errResponse
//	@Router			/filename [post]
func (h *Handler) CreateFilename(w http.ResponseWriter, r *http.Request) {
	var req FilenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	date, _ := time.Parse(dateLayout, req.Date)
	writeJSON(w, http.StatusOK, FilenameResponse{
		Filename: naming.CreateFilename(date, req.Specification, req.Tags),
	})
}
