package api

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"time"
)

const maxUploadBytes = 100 << 20 // 100 MB

// ImportDocument handles POST /api/documents (multipart/form-data, field
// "file"). An optional "name" field overrides the uploaded file name.
//
//	@Summary		Import a PDF into the archive
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"PDF document"
//	@Param			name	formData	string	false	"File name to parse metadata from"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	name := header.Filename
	if override := r.FormValue("name"); override != "" {
		name = override
	}

	doc, err := h.svc.ImportDocument(r.Context(), name, data)
	if err != nil {
		writeError(w, "import document", name, err)
		return
	}
	w.Header().Set("Location", "/api/documents/"+doc.Path)
	writeJSON(w, http.StatusCreated, doc)
}

// RawDocument handles GET /api/raw/* and streams the PDF bytes. Range and
// conditional requests are handled by http.ServeContent.
//
//	@Summary		Download the PDF
//	@Tags			documents
//	@Produce		application/pdf
//	@Param			path	path	string	true	"Document path"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/raw/{path} [get]
func (h *Handler) RawDocument(w http.ResponseWriter, r *http.Request) {
	p := documentPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	data, err := h.svc.ReadDocument(r.Context(), p)
	if err != nil {
		writeError(w, "read document", p, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+path.Base(p)+`"`)
	http.ServeContent(w, r, path.Base(p), time.Time{}, bytes.NewReader(data))
}
