package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pdfarchiver/internal/archive"
	"github.com/starford/pdfarchiver/internal/index"
	"github.com/starford/pdfarchiver/internal/models"
)

// dateLayout is the wire format of calendar dates in requests and in
// filename responses.
const dateLayout = "2006-01-02"

// UpdateDocumentRequest is the request body for renaming a document.
type UpdateDocumentRequest struct {
	Date          string   `json:"date" example:"2010-05-12"`
	Specification string   `json:"specification" example:"electric-bill"`
	Tags          []string `json:"tags" example:"bill,energy"`
}

// Validate validates the rename request.
func (r UpdateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.Date(dateLayout)),
		validation.Field(&r.Tags, validation.Each(validation.Required, validation.Length(1, 64))),
	)
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = models.DocumentDetail

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents" validate:"required"`
	Total     int               `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps fuzzy search hits.
type SearchResponse struct {
	Results []archive.SearchHit `json:"results" validate:"required"`
}

// ContentSearchResponse wraps full-text search hits.
type ContentSearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// TagsResponse wraps tag listings.
type TagsResponse struct {
	Tags []models.TagCount `json:"tags" validate:"required"`
}

// ParseRequest is the request body for POST /parse.
type ParseRequest struct {
	Filename string `json:"filename" example:"2010-05-12--example-description__tag1_tag2.pdf" validate:"required"`
}

// Validate validates the parse request.
func (r ParseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Filename, validation.Required, validation.Length(1, 1024)),
	)
}

// ParseResponse is the parsed metadata of a file name. Absent parts are
// omitted; placeholders are already stripped.
type ParseResponse struct {
	Date          string   `json:"date,omitempty" example:"2010-05-12"`
	Specification string   `json:"specification,omitempty" example:"example-description"`
	Tags          []string `json:"tags,omitempty" example:"tag1,tag2"`
	Complete      bool     `json:"complete"`
}

// FilenameRequest is the request body for POST /filename.
type FilenameRequest struct {
	Date          string   `json:"date" example:"2010-05-12" validate:"required"`
	Specification string   `json:"specification" example:"example description"`
	Tags          []string `json:"tags" example:"tag2,tag1"`
}

// Validate validates the filename request.
func (r FilenameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.Required, validation.Date(dateLayout)),
		validation.Field(&r.Tags, validation.Each(validation.Required, validation.Length(1, 64))),
	)
}

// FilenameResponse carries a canonical file name.
type FilenameResponse struct {
	Filename string `json:"filename" example:"2010-05-12--example-description__tag1_tag2.pdf" validate:"required"`
}
