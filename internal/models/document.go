// Package models defines the domain types for the PDF archive.
package models

import "time"

// Document is an archived PDF as recorded in the index.
type Document struct {
	Path          string    `json:"path"`
	Filename      string    `json:"filename"`
	Date          time.Time `json:"date,omitzero"`
	Specification string    `json:"specification,omitempty"`
	Tags          []string  `json:"tags"`
	Tagged        bool      `json:"tagged"`
	Checksum      string    `json:"checksum"`
	Size          int64     `json:"size"`
	Pages         int       `json:"pages"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DocumentDetail is a Document together with its extracted text.
type DocumentDetail struct {
	Document
	Content string `json:"content,omitempty"`
}

// FileMetadata is a lightweight representation returned by storage listings.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagCount is a tag and the number of documents carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Term makes a tag count fuzzy-searchable by name.
func (t TagCount) Term() []byte {
	return []byte(t.Name)
}
