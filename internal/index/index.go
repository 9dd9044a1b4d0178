package index

import "github.com/starford/pdfarchiver/internal/models"

// DocumentIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type DocumentIndex interface {
	UpsertDocument(d models.Document, content string) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*models.DocumentDetail, error)
	ListDocuments(f ListFilter) ([]models.Document, int, error)
	AllDocuments() ([]models.Document, error)
	Tags() ([]models.TagCount, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Ping() error
	Close() error
}

// FileIndexer turns the bytes of an archived file into an index entry.
// Sync and the watcher call it for every new or changed PDF.
type FileIndexer interface {
	IndexFile(path string, data []byte) error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
