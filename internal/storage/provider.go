// Package storage defines the archive file-system abstraction.
package storage

import "github.com/starford/pdfarchiver/internal/models"

// Extension is the only file type the archive tracks.
const Extension = ".pdf"

// Provider is the interface for archive file operations. All paths are
// relative to the archive root and use forward slashes.
type Provider interface {
	// Root returns the absolute archive directory.
	Root() string
	// List returns metadata for every PDF under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Stat returns metadata for a single file.
	Stat(path string) (models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, replacing any existing file.
	Write(path string, content []byte) error
	// Create atomically writes content to path; it fails with
	// apperr.ErrAlreadyExists when path is taken.
	Create(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath without replacing an existing file.
	Move(oldPath, newPath string) error
}
