package generator

import (
	"context"

	"github.com/mothman/mothman/internal/utils"
)

// Generator interface for repository generators
type Generator interface {
	// Build indexes the package directory and rewrites the repository
	// metadata files.
	Build(ctx context.Context) (*Report, error)
}

// IndexFile describes one written encoding of the index.
type IndexFile struct {
	Name        string
	Compression string
	Checksum    *utils.Checksum
}

// Report summarizes a successful build.
type Report struct {
	// Packages is the number of unique package names discovered.
	Packages int
	// Records is the number of paragraphs written to the index.
	Records int
	// Files lists the index encodings written, in request order.
	Files []IndexFile
	// SoftErrors holds failures that did not abort the build.
	SoftErrors []error
	// Index is the uncompressed index content.
	Index []byte
}
