package domain

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mocks/mock_domain.go -package=mocks

// FileReader reads and parses a JSON (or YAML) document from disk
type FileReader interface {
	// Read returns the parsed document. Failures are *FileError values.
	Read(ctx context.Context, path string) (any, error)
}

// BuildStore persists the outcome of environment builds
type BuildStore interface {
	// Record stores a build outcome and makes it the latest for its environment
	Record(ctx context.Context, rec *BuildRecord) error
	// Last returns the latest build of an environment, ErrNoBuild when none
	Last(ctx context.Context, env string) (*BuildRecord, error)
	// History returns up to limit builds of an environment, newest first
	History(ctx context.Context, env string, limit int) ([]*BuildRecord, error)
	// Close releases store resources
	Close() error
}
