package manifest

import "errors"

// Sentinel errors for the manifest package
var (
	// ErrNoEnvironments indicates the listing defines no environment
	ErrNoEnvironments = errors.New("listing must contain at least one environment")

	// ErrInvalidFormat indicates the listing is not valid YAML or JSON
	ErrInvalidFormat = errors.New("listing must be valid YAML or JSON")

	// ErrFileNotFound indicates the listing file does not exist
	ErrFileNotFound = errors.New("listing file not found")

	// ErrUnsupportedExt indicates an unsupported file extension
	ErrUnsupportedExt = errors.New("unsupported file extension (use .json, .yaml, or .yml)")
)
