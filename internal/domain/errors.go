package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	// ErrFileNotFound indicates a referenced file does not exist
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidJSON indicates a file could not be parsed as JSON or YAML
	ErrInvalidJSON = errors.New("invalid JSON document")

	// ErrSchemaNotFound indicates a schema id is absent from the registry
	ErrSchemaNotFound = errors.New("schema not found from registry")

	// ErrInvalidSchema indicates a schema document is malformed
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrNoSchema indicates a manifest has no governing schema
	ErrNoSchema = errors.New("no schema specified")

	// ErrNoRegistry indicates the engine was created without a schema registry
	ErrNoRegistry = errors.New("no schema DB specified")

	// ErrInvalidManifest indicates a manifest value has an unsupported shape
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrInvalidSource indicates a field source reference has an unsupported shape
	ErrInvalidSource = errors.New("invalid field source")

	// ErrUnknownEnvironment indicates a requested environment is not listed
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrWriteFailed indicates writing output failed
	ErrWriteFailed = errors.New("write failed")
)

// FileError wraps a read or parse failure with the offending path
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("unable to read file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError creates a new FileError
func NewFileError(path string, err error) *FileError {
	return &FileError{
		Path: path,
		Err:  err,
	}
}

// SchemaShapeError reports a required field that has no property definition
type SchemaShapeError struct {
	Property string
	SchemaID string
}

func (e *SchemaShapeError) Error() string {
	return fmt.Sprintf("property '%s' not found from schema %s", e.Property, e.SchemaID)
}

// FieldDirectiveError reports a required field that has neither inline data nor a source
type FieldDirectiveError struct {
	Field string
	Ref   string
}

func (e *FieldDirectiveError) Error() string {
	return fmt.Sprintf("no '%s' field present in %s:dataSources", e.Field, e.Ref)
}

// UnsupportedTypeError reports a field whose type cannot be resolved from external sources
type UnsupportedTypeError struct {
	Type  string
	Ref   string
	Field string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported field type (%s) in %s:dataSources:%s", e.Type, e.Ref, e.Field)
}

// Issue is a single schema constraint violation
type Issue struct {
	Path    string // JSON pointer into the instance, "" for the root
	Keyword string // keyword location inside the schema
	Message string
}

func (i Issue) String() string {
	path := i.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s: %s", path, i.Message)
}

// Issues is a list of violations that implements error
type Issues []Issue

// Error summarizes the first few issues
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(iss[i].String())
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// ValidationError is the aggregate failure raised after every issue was reported
type ValidationError struct {
	Target string // schema id or "environment: <name>"
	Issues Issues
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s", e.Target)
}

func (e *ValidationError) Unwrap() error {
	return e.Issues
}

// NewValidationError creates a new ValidationError
func NewValidationError(target string, issues Issues) *ValidationError {
	return &ValidationError{
		Target: target,
		Issues: issues,
	}
}

// EnvironmentError represents a failed environment build
type EnvironmentError struct {
	Environment string
	Err         error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("environment %s failed: %v", e.Environment, e.Err)
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// NewEnvironmentError creates a new EnvironmentError
func NewEnvironmentError(env string, err error) *EnvironmentError {
	return &EnvironmentError{
		Environment: env,
		Err:         err,
	}
}

// AsIssues extracts Issues from an error chain
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
