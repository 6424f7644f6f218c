package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSentinelErrors verifies sentinel errors are defined
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check string
	}{
		{"ErrFileNotFound", ErrFileNotFound, "file not found"},
		{"ErrInvalidJSON", ErrInvalidJSON, "invalid JSON"},
		{"ErrSchemaNotFound", ErrSchemaNotFound, "not found from registry"},
		{"ErrInvalidSchema", ErrInvalidSchema, "invalid schema"},
		{"ErrNoSchema", ErrNoSchema, "no schema"},
		{"ErrNoRegistry", ErrNoRegistry, "no schema DB"},
		{"ErrInvalidManifest", ErrInvalidManifest, "invalid manifest"},
		{"ErrInvalidSource", ErrInvalidSource, "invalid field source"},
		{"ErrUnknownEnvironment", ErrUnknownEnvironment, "unknown environment"},
		{"ErrWriteFailed", ErrWriteFailed, "write failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.Contains(t, tt.err.Error(), tt.check)
		})
	}
}

func TestFileError(t *testing.T) {
	err := NewFileError("about.json", fmt.Errorf("%w: open about.json", fs.ErrNotExist))

	assert.Equal(t, "unable to read file about.json: file does not exist: open about.json", err.Error())
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var fileErr *FileError
	wrapped := fmt.Errorf("field about: %w", err)
	require.True(t, errors.As(wrapped, &fileErr))
	assert.Equal(t, "about.json", fileErr.Path)
}

func TestSchemaShapeError(t *testing.T) {
	err := &SchemaShapeError{Property: "bom", SchemaID: "/product"}
	assert.Equal(t, "property 'bom' not found from schema /product", err.Error())
}

func TestFieldDirectiveError(t *testing.T) {
	err := &FieldDirectiveError{Field: "b", Ref: "manifest.json"}
	assert.Equal(t, "no 'b' field present in manifest.json:dataSources", err.Error())

	empty := &FieldDirectiveError{Field: "about"}
	assert.Equal(t, "no 'about' field present in :dataSources", empty.Error())
}

func TestUnsupportedTypeError(t *testing.T) {
	err := &UnsupportedTypeError{Type: "string", Field: "unsupported"}
	assert.Equal(t, "unsupported field type (string) in :dataSources:unsupported", err.Error())
}

func TestIssues(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", Issues{}.Error())
	})

	t.Run("root path", func(t *testing.T) {
		iss := Issues{{Path: "", Message: "expected object, but got array"}}
		assert.Equal(t, "/: expected object, but got array", iss.Error())
	})

	t.Run("truncated summary", func(t *testing.T) {
		iss := Issues{
			{Path: "/a", Message: "m1"},
			{Path: "/b", Message: "m2"},
			{Path: "/c", Message: "m3"},
			{Path: "/d", Message: "m4"},
		}
		assert.Equal(t, "/a: m1; /b: m2; /c: m3; ... (total 4)", iss.Error())
	})
}

func TestValidationError(t *testing.T) {
	issues := Issues{{Path: "/bom", Keyword: "/properties/bom/type", Message: "expected integer, but got string"}}
	err := NewValidationError("/product", issues)

	assert.Equal(t, "validation failed for /product", err.Error())

	got, ok := AsIssues(fmt.Errorf("build: %w", err))
	require.True(t, ok)
	assert.Equal(t, issues, got)

	_, ok = AsIssues(nil)
	assert.False(t, ok)
	_, ok = AsIssues(errors.New("plain"))
	assert.False(t, ok)
}

func TestEnvironmentError(t *testing.T) {
	base := &FieldDirectiveError{Field: "about", Ref: "m.json"}
	err := NewEnvironmentError("dev", base)

	assert.Contains(t, err.Error(), "environment dev failed")
	assert.Contains(t, err.Error(), "no 'about' field")

	var fieldErr *FieldDirectiveError
	assert.True(t, errors.As(err, &fieldErr))
}

func TestBuildRecord_Succeeded(t *testing.T) {
	assert.True(t, (&BuildRecord{Status: BuildWritten}).Succeeded())
	assert.True(t, (&BuildRecord{Status: BuildUnchanged}).Succeeded())
	assert.False(t, (&BuildRecord{Status: BuildFailed}).Succeeded())
}
