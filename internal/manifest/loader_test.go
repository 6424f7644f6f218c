package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/jsonbundler/internal/domain"
)

func TestLoader_Load_FileNotFound(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Load("testdata/missing.json")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoader_Load_Nested(t *testing.T) {
	listing, err := NewLoader().Load("testdata/listing.json")
	require.NoError(t, err)

	assert.Equal(t, "testdata/listing.json", listing.Path)
	assert.Equal(t, []string{"dev", "prod"}, listing.Names())
	assert.Equal(t, 2, listing.Options.Concurrency)
	assert.Equal(t, 4, listing.Options.Indent)

	prod, err := listing.Environment("prod")
	require.NoError(t, err)
	assert.Equal(t, "prod", prod.Name)
	assert.Equal(t, "build/prod/bundle.json", prod.Output)
	assert.Equal(t, "specs/manifest/prod.json", prod.Target)
	assert.Equal(t, "specs/schema/database", prod.SchemaDB)
	assert.Equal(t, "/deliverable", prod.Schema)
	assert.NoError(t, prod.Validate())
}

func TestLoader_Load_FlatYAML(t *testing.T) {
	listing, err := NewLoader().Load("testdata/flat.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"broken", "dev"}, listing.Names())
	assert.Equal(t, 2, listing.Options.Indent)

	dev, err := listing.Environment("dev")
	require.NoError(t, err)
	assert.NoError(t, dev.Validate())

	broken, err := listing.Environment("broken")
	require.NoError(t, err)
	err = broken.Validate()
	require.Error(t, err)
	assert.EqualError(t, err, "validation failed for environment: broken")

	issues, ok := domain.AsIssues(err)
	require.True(t, ok)
	require.Len(t, issues, 2)
	assert.Equal(t, "/target", issues[0].Path)
	assert.Equal(t, "missing property 'target'", issues[0].Message)
	assert.Equal(t, "/schemaDb", issues[1].Path)
}

func TestLoader_UnknownEnvironment(t *testing.T) {
	listing, err := NewLoader().Load("testdata/listing.json")
	require.NoError(t, err)

	_, err = listing.Environment("foo")
	assert.ErrorIs(t, err, domain.ErrUnknownEnvironment)
	assert.EqualError(t, err, "unknown environment: foo")
}

func TestLoadFromBytes(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		data    string
		ext     string
		wantErr error
	}{
		{"invalid json", `{"dev": `, ".json", ErrInvalidFormat},
		{"invalid yaml", "dev: [", ".yaml", ErrInvalidFormat},
		{"unsupported extension", `{}`, ".toml", ErrUnsupportedExt},
		{"top level array", `[]`, ".json", ErrInvalidFormat},
		{"entry not an object", `{"dev": "x"}`, ".json", ErrInvalidFormat},
		{"null entry", `{"environments": {"dev": null}}`, ".json", ErrInvalidFormat},
		{"no environments", `{"options": {"indent": 2}}`, ".json", ErrNoEnvironments},
		{"empty document", ``, ".json", ErrNoEnvironments},
		{"concurrency out of range", `{"dev": {"output": "o", "target": "t", "schemaDb": "s"}, "options": {"concurrency": 1000}}`, ".json", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadFromBytes([]byte(tt.data), tt.ext)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoadFromBytes_CaseInsensitiveExt(t *testing.T) {
	listing, err := NewLoader().LoadFromBytes([]byte("dev:\n  output: o\n  target: t\n  schemaDb: s\n"), ".YML")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev"}, listing.Names())
}

func TestLoaderWithDefaults(t *testing.T) {
	loader := NewLoaderWithDefaults(Options{Concurrency: 8})
	listing, err := loader.LoadFromBytes([]byte(`{"dev": {"output": "o", "target": "t", "schemaDb": "s"}}`), ".json")
	require.NoError(t, err)

	assert.Equal(t, 8, listing.Options.Concurrency)
	assert.Equal(t, DefaultOptions().Indent, listing.Options.Indent)
}

func TestLoader_Load_ReadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "listing.json")
	require.NoError(t, os.Mkdir(path, 0755))

	_, err := NewLoader().Load(path)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrFileNotFound)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, 4, opts.Indent)
}
