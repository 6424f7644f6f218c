package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/jsonbundler/internal/domain"
)

func TestNewWriter(t *testing.T) {
	tests := []struct {
		name   string
		opts   WriterOptions
		indent string
	}{
		{"default indent", WriterOptions{}, "    "},
		{"negative indent", WriterOptions{Indent: -1}, "    "},
		{"custom indent", WriterOptions{Indent: 2}, "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(tt.opts)
			assert.Equal(t, tt.indent, w.indent)
			assert.False(t, w.IsDryRun())
		})
	}
}

func TestWriter_Marshal(t *testing.T) {
	w := NewWriter(WriterOptions{})
	doc := map[string]any{
		"version": "1.0",
		"about":   map[string]any{"url": "https://example.com/?a=1&b=<2>"},
		"count":   json.Number("7"),
	}

	data, err := w.Marshal(doc)
	require.NoError(t, err)

	expected := "{\n" +
		"    \"about\": {\n" +
		"        \"url\": \"https://example.com/?a=1&b=<2>\"\n" +
		"    },\n" +
		"    \"count\": 7,\n" +
		"    \"version\": \"1.0\"\n" +
		"}\n"
	assert.Equal(t, expected, string(data))
}

func TestWriter_Write(t *testing.T) {
	ctx := context.Background()

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "build", "dev", "bundle.json")
		w := NewWriter(WriterOptions{})

		require.NoError(t, w.Write(ctx, path, []byte("{}\n")))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "{}\n", string(data))
		assert.FileExists(t, path)

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("replaces existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bundle.json")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

		require.NoError(t, NewWriter(WriterOptions{}).Write(ctx, path, []byte("new")))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bundle.json")
		w := NewWriter(WriterOptions{DryRun: true})

		require.NoError(t, w.Write(ctx, path, []byte("{}")))
		assert.True(t, w.IsDryRun())
		assert.NoFileExists(t, path)
	})

	t.Run("unwritable target", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))

		err := NewWriter(WriterOptions{}).Write(ctx, filepath.Join(blocker, "bundle.json"), []byte("{}"))
		assert.ErrorIs(t, err, domain.ErrWriteFailed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := NewWriter(WriterOptions{}).Write(cctx, filepath.Join(t.TempDir(), "b.json"), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("b")))

	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))
	d, err := FileDigest(path)
	require.NoError(t, err)
	assert.Equal(t, Digest([]byte("a")), d)

	_, err = FileDigest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
