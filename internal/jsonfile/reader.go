// Package jsonfile reads manifest, schema and data documents from disk.
package jsonfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/utils"
)

// Reader implements domain.FileReader
type Reader struct {
	logger *utils.Logger
}

// NewReader creates a new Reader. A nil logger discards output.
func NewReader(logger *utils.Logger) *Reader {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Reader{logger: logger.WithComponent("reader")}
}

// Read loads and parses the document at path. Numbers are kept as json.Number.
func (r *Reader) Read(ctx context.Context, path string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewFileError(path, fmt.Errorf("%w: %w", domain.ErrFileNotFound, err))
		}
		return nil, domain.NewFileError(path, err)
	}

	v, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, domain.NewFileError(path, err)
	}

	r.logger.WithFile(path).Debug().Int("bytes", len(data)).Msg("Document read")
	return v, nil
}

// Parse decodes data as JSON, or YAML when ext is .yaml or .yml. A leading
// byte order mark is dropped and blank input decodes to an empty object.
func Parse(data []byte, ext string) (any, error) {
	data, err := stripBOM(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJSON, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return decodeJSON(data)
	}
}

func stripBOM(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	return out, err
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJSON, err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", domain.ErrInvalidJSON)
	}
	return v, nil
}

// parseYAML decodes YAML and normalizes it to the shapes produced by JSON decoding
func parseYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJSON, err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJSON, err)
	}
	return decodeJSON(raw)
}
