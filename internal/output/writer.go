package output

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/utils"
)

// DefaultIndent is the number of spaces per nesting level
const DefaultIndent = 4

// Writer serializes bundles and writes them to disk
type Writer struct {
	indent string
	dryRun bool
}

// WriterOptions contains options for the writer
type WriterOptions struct {
	Indent int
	DryRun bool
}

// NewWriter creates a new output writer
func NewWriter(opts WriterOptions) *Writer {
	if opts.Indent <= 0 {
		opts.Indent = DefaultIndent
	}

	return &Writer{
		indent: strings.Repeat(" ", opts.Indent),
		dryRun: opts.DryRun,
	}
}

// Marshal renders doc as indented JSON with a trailing newline. HTML
// characters are not escaped.
func (w *Writer) Marshal(doc any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", w.indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores data at path, creating parent directories. The file is
// replaced through a rename so readers never see a partial bundle. Dry runs
// write nothing.
func (w *Writer) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.dryRun {
		return nil
	}

	if err := utils.EnsureDir(path); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrWriteFailed, path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrWriteFailed, path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %v", domain.ErrWriteFailed, path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %v", domain.ErrWriteFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrWriteFailed, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrWriteFailed, path, err)
	}
	return nil
}

// IsDryRun reports whether writes are suppressed
func (w *Writer) IsDryRun() bool {
	return w.dryRun
}

// Digest returns the hex SHA-256 of data
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileDigest returns the digest of the file at path
func FileDigest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Digest(data), nil
}
