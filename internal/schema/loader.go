package schema

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/utils"
)

// DefaultPattern selects every file directly inside the registry directory
const DefaultPattern = "*"

// LoadOptions configures LoadDir
type LoadOptions struct {
	// Pattern is a doublestar glob relative to the directory
	Pattern string
	Reader  domain.FileReader
	Logger  *utils.Logger
}

// LoadDir reads every file of dir matching the pattern, in lexical order, into
// a registry. A missing or empty directory yields an empty registry and one
// warning. The first unreadable file or document without an id aborts.
func LoadDir(ctx context.Context, dir string, opts LoadOptions) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	logger = logger.WithComponent("schema")
	pattern := opts.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if opts.Reader == nil {
		return nil, errors.New("schema loader requires a file reader")
	}

	files, err := listFiles(dir, pattern)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		logger.Warn().Str("dir", dir).Msgf("no schema found from specified folder: %s", dir)
		return NewRegistry(), nil
	}

	docs := make([]*Document, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, path := range files {
		v, err := opts.Reader.Read(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s as JSON: %w", path, err)
		}
		raw, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("failed to read %s as JSON: %w: document is not an object", path, domain.ErrInvalidSchema)
		}
		doc, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s as JSON: %w", path, err)
		}
		if doc.ID == "" {
			return nil, fmt.Errorf("failed to read %s as JSON: %w: missing id", path, domain.ErrInvalidSchema)
		}
		if prev, dup := seen[doc.ID]; dup {
			logger.Warn().Str("id", doc.ID).Str("file", path).Str("previous", prev).Msg("Duplicate schema id, later file wins")
		}
		seen[doc.ID] = path
		docs = append(docs, doc)
	}

	reg := NewRegistry(docs...)
	logger.Debug().Str("dir", dir).Int("schemas", reg.Len()).Msg("Schema registry loaded")
	return reg, nil
}

func listFiles(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid schema pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		st, err := fs.Stat(fsys, m)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
	}
	return files, nil
}
