package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/quantmind-br/jsonbundler/internal/jsonfile"
)

const (
	environmentsKey = "environments"
	optionsKey      = "options"
)

// Loader loads environment listings
type Loader struct {
	defaults Options
}

// NewLoader creates a new listing loader
func NewLoader() *Loader {
	return &Loader{defaults: DefaultOptions()}
}

// NewLoaderWithDefaults creates a loader that fills unset listing options
// from defaults, typically the configured values
func NewLoaderWithDefaults(defaults Options) *Loader {
	base := DefaultOptions()
	if defaults.Concurrency == 0 {
		defaults.Concurrency = base.Concurrency
	}
	if defaults.Indent == 0 {
		defaults.Indent = base.Indent
	}
	return &Loader{defaults: defaults}
}

// Load reads and parses a listing file from the given path
func (l *Loader) Load(path string) (*Listing, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read listing file: %w", err)
	}

	listing, err := l.LoadFromBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	listing.Path = path
	return listing, nil
}

// LoadFromBytes parses a listing from raw bytes. Both the nested
// {"environments": ...} form and the flat name -> entry form are accepted.
func (l *Loader) LoadFromBytes(data []byte, ext string) (*Listing, error) {
	ext = strings.ToLower(ext)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExt, ext)
	}

	v, err := jsonfile.Parse(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	root, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidFormat)
	}

	normalized := map[string]any{optionsKey: root[optionsKey]}
	if envs, nested := root[environmentsKey]; nested {
		normalized[environmentsKey] = envs
	} else {
		flat := make(map[string]any, len(root))
		for k, entry := range root {
			if k != optionsKey {
				flat[k] = entry
			}
		}
		normalized[environmentsKey] = flat
	}
	if normalized[optionsKey] == nil {
		delete(normalized, optionsKey)
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	var listing Listing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for name, env := range listing.Environments {
		if env == nil {
			return nil, fmt.Errorf("%w: environment %s has no entry", ErrInvalidFormat, name)
		}
		env.Name = name
	}

	l.applyDefaults(&listing)

	if err := listing.Validate(); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (l *Loader) applyDefaults(listing *Listing) {
	defaults := l.defaults

	if listing.Options.Concurrency == 0 {
		listing.Options.Concurrency = defaults.Concurrency
	}
	if listing.Options.Indent == 0 {
		listing.Options.Indent = defaults.Indent
	}
}
