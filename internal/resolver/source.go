package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quantmind-br/jsonbundler/internal/domain"
)

// SentinelPrefix marks a path relative to the directory of the referencing file
const SentinelPrefix = "filepath$"

// Structured source reference keys
const (
	filesKey    = "files$"
	overrideKey = "override$"
)

// SourceRef describes where a field's value comes from: files read in order
// and shallow-merged, then Override merged on top
type SourceRef struct {
	Files    []string
	Override map[string]any
}

// IsSourceRef reports whether v is a bare path or a structured reference
func IsSourceRef(v any) bool {
	switch t := v.(type) {
	case string:
		return true
	case map[string]any:
		return isStructured(t)
	}
	return false
}

func isStructured(m map[string]any) bool {
	_, ok := m[filesKey]
	return ok
}

// ParseSource accepts a path, a list of paths or a {"files$", "override$"} object
func ParseSource(v any) (*SourceRef, error) {
	switch t := v.(type) {
	case string:
		return &SourceRef{Files: []string{t}}, nil
	case []any:
		files, err := pathList(t)
		if err != nil {
			return nil, err
		}
		return &SourceRef{Files: files}, nil
	case map[string]any:
		if !isStructured(t) {
			return nil, fmt.Errorf("%w: object without %s", domain.ErrInvalidSource, filesKey)
		}
		src := &SourceRef{}
		switch f := t[filesKey].(type) {
		case string:
			src.Files = []string{f}
		case []any:
			files, err := pathList(f)
			if err != nil {
				return nil, err
			}
			src.Files = files
		default:
			return nil, fmt.Errorf("%w: %s must be a path or a list of paths", domain.ErrInvalidSource, filesKey)
		}
		if o, ok := t[overrideKey]; ok {
			om, ok := o.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be an object", domain.ErrInvalidSource, overrideKey)
			}
			src.Override = om
		}
		return src, nil
	}
	return nil, fmt.Errorf("%w: unexpected %T", domain.ErrInvalidSource, v)
}

func pathList(items []any) ([]string, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty path list", domain.ErrInvalidSource)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: path list holds %T", domain.ErrInvalidSource, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// RewriteSentinel resolves a filepath$ path against the directory of
// parentRef, or the working directory when there is no parent
func RewriteSentinel(path, parentRef string) string {
	rest, ok := strings.CutPrefix(path, SentinelPrefix)
	if !ok {
		return path
	}
	dir := "."
	if parentRef != "" {
		dir = filepath.Dir(parentRef)
	}
	return filepath.Join(dir, rest)
}

// Fetch reads a field's sources in order. A single file without override is
// returned verbatim; otherwise every document must be an object and is
// shallow-merged onto the previous ones. The returned reference is the last
// file read.
func Fetch(ctx context.Context, reader domain.FileReader, field string, src *SourceRef, parentRef string) (any, string, error) {
	if src == nil || len(src.Files) == 0 {
		return nil, "", fmt.Errorf("%w: field '%s' has no files", domain.ErrInvalidSource, field)
	}

	if len(src.Files) == 1 && src.Override == nil {
		path := RewriteSentinel(src.Files[0], parentRef)
		v, err := reader.Read(ctx, path)
		if err != nil {
			return nil, "", fmt.Errorf("field '%s': %w", field, err)
		}
		return v, path, nil
	}

	acc := map[string]any{}
	var last string
	for _, f := range src.Files {
		path := RewriteSentinel(f, parentRef)
		v, err := reader.Read(ctx, path)
		if err != nil {
			return nil, "", fmt.Errorf("field '%s': %w", field, err)
		}
		doc, ok := v.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("%w: field '%s': %s holds %s, only objects can be merged",
				domain.ErrInvalidSource, field, path, jsonType(v))
		}
		for k, val := range doc {
			acc[k] = val
		}
		last = path
	}
	for k, val := range src.Override {
		acc[k] = val
	}
	return acc, last, nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
