package resolver

import (
	"fmt"

	"github.com/quantmind-br/jsonbundler/internal/domain"
)

// ManifestKind discriminates the accepted manifest shapes
type ManifestKind int

const (
	// ManifestPlain is an object whose keys are the schema's fields
	ManifestPlain ManifestKind = iota
	// ManifestDirective pairs a schema with inline data and/or field sources
	ManifestDirective
)

func (k ManifestKind) String() string {
	if k == ManifestDirective {
		return "directive"
	}
	return "plain"
}

// Directive keys. The $-suffixed forms are accepted aliases.
var (
	schemaKeys  = []string{"schema", "schema$"}
	dataKeys    = []string{"data", "data$"}
	sourcesKeys = []string{"dataSources", "datafile$"}
)

// Manifest is a normalized manifest node
type Manifest struct {
	Kind ManifestKind
	// Ref is the file the manifest was read from, "" for inline manifests
	Ref string
	// Schema is the manifest's own schema reference: a path, an id or an object
	Schema any
	// Data is the inline field data of a directive
	Data map[string]any
	// Sources maps field names to source references; nil when absent
	Sources map[string]any
	// Fields is the plain manifest object
	Fields map[string]any
}

// ParseManifest classifies a decoded manifest object
func ParseManifest(v map[string]any, ref string) (*Manifest, error) {
	m := &Manifest{Ref: ref, Schema: lookup(v, schemaKeys)}

	data, hasData := lookupOK(v, dataKeys)
	sources, hasSources := lookupOK(v, sourcesKeys)
	if !hasData && !hasSources {
		m.Kind = ManifestPlain
		m.Fields = v
		return m, nil
	}

	m.Kind = ManifestDirective
	if hasData {
		d, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: data of %s must be an object", domain.ErrInvalidManifest, refName(ref))
		}
		m.Data = d
	}
	if hasSources {
		s, ok := sources.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: dataSources of %s must be an object", domain.ErrInvalidManifest, refName(ref))
		}
		m.Sources = s
	}
	return m, nil
}

func lookup(v map[string]any, keys []string) any {
	val, _ := lookupOK(v, keys)
	return val
}

func lookupOK(v map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if val, ok := v[k]; ok {
			return val, true
		}
	}
	return nil, false
}

func refName(ref string) string {
	if ref == "" {
		return "<inline>"
	}
	return ref
}
