// Package schema holds the schema registry: JSON Schema documents keyed by id,
// parsed just enough to drive manifest resolution.
package schema

import (
	"fmt"

	"github.com/quantmind-br/jsonbundler/internal/domain"
)

// Document is a parsed schema document. Raw keeps the original JSON value for
// validation.
type Document struct {
	ID         string
	Type       string
	Properties map[string]*Property
	Required   []string
	Raw        map[string]any
}

// Property is a schema property definition reduced to what resolution needs
type Property struct {
	// Type is the explicit type tag; the first entry when declared as a list
	Type string
	// Ref is $ref, or the $ref of the first oneOf/anyOf/allOf alternative
	Ref string
	// Items is the array item definition
	Items *Property
	// Inline is set when the property declares its own properties
	Inline *Document
	Raw    map[string]any
}

// Property returns the definition of a property, nil when absent
func (d *Document) Property(name string) *Property {
	if d == nil {
		return nil
	}
	return d.Properties[name]
}

// Name is the id, or "<inline>" for anonymous schemas
func (d *Document) Name() string {
	if d.ID == "" {
		return "<inline>"
	}
	return d.ID
}

// Parse builds a Document from a decoded schema object. An id is optional
// here; the registry loader requires one.
func Parse(raw map[string]any) (*Document, error) {
	doc := &Document{
		ID:         idOf(raw),
		Type:       typeOf(raw["type"]),
		Properties: map[string]*Property{},
		Raw:        raw,
	}

	if props, ok := raw["properties"]; ok {
		m, ok := props.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: properties of %s must be an object", domain.ErrInvalidSchema, doc.Name())
		}
		for name, def := range m {
			pm, ok := def.(map[string]any)
			if !ok {
				// boolean schemas carry no resolution hints
				doc.Properties[name] = &Property{}
				continue
			}
			p, err := parseProperty(pm)
			if err != nil {
				return nil, fmt.Errorf("property '%s' of %s: %w", name, doc.Name(), err)
			}
			doc.Properties[name] = p
		}
	}

	if req, ok := raw["required"]; ok {
		list, ok := req.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: required of %s must be an array", domain.ErrInvalidSchema, doc.Name())
		}
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: required of %s must hold strings", domain.ErrInvalidSchema, doc.Name())
			}
			doc.Required = append(doc.Required, s)
		}
	}

	return doc, nil
}

func parseProperty(raw map[string]any) (*Property, error) {
	p := &Property{
		Type: typeOf(raw["type"]),
		Raw:  raw,
	}
	if ref, ok := raw["$ref"].(string); ok {
		p.Ref = ref
	}

	if p.Ref == "" && p.Type == "" {
		for _, key := range []string{"oneOf", "anyOf", "allOf"} {
			alts, ok := raw[key].([]any)
			if !ok || len(alts) == 0 {
				continue
			}
			first, ok := alts[0].(map[string]any)
			if !ok {
				break
			}
			alt, err := parseProperty(first)
			if err != nil {
				return nil, err
			}
			p.Type, p.Ref, p.Items, p.Inline = alt.Type, alt.Ref, alt.Items, alt.Inline
			break
		}
	}

	switch items := raw["items"].(type) {
	case map[string]any:
		it, err := parseProperty(items)
		if err != nil {
			return nil, err
		}
		p.Items = it
	case []any:
		if len(items) > 0 {
			if first, ok := items[0].(map[string]any); ok {
				it, err := parseProperty(first)
				if err != nil {
					return nil, err
				}
				p.Items = it
			}
		}
	}

	if _, ok := raw["properties"]; ok {
		inline, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		if inline.Type == "" {
			inline.Type = "object"
		}
		p.Inline = inline
	}

	return p, nil
}

func idOf(raw map[string]any) string {
	if id, ok := raw["$id"].(string); ok && id != "" {
		return id
	}
	if id, ok := raw["id"].(string); ok {
		return id
	}
	return ""
}

func typeOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				return s
			}
		}
	}
	return ""
}
