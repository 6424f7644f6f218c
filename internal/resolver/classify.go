package resolver

import (
	"github.com/quantmind-br/jsonbundler/internal/schema"
)

// Kind is the resolution category of a schema property
type Kind int

const (
	KindUnknown Kind = iota
	KindScalar
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Classify reports how a property resolves and the type tag it was derived
// from. An explicit type wins, then the type of the referenced document. It
// never fails: an unusable property is KindUnknown.
func Classify(p *schema.Property, reg *schema.Registry) (Kind, string) {
	if p == nil {
		return KindUnknown, "unknown"
	}

	tag := p.Type
	if tag == "" && p.Ref != "" {
		if doc, err := reg.Lookup(p.Ref); err == nil {
			tag = doc.Type
		}
	}
	if tag == "" && p.Inline != nil {
		tag = p.Inline.Type
	}

	switch tag {
	case "object":
		return KindObject, tag
	case "array":
		return KindArray, tag
	case "string", "integer", "number", "boolean", "null":
		return KindScalar, tag
	case "":
		return KindUnknown, "unknown"
	default:
		return KindUnknown, tag
	}
}

// propertySchema returns the document governing a property's value, nil when
// the property carries no reference or inline definition
func propertySchema(p *schema.Property, reg *schema.Registry) (*schema.Document, error) {
	if p == nil {
		return nil, nil
	}
	if p.Ref != "" {
		return reg.Lookup(p.Ref)
	}
	return p.Inline, nil
}
