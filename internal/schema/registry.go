package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantmind-br/jsonbundler/internal/domain"
)

// Registry is an immutable id -> Document map. The zero value and nil are
// empty registries.
type Registry struct {
	docs map[string]*Document
}

// NewRegistry builds a registry. When two documents share an id the later one wins.
func NewRegistry(docs ...*Document) *Registry {
	r := &Registry{docs: make(map[string]*Document, len(docs))}
	for _, d := range docs {
		if d == nil || d.ID == "" {
			continue
		}
		r.docs[d.ID] = d
	}
	return r
}

// Lookup returns the document registered under id. A trailing "#" on the
// reference is ignored.
func (r *Registry) Lookup(id string) (*Document, error) {
	if r != nil {
		if d, ok := r.docs[id]; ok {
			return d, nil
		}
		if d, ok := r.docs[strings.TrimSuffix(id, "#")]; ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrSchemaNotFound, id)
}

// Documents returns all documents ordered by id
func (r *Registry) Documents() []*Document {
	if r == nil {
		return nil
	}
	out := make([]*Document, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered documents
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.docs)
}
