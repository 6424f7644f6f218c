// Package resolver turns manifests into schema-valid documents. A manifest is
// a file path, a plain object whose fields may reference files, or a directive
// pairing a schema with inline data and per-field sources.
package resolver

import (
	"context"
	"fmt"
	"maps"

	"golang.org/x/sync/errgroup"

	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/jsonfile"
	"github.com/quantmind-br/jsonbundler/internal/schema"
	"github.com/quantmind-br/jsonbundler/internal/utils"
	"github.com/quantmind-br/jsonbundler/internal/validator"
)

// Options configures an Engine
type Options struct {
	Registry  *schema.Registry
	Reader    domain.FileReader
	Validator Validator
	Logger    *utils.Logger
}

// Engine resolves manifests against a schema registry
type Engine struct {
	registry  *schema.Registry
	reader    domain.FileReader
	assembler *Assembler
	logger    *utils.Logger
}

// NewEngine creates an Engine. The registry is required; the reader and
// validator default to the jsonfile reader and a draft 7 validator.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, domain.ErrNoRegistry
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	reader := opts.Reader
	if reader == nil {
		reader = jsonfile.NewReader(logger)
	}
	v := opts.Validator
	if v == nil {
		def, err := validator.New(opts.Registry, validator.Options{})
		if err != nil {
			return nil, err
		}
		v = def
	}

	return &Engine{
		registry:  opts.Registry,
		reader:    reader,
		assembler: NewAssembler(v, logger.WithComponent("assembler")),
		logger:    logger.WithComponent("resolver"),
	}, nil
}

// Resolve materializes manifest into a validated document holding exactly the
// governing schema's required fields. schemaRef may be nil, a registry id, a
// schema file path, an inline schema object or a *schema.Document.
func (e *Engine) Resolve(ctx context.Context, manifest any, schemaRef any) (map[string]any, error) {
	return e.resolve(ctx, manifest, "", schemaRef)
}

func (e *Engine) resolve(ctx context.Context, manifest any, parentRef string, schemaRef any) (map[string]any, error) {
	node, err := e.prepare(ctx, manifest, parentRef, schemaRef)
	if err != nil {
		return nil, err
	}
	working, err := node.resolveAll(ctx)
	if err != nil {
		return nil, err
	}
	return node.Assemble(working)
}

// Node is a prepared manifest: read, classified and checked against its schema
type Node struct {
	engine   *Engine
	Manifest *Manifest
	Schema   *schema.Document
}

// Prepare normalizes a manifest and its schema without resolving any field.
// Schema shape and field directives are checked here, before any field I/O.
func (e *Engine) Prepare(ctx context.Context, manifest any, schemaRef any) (*Node, error) {
	return e.prepare(ctx, manifest, "", schemaRef)
}

func (e *Engine) prepare(ctx context.Context, manifest any, parentRef string, schemaRef any) (*Node, error) {
	ref := parentRef
	if path, ok := manifest.(string); ok {
		ref = RewriteSentinel(path, parentRef)
		v, err := e.reader.Read(ctx, ref)
		if err != nil {
			return nil, err
		}
		manifest = v
	}

	obj, ok := manifest.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %s, expected an object", domain.ErrInvalidManifest, refName(ref), jsonType(manifest))
	}
	m, err := ParseManifest(obj, ref)
	if err != nil {
		return nil, err
	}

	// a directive's own schema wins; a plain manifest follows the caller
	chosen := schemaRef
	if (m.Kind == ManifestDirective && m.Schema != nil) || chosen == nil {
		chosen = m.Schema
	}
	doc, err := e.loadSchema(ctx, chosen, ref)
	if err != nil {
		return nil, err
	}

	for _, field := range doc.Required {
		if doc.Property(field) == nil {
			return nil, &domain.SchemaShapeError{Property: field, SchemaID: doc.Name()}
		}
	}
	if m.Kind == ManifestDirective && m.Sources != nil {
		for _, field := range doc.Required {
			_, inline := m.Data[field]
			_, sourced := m.Sources[field]
			if !inline && !sourced {
				return nil, &domain.FieldDirectiveError{Field: field, Ref: refName(ref)}
			}
		}
	}

	e.logger.Debug().
		Str("ref", refName(ref)).
		Str("schema", doc.Name()).
		Stringer("kind", m.Kind).
		Msg("Manifest prepared")

	return &Node{engine: e, Manifest: m, Schema: doc}, nil
}

func (e *Engine) loadSchema(ctx context.Context, ref any, currentRef string) (*schema.Document, error) {
	switch s := ref.(type) {
	case nil:
		return nil, fmt.Errorf("%w for %s", domain.ErrNoSchema, refName(currentRef))
	case *schema.Document:
		return s, nil
	case string:
		if doc, err := e.registry.Lookup(s); err == nil {
			return doc, nil
		}
		path := RewriteSentinel(s, currentRef)
		v, err := e.reader.Read(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("unable to read schema file %s:%s: %w", currentRef, s, err)
		}
		raw, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unable to read schema file %s:%s: %w: not an object", currentRef, s, domain.ErrInvalidSchema)
		}
		return schema.Parse(raw)
	case map[string]any:
		return schema.Parse(s)
	}
	return nil, fmt.Errorf("%w: unexpected schema reference %T", domain.ErrInvalidSchema, ref)
}

// Ref is the file the node was read from, "" for inline manifests
func (n *Node) Ref() string {
	return n.Manifest.Ref
}

// Fields lists the fields the node resolves, in schema order
func (n *Node) Fields() []string {
	return n.Schema.Required
}

// ResolveField resolves one field and returns a copy of working with the
// field set. working is never modified.
func (n *Node) ResolveField(ctx context.Context, field string, working map[string]any) (map[string]any, error) {
	if n.Schema.Property(field) == nil {
		return nil, &domain.SchemaShapeError{Property: field, SchemaID: n.Schema.Name()}
	}
	v, set, err := n.fieldValue(ctx, field)
	if err != nil {
		return nil, err
	}
	out := maps.Clone(working)
	if out == nil {
		out = map[string]any{}
	}
	if set {
		out[field] = v
	}
	return out, nil
}

// Assemble validates working against the node's schema and projects it
func (n *Node) Assemble(working map[string]any) (map[string]any, error) {
	return n.engine.assembler.Assemble(working, n.Schema)
}

// resolveAll resolves every required field concurrently. The first failure
// wins; results are merged in schema order after all fields joined.
func (n *Node) resolveAll(ctx context.Context) (map[string]any, error) {
	fields := n.Fields()
	values := make([]any, len(fields))
	set := make([]bool, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		g.Go(func() error {
			v, ok, err := n.fieldValue(gctx, field)
			if err != nil {
				return err
			}
			values[i], set[i] = v, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var working map[string]any
	if n.Manifest.Kind == ManifestPlain {
		working = maps.Clone(n.Manifest.Fields)
	} else {
		working = make(map[string]any, len(fields))
	}
	for i, field := range fields {
		if set[i] {
			working[field] = values[i]
		}
	}
	return working, nil
}

// fieldValue computes a single field. set is false when the manifest has no
// value for it.
func (n *Node) fieldValue(ctx context.Context, field string) (any, bool, error) {
	m := n.Manifest
	switch m.Kind {
	case ManifestDirective:
		if v, ok := m.Data[field]; ok {
			return v, true, nil
		}
		if m.Sources == nil {
			return nil, false, nil
		}
		src, ok := m.Sources[field]
		if !ok {
			return nil, false, &domain.FieldDirectiveError{Field: field, Ref: refName(m.Ref)}
		}
		v, err := n.resolveSourced(ctx, field, src)
		return v, err == nil, err
	default:
		v, ok := m.Fields[field]
		if !ok {
			return nil, false, nil
		}
		v, err := n.resolveReferenced(ctx, field, v)
		return v, err == nil, err
	}
}

// resolveSourced resolves a directive field from its dataSources entry
func (n *Node) resolveSourced(ctx context.Context, field string, src any) (any, error) {
	e := n.engine
	prop := n.Schema.Property(field)
	kind, tag := Classify(prop, e.registry)

	switch kind {
	case KindObject:
		sub, err := propertySchema(prop, e.registry)
		if err != nil {
			return nil, err
		}
		// an object that is not a files$ reference is an inline manifest
		if inline, ok := src.(map[string]any); ok && !isStructured(inline) {
			if sub == nil {
				return e.resolve(ctx, inline, n.Ref(), nil)
			}
			return e.resolve(ctx, inline, n.Ref(), sub)
		}
		ref, err := ParseSource(src)
		if err != nil {
			return nil, fmt.Errorf("field '%s' in %s:dataSources: %w", field, refName(n.Ref()), err)
		}
		v, effective, err := Fetch(ctx, e.reader, field, ref, n.Ref())
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return v, nil
		}
		return e.resolve(ctx, v, effective, sub)

	case KindArray:
		return n.resolveArray(ctx, field, prop, src)
	}

	return nil, &domain.UnsupportedTypeError{Type: tag, Ref: refName(n.Ref()), Field: field}
}

// resolveArray resolves every element against the item schema in parallel
// and keeps element order
func (n *Node) resolveArray(ctx context.Context, field string, prop *schema.Property, src any) (any, error) {
	e := n.engine
	itemSchema, err := propertySchema(prop.Items, e.registry)
	if err != nil {
		return nil, err
	}

	var elements []any
	base := n.Ref()
	if list, ok := src.([]any); ok {
		if itemSchema == nil {
			return nil, fmt.Errorf("%w: field '%s' in %s:dataSources lists elements but has no item schema",
				domain.ErrInvalidSource, field, n.Ref())
		}
		elements = list
	} else {
		ref, err := ParseSource(src)
		if err != nil {
			return nil, fmt.Errorf("field '%s' in %s:dataSources: %w", field, n.Ref(), err)
		}
		v, effective, err := Fetch(ctx, e.reader, field, ref, n.Ref())
		if err != nil {
			return nil, err
		}
		if itemSchema == nil {
			return v, nil
		}
		fetched, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: field '%s' expects an array, %s holds %s",
				domain.ErrInvalidSource, field, effective, jsonType(v))
		}
		elements, base = fetched, effective
	}

	out := make([]any, len(elements))
	g, gctx := errgroup.WithContext(ctx)
	for i, el := range elements {
		g.Go(func() error {
			v, err := n.resolveElement(gctx, field, el, base, itemSchema)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (n *Node) resolveElement(ctx context.Context, field string, el any, base string, itemSchema *schema.Document) (any, error) {
	e := n.engine
	switch t := el.(type) {
	case string:
		return e.resolve(ctx, t, base, itemSchema)
	case map[string]any:
		if !isStructured(t) {
			return e.resolve(ctx, t, base, itemSchema)
		}
		ref, err := ParseSource(t)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", field, err)
		}
		v, effective, err := Fetch(ctx, e.reader, field, ref, base)
		if err != nil {
			return nil, err
		}
		return e.resolve(ctx, v, effective, itemSchema)
	}
	return nil, fmt.Errorf("%w: field '%s' element holds %s", domain.ErrInvalidManifest, field, jsonType(el))
}

// resolveReferenced resolves a plain manifest field. Object and array fields
// given as a path or structured reference are fetched; fetched objects are
// resolved again for nested references.
func (n *Node) resolveReferenced(ctx context.Context, field string, v any) (any, error) {
	if !IsSourceRef(v) {
		return v, nil
	}
	e := n.engine
	prop := n.Schema.Property(field)
	kind, tag := Classify(prop, e.registry)

	switch kind {
	case KindObject, KindArray:
	case KindUnknown:
		if _, structured := v.(map[string]any); structured {
			return nil, &domain.UnsupportedTypeError{Type: tag, Ref: refName(n.Ref()), Field: field}
		}
		return v, nil
	default:
		return v, nil
	}

	ref, err := ParseSource(v)
	if err != nil {
		return nil, fmt.Errorf("field '%s' in %s: %w", field, refName(n.Ref()), err)
	}
	fetched, effective, err := Fetch(ctx, e.reader, field, ref, n.Ref())
	if err != nil {
		return nil, err
	}
	if kind == KindArray {
		return fetched, nil
	}

	sub, err := propertySchema(prop, e.registry)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return fetched, nil
	}
	return e.resolve(ctx, fetched, effective, sub)
}
