// Package validator checks resolved documents against registry schemas.
package validator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/schema"
)

// BaseURL prefixes registry ids that are not absolute URLs
const BaseURL = "mem://registry/"

// DefaultDraft is used when Options.Draft is empty
const DefaultDraft = "7"

// Options configures a Validator
type Options struct {
	// Draft is one of 4, 6, 7, 2019-09 or 2020-12
	Draft string
}

// Validator validates data against schema documents. Every registry document
// is registered up front so $ref by id resolves.
type Validator struct {
	mu       sync.Mutex
	compiler *jsonschema.Compiler
	registry *schema.Registry
	compiled map[*schema.Document]*jsonschema.Schema
	inline   int
}

// New creates a Validator backed by reg, which may be empty
func New(reg *schema.Registry, opts Options) (*Validator, error) {
	draft, err := DraftByName(opts.Draft)
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.Draft = draft
	c.LoadURL = func(s string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSchemaNotFound, strings.TrimPrefix(s, BaseURL))
	}

	for _, doc := range reg.Documents() {
		if err := addResource(c, resourceURL(doc.ID), doc); err != nil {
			return nil, err
		}
	}

	return &Validator{
		compiler: c,
		registry: reg,
		compiled: make(map[*schema.Document]*jsonschema.Schema),
	}, nil
}

// DraftByName maps a draft name to its jsonschema draft
func DraftByName(name string) (*jsonschema.Draft, error) {
	switch strings.TrimPrefix(strings.ToLower(name), "draft") {
	case "":
		return DraftByName(DefaultDraft)
	case "4", "-04", "04":
		return jsonschema.Draft4, nil
	case "6", "-06", "06":
		return jsonschema.Draft6, nil
	case "7", "-07", "07":
		return jsonschema.Draft7, nil
	case "2019-09", "2019":
		return jsonschema.Draft2019, nil
	case "2020-12", "2020":
		return jsonschema.Draft2020, nil
	}
	return nil, fmt.Errorf("unknown schema draft %q", name)
}

// Validate returns every leaf violation of data against doc, ordered by
// instance path. The error is reserved for schemas that cannot be compiled.
func (v *Validator) Validate(data any, doc *schema.Document) (domain.Issues, error) {
	if doc == nil {
		return nil, domain.ErrNoSchema
	}
	sch, err := v.compile(doc)
	if err != nil {
		return nil, err
	}

	err = sch.Validate(data)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, fmt.Errorf("validate against %s: %w", doc.Name(), err)
	}

	var issues domain.Issues
	collectLeaves(verr, &issues)
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues, nil
}

func (v *Validator) compile(doc *schema.Document) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.compiled[doc]; ok {
		return sch, nil
	}

	var url string
	if registered, err := v.registry.Lookup(doc.ID); err == nil && registered == doc {
		url = resourceURL(doc.ID)
	} else {
		v.inline++
		url = fmt.Sprintf("%sinline-%d", BaseURL, v.inline)
		if err := addResource(v.compiler, url, doc); err != nil {
			return nil, err
		}
	}

	sch, err := v.compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidSchema, doc.Name(), err)
	}
	v.compiled[doc] = sch
	return sch, nil
}

func addResource(c *jsonschema.Compiler, url string, doc *schema.Document) error {
	raw, err := json.Marshal(doc.Raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidSchema, doc.Name(), err)
	}
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidSchema, doc.Name(), err)
	}
	return nil
}

// resourceURL maps a registry id such as "/product" onto the in-memory base
func resourceURL(id string) string {
	if strings.Contains(id, "://") {
		return id
	}
	return BaseURL + strings.TrimPrefix(id, "/")
}

func collectLeaves(e *jsonschema.ValidationError, out *domain.Issues) {
	if len(e.Causes) == 0 {
		*out = append(*out, domain.Issue{
			Path:    e.InstanceLocation,
			Keyword: e.KeywordLocation,
			Message: e.Message,
		})
		return
	}
	for _, c := range e.Causes {
		collectLeaves(c, out)
	}
}
