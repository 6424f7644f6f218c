package manifest

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/quantmind-br/jsonbundler/internal/domain"
)

// Listing is a loaded environment listing
type Listing struct {
	Environments map[string]*Environment `yaml:"environments" json:"environments"`
	Options      Options                 `yaml:"options" json:"options"`
	// Path is the file the listing was loaded from
	Path string `yaml:"-" json:"-"`
}

// Environment is one build target
type Environment struct {
	Name     string `yaml:"-" json:"-"`
	Output   string `yaml:"output" json:"output" validate:"required"`
	Target   string `yaml:"target" json:"target" validate:"required"`
	SchemaDB string `yaml:"schemaDb" json:"schemaDb" validate:"required"`
	// Schema optionally names the governing schema of the target manifest
	Schema string `yaml:"schema,omitempty" json:"schema,omitempty"`
}

// Options holds listing-wide settings. Zero values defer to the configuration.
type Options struct {
	Concurrency int `yaml:"concurrency,omitempty" json:"concurrency,omitempty" validate:"omitempty,min=1,max=64"`
	Indent      int `yaml:"indent,omitempty" json:"indent,omitempty" validate:"omitempty,min=1,max=16"`
}

// Environment returns the entry for name
func (l *Listing) Environment(name string) (*Environment, error) {
	env, ok := l.Environments[name]
	if !ok || env == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEnvironment, name)
	}
	return env, nil
}

// Names returns the environment names in lexical order
func (l *Listing) Names() []string {
	names := make([]string, 0, len(l.Environments))
	for name := range l.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the listing-wide structure. Entries are validated per build.
func (l *Listing) Validate() error {
	if len(l.Environments) == 0 {
		return ErrNoEnvironments
	}
	if err := structValidator().Struct(l.Options); err != nil {
		return fmt.Errorf("%w: options: %v", ErrInvalidFormat, err)
	}
	return nil
}

// Validate reports every missing or malformed field of the entry as one
// *domain.ValidationError targeting the environment
func (e *Environment) Validate() error {
	err := structValidator().Struct(e)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	issues := make(domain.Issues, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, domain.Issue{
			Path:    "/" + fe.Field(),
			Keyword: fe.Tag(),
			Message: issueMessage(fe),
		})
	}
	return domain.NewValidationError("environment: "+e.Name, issues)
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing property '%s'", fe.Field())
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator reports fields by their JSON names
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// DefaultOptions returns options with sensible defaults
func DefaultOptions() Options {
	return Options{
		Concurrency: 4,
		Indent:      4,
	}
}
