package resolver

import (
	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/schema"
	"github.com/quantmind-br/jsonbundler/internal/utils"
)

// Validator validates data against a schema document
type Validator interface {
	Validate(data any, doc *schema.Document) (domain.Issues, error)
}

// Assembler validates resolved data and projects it onto the schema's
// required fields
type Assembler struct {
	validator Validator
	logger    *utils.Logger
}

// NewAssembler creates a new Assembler
func NewAssembler(v Validator, logger *utils.Logger) *Assembler {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Assembler{validator: v, logger: logger}
}

// Assemble logs every violation and fails with one *domain.ValidationError
// naming the schema. On success the result holds exactly the required keys.
func (a *Assembler) Assemble(data map[string]any, doc *schema.Document) (map[string]any, error) {
	issues, err := a.validator.Validate(data, doc)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		a.logger.LogIssues(doc.Name(), issues)
		return nil, domain.NewValidationError(doc.Name(), issues)
	}

	out := make(map[string]any, len(doc.Required))
	for _, key := range doc.Required {
		if v, ok := data[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}
