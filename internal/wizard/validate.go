package wizard

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names accepted by Validator.Validate.
const (
	SchemaRegister        = "register"
	SchemaPersonalDetails = "personal_details"
	SchemaDeclaration     = "declaration"
)

// ValidationError carries per-field messages for re-prompting the student.
// Nothing is persisted when validation fails.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Issues, "; ")
}

// Validator holds the compiled step-payload schemas.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	v := &Validator{schemas: map[string]*gojsonschema.Schema{}}
	for _, name := range []string{SchemaRegister, SchemaPersonalDetails, SchemaDeclaration} {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", name, err)
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compiling schema %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// Validate checks a raw JSON payload against the named schema.
func (v *Validator) Validate(name string, payload []byte) error {
	s, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return &ValidationError{Issues: []string{"request body must be valid JSON"}}
	}
	if result.Valid() {
		return nil
	}
	var issues []string
	for _, re := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
	}
	return &ValidationError{Issues: issues}
}
