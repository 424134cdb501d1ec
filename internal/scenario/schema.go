package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "scenario.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// SchemaErrors collects every schema violation found in a document.
type SchemaErrors []error

func (se SchemaErrors) Error() string {
	if len(se) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, err := range se {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Schema returns the embedded JSON schema scenarios are checked against.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("invalid schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("invalid schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// ValidateDocument checks a YAML or JSON scenario document against the
// embedded schema. A document that is not valid YAML is reported as a parse
// error; schema violations are reported as SchemaErrors.
func ValidateDocument(data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("error parsing scenario: %w", err)
	}

	// Round-trip through JSON so the validator sees JSON value types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error parsing scenario: %w", err)
	}
	var instance interface{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("error parsing scenario: %w", err)
	}

	if err := s.Validate(instance); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return collect(verr)
		}
		return SchemaErrors{err}
	}
	return nil
}

func collect(err *jsonschema.ValidationError) SchemaErrors {
	var errs SchemaErrors

	// Leaf causes carry the useful messages.
	if len(err.Causes) == 0 && err.Message != "" {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		errs = append(errs, fmt.Errorf("%s: %s", location, err.Message))
	}
	for _, cause := range err.Causes {
		errs = append(errs, collect(cause)...)
	}
	return errs
}
