// Package contracts validates records against the published JSON schema
// before they reach a catalog store.
package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"feed_importer/models"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const PropertySchema = "normalized-property.v1.json"

// Validator holds the compiled schemas, keyed by file name.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded schema. A schema that fails to compile
// is an error: there is no partial validator.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	var names []string
	err := fs.WalkDir(schemaFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		data, err := schemaFS.ReadFile(path)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(path, "schemas/")
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("add schema resource %s: %w", name, err)
		}
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// MustValidator is NewValidator for package initialisation and tests.
func MustValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a record against the property schema.
func (v *Validator) Validate(p *models.NormalizedProperty) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return v.ValidateJSON(PropertySchema, body)
}

// ValidateJSON checks an encoded document against the named schema.
func (v *Validator) ValidateJSON(schemaName string, body []byte) error {
	schema, ok := v.schemas[schemaName]
	if !ok {
		return fmt.Errorf("schema %q not found", schemaName)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("body is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", summarize(err))
	}
	return nil
}

// summarize flattens a validation error tree into one line per failing field.
func summarize(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
