package services

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Request schema names, one per schemas/<name>.json file.
const (
	SchemaRegister                = "register"
	SchemaLogin                   = "login"
	SchemaCreateWorker            = "create_worker"
	SchemaUpdateWorker            = "update_worker"
	SchemaWithdrawal              = "withdrawal"
	SchemaCreateJob               = "create_job"
	SchemaUpdateJob               = "update_job"
	SchemaCreateApplication       = "create_application"
	SchemaUpdateApplicationStatus = "update_application_status"
	SchemaProcessPayment          = "process_payment"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrValidation can be used with errors.Is to detect request bodies rejected by a schema.
var ErrValidation = errors.New("validation failed")

// Validator checks request bodies against the embedded JSON schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded schema.
func NewValidator() (*Validator, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		id := "https://shramsetu.dev/schemas/" + name
		schemas[name], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Has reports whether a schema with this name was loaded.
func (v *Validator) Has(name string) bool {
	_, ok := v.schemas[name]
	return ok
}

// Validate rejects body if it is not JSON or does not match the named schema.
func (v *Validator) Validate(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
