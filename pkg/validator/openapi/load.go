package openapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrEmptySchema is returned by Load for an empty payload.
var ErrEmptySchema = errors.New("openapi: schema payload is empty")

// Load parses a standalone JSON schema in JSON or YAML form. JSON is tried
// first; YAML documents are converted to JSON before decoding.
func Load(data []byte) (*openapi3.Schema, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil, ErrEmptySchema
	}
	if raw[0] != '{' {
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("openapi: decode yaml schema: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("openapi: convert yaml schema: %w", err)
		}
		raw = converted
	}
	return FromJSON(raw)
}

// FromJSON decodes and validates a JSON schema document.
func FromJSON(raw []byte) (*openapi3.Schema, error) {
	schema := openapi3.NewSchema()
	if err := schema.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("openapi: decode schema: %w", err)
	}
	if err := schema.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("openapi: invalid schema: %w", err)
	}
	return schema, nil
}

// FromValue builds a schema from an already decoded document, such as the
// schema block of a form definition file.
func FromValue(doc any) (*openapi3.Schema, error) {
	if doc == nil {
		return nil, ErrEmptySchema
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi: encode schema: %w", err)
	}
	return FromJSON(raw)
}
