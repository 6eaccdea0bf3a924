package definition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/validator/openapi"
)

// ErrInvalidDefinition wraps every structural problem in a definition file.
var ErrInvalidDefinition = errors.New("definition: invalid definition")

type documentFile struct {
	FormID               string          `json:"formID" yaml:"formID"`
	Title                string          `json:"title" yaml:"title"`
	PreventSubmitOnEnter bool            `json:"preventSubmitOnEnter" yaml:"preventSubmitOnEnter"`
	InitialValues        map[string]any  `json:"initialValues" yaml:"initialValues"`
	Schema               any             `json:"schema" yaml:"schema"`
	OpenAPI              *operationRef   `json:"openapi" yaml:"openapi"`
	Fields               map[string]Hint `json:"fields" yaml:"fields"`
}

// operationRef points at the request body of an operation in an OpenAPI
// document. A relative document path is resolved against the definition.
type operationRef struct {
	Document  string `json:"document" yaml:"document"`
	Operation string `json:"operation" yaml:"operation"`
}

// LoadFile reads and parses the definition at filename.
func LoadFile(filename string) (*Definition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", filename, err)
	}
	return Parse(data, filename)
}

// Parse decodes a JSON or YAML definition. source only labels errors. A
// missing formID is replaced by a generated UUIDv7.
func Parse(data []byte, source string) (*Definition, error) {
	doc, err := parseDocument(data, source)
	if err != nil {
		return nil, err
	}

	def := &Definition{
		FormID:               strings.TrimSpace(doc.FormID),
		Title:                doc.Title,
		PreventSubmitOnEnter: doc.PreventSubmitOnEnter,
		InitialValues:        path.CloneTree(doc.InitialValues),
		Hints:                make(map[string]Hint, len(doc.Fields)),
		Source:               source,
	}
	if def.FormID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("definition: generate form id: %w", err)
		}
		def.FormID = id.String()
	}

	switch {
	case doc.Schema != nil && doc.OpenAPI != nil:
		return nil, fmt.Errorf("%w: %s: schema and openapi are mutually exclusive", ErrInvalidDefinition, source)
	case doc.Schema != nil:
		schema, err := openapi.FromValue(doc.Schema)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, source, err)
		}
		def.Schema = schema
	case doc.OpenAPI != nil:
		schema, err := loadOperationSchema(*doc.OpenAPI, source)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, source, err)
		}
		def.Schema = schema
	}

	for key, hint := range doc.Fields {
		normalised := NormalizeHintKey(key)
		if normalised == "" {
			return nil, fmt.Errorf("%w: %s: field key %q normalises to empty path", ErrInvalidDefinition, source, key)
		}
		if _, exists := def.Hints[normalised]; exists {
			return nil, fmt.Errorf("%w: %s: duplicate field hint %q", ErrInvalidDefinition, source, normalised)
		}
		switch hint.Type {
		case "", field.TypeString, field.TypeNumber, field.TypeBoolean:
		default:
			return nil, fmt.Errorf("%w: %s: field %q has unknown type %q", ErrInvalidDefinition, source, key, hint.Type)
		}
		def.Hints[normalised] = hint
	}

	return def, nil
}

func loadOperationSchema(ref operationRef, source string) (*openapi3.Schema, error) {
	if ref.Document == "" || ref.Operation == "" {
		return nil, errors.New("openapi requires document and operation")
	}
	docPath := ref.Document
	if !filepath.IsAbs(docPath) {
		docPath = filepath.Join(filepath.Dir(source), docPath)
	}
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("read openapi document: %w", err)
	}
	return openapi.FromDocument(context.Background(), data, ref.Operation)
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(bytes.TrimSpace(data)) == 0 {
		return documentFile{}, fmt.Errorf("%w: file %s is empty", ErrInvalidDefinition, source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	return documentFile{}, fmt.Errorf("%w: parse %s: invalid JSON or YAML", ErrInvalidDefinition, source)
}
