package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tailscale/hujson"
	"github.com/xeipuuv/gojsonschema"
)

// documentSchema accepts either {"notification":{"categories":[...]}} or a bare {"categories":[...]}.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "subCategory": {
      "type": "object",
      "required": ["code"],
      "properties": {
        "code": {"type": "string", "minLength": 1},
        "name": {"type": "string"}
      }
    },
    "category": {
      "type": "object",
      "required": ["code"],
      "properties": {
        "code": {"type": "string", "minLength": 1},
        "name": {"type": "string"},
        "subCategories": {"type": "array", "items": {"$ref": "#/definitions/subCategory"}}
      }
    },
    "categories": {"type": "array", "items": {"$ref": "#/definitions/category"}}
  },
  "type": "object",
  "properties": {
    "notification": {
      "type": "object",
      "properties": {"categories": {"$ref": "#/definitions/categories"}}
    },
    "categories": {"$ref": "#/definitions/categories"}
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

type document struct {
	Notification *struct {
		Categories []CategoryDefinition `json:"categories"`
	} `json:"notification"`
	Categories []CategoryDefinition `json:"categories"`
}

// ReadFile loads and parses a catalog document from disk.
func ReadFile(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("catalog: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Comments and trailing commas are accepted.
func Parse(data []byte) (*Catalog, error) {
	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	if err := validateDocument(standard); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(standard, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	categories := doc.Categories
	if doc.Notification != nil && len(doc.Notification.Categories) > 0 {
		categories = doc.Notification.Categories
	}
	return Build(categories)
}

func validateDocument(data []byte) error {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	})
	if schemaErr != nil {
		return fmt.Errorf("catalog: compile schema: %w", schemaErr)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("catalog: validate: %w", err)
	}
	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return fmt.Errorf("catalog: invalid document: %s", strings.Join(messages, "; "))
}
