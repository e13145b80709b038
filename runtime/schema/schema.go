package schema

import (
	_ "embed"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed request.json
var requestSchema []byte

type Schema struct {
	schema *gojsonschema.Schema
}

// NewRequestSchema compiles the embedded request body schema.
func NewRequestSchema() (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(requestSchema))
	if err != nil {
		return nil, err
	}

	return &Schema{schema: s}, nil
}

// Validate validates a JSON document against the schema.
func (s *Schema) Validate(data []byte) (*gojsonschema.Result, error) {
	return s.schema.Validate(gojsonschema.NewBytesLoader(data))
}
