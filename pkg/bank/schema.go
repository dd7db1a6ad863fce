package bank

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the front-matter contract every known document type
// shares: a type, a non-empty title, and optional string tags.
const documentSchema = `{
	"type": "object",
	"required": ["type", "title"],
	"properties": {
		"type": {"type": "string"},
		"title": {"type": "string", "minLength": 1},
		"tags": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

// SchemaValidator checks front-matter metadata against a JSON Schema per
// document type.
type SchemaValidator struct {
	logger  zerolog.Logger
	schemas map[string]gojsonschema.JSONLoader
}

// NewSchemaValidator creates a validator covering every known file type.
func NewSchemaValidator(logger zerolog.Logger) *SchemaValidator {
	schemas := make(map[string]gojsonschema.JSONLoader, len(fileTypePaths))
	for t := range fileTypePaths {
		schemas[string(t)] = gojsonschema.NewStringLoader(documentSchema)
	}

	return &SchemaValidator{
		logger:  logger.With().Str("component", "schema-validator").Logger(),
		schemas: schemas,
	}
}

// Register installs or replaces the schema for a document type.
func (s *SchemaValidator) Register(fileType, schema string) {
	s.schemas[fileType] = gojsonschema.NewStringLoader(schema)
}

// Validate reports how the document's metadata relates to its type's
// schema. Types without a registered schema validate as unknown, never
// invalid.
func (s *SchemaValidator) Validate(fileType string, meta map[string]interface{}, content string) ValidationStatus {
	loader, ok := s.schemas[fileType]
	if !ok {
		return StatusUnknown
	}

	if meta == nil {
		return StatusInvalid
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return StatusInvalid
	}

	result, err := gojsonschema.Validate(loader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		s.logger.Warn().Err(err).Str("type", fileType).Msg("Schema validation error")
		return StatusUnknown
	}

	if !result.Valid() {
		return StatusInvalid
	}
	return StatusValid
}
