package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"gdoc/internal/domain"
)

const ExtractionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["numero_documento", "fecha_emision", "fecha_vencimiento", "confianza"],
  "properties": {
    "numero_documento": {"type": ["string", "null"], "pattern": "^[0-9 .\\-]{5,20}$"},
    "fecha_emision": {"type": ["string", "null"], "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "fecha_vencimiento": {"type": ["string", "null"], "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "confianza": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

var extractionSchemaLoader = gojsonschema.NewStringLoader(ExtractionSchema)

// DocumentFields is what the model reads off a document.
type DocumentFields struct {
	DocumentNumber *string `json:"numero_documento"`
	IssueDate      *string `json:"fecha_emision"`
	ExpiryDate     *string `json:"fecha_vencimiento"`
	Confidence     float64 `json:"confianza"`
}

// ParseDocumentFields validates raw model output against ExtractionSchema and decodes it.
func ParseDocumentFields(raw string) (DocumentFields, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DocumentFields{}, fmt.Errorf("empty model output")
	}

	res, err := gojsonschema.Validate(extractionSchemaLoader, gojsonschema.NewStringLoader(trimmed))
	if err != nil {
		return DocumentFields{}, fmt.Errorf("invalid json: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return DocumentFields{}, fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}

	var fields DocumentFields
	if err := strictDecode([]byte(trimmed), &fields); err != nil {
		return DocumentFields{}, err
	}
	return fields, nil
}

// Dates returns the parsed dates; values that are not real calendar days are dropped.
func (f DocumentFields) Dates() (issue *domain.Date, expiry *domain.Date) {
	if f.IssueDate != nil {
		issue, _ = domain.ParseOptionalDate(*f.IssueDate)
	}
	if f.ExpiryDate != nil {
		expiry, _ = domain.ParseOptionalDate(*f.ExpiryDate)
	}
	return issue, expiry
}

// ConfidencePercent scales confianza to the 0-100 range stored on documents.
func (f DocumentFields) ConfidencePercent() float64 {
	return f.Confidence * 100
}

func strictDecode(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}
