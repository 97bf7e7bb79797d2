package openai

import (
	"testing"
)

func TestParseDocumentFieldsStrict(t *testing.T) {
	raw := `{"numero_documento":"1234567890","fecha_emision":"2025-02-01","fecha_vencimiento":null,"confianza":0.92}`
	fields, err := ParseDocumentFields(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.DocumentNumber == nil || *fields.DocumentNumber != "1234567890" {
		t.Fatalf("unexpected number: %v", fields.DocumentNumber)
	}
	issue, expiry := fields.Dates()
	if issue == nil || issue.String() != "2025-02-01" || expiry != nil {
		t.Fatalf("unexpected dates %v %v", issue, expiry)
	}
	if fields.ConfidencePercent() != 92 {
		t.Fatalf("unexpected confidence: %v", fields.ConfidencePercent())
	}
}

func TestParseDocumentFieldsRejectsExtraKeys(t *testing.T) {
	raw := `{"numero_documento":null,"fecha_emision":null,"fecha_vencimiento":null,"confianza":0.4,"nombre":"x"}`
	if _, err := ParseDocumentFields(raw); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestParseDocumentFieldsRejectsSchemaViolations(t *testing.T) {
	for _, raw := range []string{
		`{"numero_documento":"1","fecha_emision":null,"fecha_vencimiento":null,"confianza":0.4}`,
		`{"numero_documento":null,"fecha_emision":"01/02/2025","fecha_vencimiento":null,"confianza":0.4}`,
		`{"numero_documento":null,"fecha_emision":null,"fecha_vencimiento":null,"confianza":1.5}`,
		`{"numero_documento":null,"fecha_emision":null,"confianza":0.4}`,
		`not json`,
		``,
	} {
		if _, err := ParseDocumentFields(raw); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestDatesDropsImpossibleDays(t *testing.T) {
	bad := "2025-02-30"
	fields := DocumentFields{ExpiryDate: &bad}
	_, expiry := fields.Dates()
	if expiry != nil {
		t.Fatalf("expected nil expiry, got %v", expiry)
	}
}
