package openai

import "strings"

const EXTRACT_SYSTEM = `You read identity and supporting documents submitted to a university recruitment process.
You must output ONLY valid JSON and nothing else.
No markdown. No comments. No extra keys.
If a value is unknown, use null.
Dates must be ISO format YYYY-MM-DD.`

const EXTRACT_USER_TEMPLATE = `Extract the identifying data of the document below.
Return JSON that matches EXACTLY the schema below.

Rules:
- Output JSON only.
- Use the schema keys exactly.
- numero_documento is the identity number of the holder, digits only.
- fecha_emision is the issue date, fecha_vencimiento the expiry date.
- confianza must be a number between 0 and 1.
- If you cannot find a field, set it to null and set confianza below 0.6.

Document name: {{DOC_NAME}}

Schema (JSON Schema):
{{JSON_SCHEMA}}

Document text:
{{DOC_TEXT}}

Return JSON only.`

const REPAIR_SYSTEM = `You are a strict JSON repair engine.
You receive an output that failed parsing or schema validation.
You must return ONLY corrected JSON that matches the provided schema exactly.
No markdown. No commentary. No extra keys. No surrounding text.`

const REPAIR_USER_TEMPLATE = `The previous model output was invalid or did not match the schema.

Schema (JSON Schema):
{{JSON_SCHEMA}}

Invalid output:
{{MODEL_OUTPUT}}

Validation errors:
{{ERRORS}}

Fix the output so it matches the schema exactly.
Return JSON only.`

func RenderTemplate(tpl string, vars map[string]string) string {
	rendered := tpl
	for k, v := range vars {
		rendered = strings.ReplaceAll(rendered, "{{"+k+"}}", v)
	}
	return rendered
}

func BuildExtractUserPrompt(docName string, docText string) string {
	return RenderTemplate(EXTRACT_USER_TEMPLATE, map[string]string{
		"DOC_NAME":    docName,
		"JSON_SCHEMA": ExtractionSchema,
		"DOC_TEXT":    docText,
	})
}

func BuildRepairUserPrompt(modelOutput string, parseErr error) string {
	msg := ""
	if parseErr != nil {
		msg = parseErr.Error()
	}
	return RenderTemplate(REPAIR_USER_TEMPLATE, map[string]string{
		"JSON_SCHEMA":  ExtractionSchema,
		"MODEL_OUTPUT": modelOutput,
		"ERRORS":       msg,
	})
}
