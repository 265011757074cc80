package strategy

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

var narrationSchema = gojsonschema.NewStringLoader(`{
  "type": "object",
  "required": ["answer"],
  "properties": {
    "answer": {"type": "string", "minLength": 1}
  }
}`)

var synthesisSchema = gojsonschema.NewStringLoader(`{
  "type": "object",
  "required": ["answer", "confidence", "calls"],
  "properties": {
    "answer": {"type": "string", "minLength": 1},
    "confidence": {"type": "string", "enum": ["high", "medium", "low"]},
    "calls": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["call_id"],
        "properties": {
          "call_id": {"type": "string"},
          "agent_id": {"type": ["string", "null"]},
          "timestamp": {"type": ["string", "null"]},
          "issue_type": {"type": ["string", "null"]},
          "sentiment": {"type": ["string", "null"]},
          "summary": {"type": ["string", "null"]},
          "relevance": {"type": ["string", "null"]},
          "excerpt": {"type": ["string", "null"]}
        }
      }
    }
  }
}`)

var datetimeSchema = gojsonschema.NewStringLoader(`{
  "type": "object",
  "required": ["datetime"],
  "properties": {
    "datetime": {"type": "string"}
  }
}`)

// validatedJSON extracts the JSON object from an LLM response and checks it
// against schema. The returned string is ready to unmarshal.
func validatedJSON(schema gojsonschema.JSONLoader, content string) (string, error) {
	doc, err := llm.ExtractJSON(content)
	if err != nil {
		return "", err
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return "", fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return "", fmt.Errorf("response failed schema validation: %s", strings.Join(errs, "; "))
	}
	return doc, nil
}
