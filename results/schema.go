package results

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const runDetailSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["index", "your_answer", "correct"],
    "properties": {
      "index":          {"type": "integer", "minimum": 1},
      "your_answer":    {"type": ["string", "null"]},
      "correct":        {"type": "string", "enum": ["A", "B", "C", "D"]},
      "stem":           {"type": "string"},
      "A":              {"type": "string"},
      "B":              {"type": "string"},
      "C":              {"type": "string"},
      "D":              {"type": "string"},
      "indicator_id":   {"type": "string"},
      "indicator_name": {"type": "string"},
      "phase":          {"type": "string"},
      "error_cats":     {"type": ["array", "null"], "items": {"type": "string"}},
      "explain":        {"type": "object"}
    }
  }
}`

var runDetailSchema = mustSchema(runDetailSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("results: invalid run detail schema: %v", err))
	}
	return s
}

// ValidateRunDetail checks raw run-detail JSON against the run detail schema.
func ValidateRunDetail(data []byte) error {
	res, err := runDetailSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("run detail is not valid JSON: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("run detail does not match schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}
