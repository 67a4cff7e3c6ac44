package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tillerworks/tiller/pkg/contracts"
)

// manifestSchema is the structural contract a parsed manifest must meet.
// The field-level parser already rejects most of this; the schema is the
// declarative statement of record, checked last.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["mode", "altitude", "references"],
  "properties": {
    "mode": {"enum": ["Explore", "Commit"]},
    "altitude": {"enum": ["L3", "L4", "Unclear"]},
    "references": {
      "type": "object",
      "properties": {
        "goal": {"type": "string"},
        "non_goals": {"type": "string"},
        "acceptance": {"type": "string"},
        "work_item": {"type": "string"}
      }
    },
    "stop_conditions": {
      "type": "array",
      "items": {"type": "string"}
    },
    "version": {"type": "string"}
  }
}`

var compiledSchema = mustCompile()

func mustCompile() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "https://tiller.schemas.local/commit-manifest.schema.json"
	if err := c.AddResource(url, strings.NewReader(manifestSchema)); err != nil {
		panic(fmt.Sprintf("manifest: schema load failed: %v", err))
	}
	schema, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("manifest: schema compile failed: %v", err))
	}
	return schema
}

// validateSchema cross-checks a parsed manifest against the JSON Schema.
func validateSchema(m contracts.CommitManifest) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: marshal for schema check: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("manifest: decode for schema check: %w", err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("manifest: schema violation: %w", err)
	}
	return nil
}
