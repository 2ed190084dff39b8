package session

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// snapshotSchema is the shape contract for direct-scoring input. It is
// deliberately permissive: every field is optional so that missing keys
// stay a silent data-quality concern, but a present field with the wrong
// shape is structural damage and gets rejected at the boundary.
const snapshotSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"timestamp": {"type": "number"},
		"rotations": {
			"type": "object",
			"additionalProperties": {
				"type": "array",
				"items": {"type": "number"},
				"minItems": 4,
				"maxItems": 4
			}
		},
		"trajectories": {
			"type": "object",
			"additionalProperties": {
				"type": "array",
				"items": {
					"type": "array",
					"items": {"type": "number"},
					"minItems": 3,
					"maxItems": 3
				}
			}
		},
		"rhythm_signal": {"type": "array", "items": {"type": "number"}},
		"reset": {"type": "boolean"},
		"command": {"type": "string"}
	}
}`

var compiledSnapshotSchema = jsonschema.MustCompileString("snapshot.json", snapshotSchema)

// validateSnapshotJSON checks raw bytes against the snapshot shape
// contract before they are trusted by the scoring pipeline.
func validateSnapshotJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	if err := compiledSnapshotSchema.Validate(doc); err != nil {
		return fmt.Errorf("snapshot shape: %w", err)
	}
	return nil
}
