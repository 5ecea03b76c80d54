// Package schema provides the two validation modes the pipeline relies on.
//
// Strict validation (ReasonedIntent, AppSpec) is all-or-nothing: any schema
// violation is an error, because intent is load-bearing for every downstream
// stage. Relaxed decoding (ContextBrief) accepts whatever parses and leaves
// defaulting to the caller, because research is best-effort and a partially
// malformed brief is still worth using. Collapsing the two modes would
// either make research failures fatal or let malformed intents silently
// corrupt specs; the asymmetry is deliberate.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError aggregates every violation found in one document.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Violations, "; "))
}

// Strict validates a document (any JSON-marshalable value or raw JSON bytes)
// against a draft-07 JSON schema. Returns a *ValidationError listing every
// violation, or nil when the document conforms.
func Strict(document interface{}, schemaJSON string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)

	var documentLoader gojsonschema.JSONLoader
	switch doc := document.(type) {
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(doc)
	case string:
		documentLoader = gojsonschema.NewStringLoader(doc)
	default:
		documentLoader = gojsonschema.NewGoLoader(doc)
	}

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return &ValidationError{Violations: violations}
}

// DecodeRelaxed unmarshals raw JSON into target, tolerating unknown fields
// and missing values. The caller applies field-level defaults afterwards.
func DecodeRelaxed(raw string, target interface{}) error {
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("relaxed decode failed: %w", err)
	}
	return nil
}
