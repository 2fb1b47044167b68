package config

import (
	"encoding/json"
	"fmt"
	"sync"

	invopopSchema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"notelaunch/internal/domain"
)

// marshalFunc is the JSON marshaler used by generateSchema. Package-level so
// tests can inject a failing marshaler.
var marshalFunc = func(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

var (
	schemaOnce sync.Once
	schemaText string
)

// Schema returns the JSON Schema of the config document, reflected from
// domain.Config. Unknown keys are rejected.
func Schema() string {
	schemaOnce.Do(func() {
		schemaText = generateSchema(domain.Config{})
	})
	return schemaText
}

func generateSchema(v interface{}) string {
	reflector := invopopSchema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(v)

	schemaBytes, err := marshalFunc(schema)
	if err != nil {
		return ""
	}
	return string(schemaBytes)
}

// ValidateAgainstSchema validates a JSON document against a JSON Schema string.
func ValidateAgainstSchema(input json.RawMessage, schemaStr string) error {
	schema, err := jsonschema.CompileString("config.schema.json", schemaStr)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	var inputData interface{}
	if err := json.Unmarshal(input, &inputData); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}

	if err := schema.Validate(inputData); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}
