package tutorapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed voice_response.schema.json
var voiceResponseSchema string

const voiceResponseSchemaURL = "https://lingua.schemas.local/tutor/voice_response.schema.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func responseSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(voiceResponseSchemaURL, bytes.NewReader([]byte(voiceResponseSchema))); err != nil {
			compileErr = fmt.Errorf("load voice response schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(voiceResponseSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile voice response schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// decodeVoiceResponse validates body against the response schema before
// decoding it into the typed shape.
func decodeVoiceResponse(body []byte) (voiceResponse, error) {
	schema, err := responseSchema()
	if err != nil {
		return voiceResponse{}, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return voiceResponse{}, fmt.Errorf("decode response json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return voiceResponse{}, fmt.Errorf("response schema validation failed: %w", err)
	}

	var resp voiceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return voiceResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
