package tools

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// UnknownToolError marks a call to a name not in the catalogue.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// MissingParameterError marks a required argument that was not supplied.
type MissingParameterError struct {
	Tool      string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("tool %s: missing required parameter %q", e.Tool, e.Parameter)
}

// InvalidParameterError marks an argument that failed schema validation.
type InvalidParameterError struct {
	Tool   string
	Detail string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("tool %s: invalid parameter: %s", e.Tool, e.Detail)
}

// ToolExecutionError wraps a handler failure or crash. The reason is short
// enough to hand back to the model as a tool result.
type ToolExecutionError struct {
	Name   string
	Reason string
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Name, e.Reason)
}

// classifyValidation maps a jsonschema validation error to the typed error
// the model receives.
func classifyValidation(tool string, err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &InvalidParameterError{Tool: tool, Detail: err.Error()}
	}
	for _, leaf := range leafErrors(ve) {
		if strings.Contains(leaf.Message, "missing propert") {
			// "missing properties: 'birth_date'"
			name := leaf.Message
			if i := strings.Index(name, ":"); i >= 0 {
				name = strings.Trim(strings.TrimSpace(name[i+1:]), "'")
			}
			return &MissingParameterError{Tool: tool, Parameter: name}
		}
	}
	return &InvalidParameterError{Tool: tool, Detail: ve.Message}
}

func leafErrors(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		leaves = append(leaves, leafErrors(cause)...)
	}
	return leaves
}

func jsonBytesReader(raw []byte) io.Reader {
	if len(raw) == 0 {
		raw = []byte(`{"type":"object"}`)
	}
	return bytes.NewReader(raw)
}
