package tooling

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"bugx/internal/llm"
	"bugx/internal/sandbox"
)

var reflector = jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
}

// definition builds a function tool whose parameters are reflected from the
// argument struct. Fields without omitempty are required.
func definition(name, description string, args any) llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  parameters(args),
		},
	}
}

func parameters(args any) map[string]any {
	schema := reflector.Reflect(args)
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("tool schema for %T: %v", args, err))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("tool schema for %T: %v", args, err))
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// decodeArgs copies loosely typed model arguments into dst.
func decodeArgs(args map[string]any, dst any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return sandbox.Wrap(sandbox.KindInvalidArgument, "", err, "invalid arguments")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return sandbox.Wrap(sandbox.KindInvalidArgument, "", err, "invalid arguments")
	}
	return nil
}
