package gemini

import (
	"github.com/google/generative-ai-go/genai"

	"bugx/internal/llm"
)

func toDeclarations(defs []llm.ToolDefinition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		out = append(out, &genai.FunctionDeclaration{
			Name:        def.Function.Name,
			Description: def.Function.Description,
			Parameters:  toSchema(def.Function.Parameters),
		})
	}
	return out
}

// toSchema converts a JSON-schema map into Gemini's schema subset. Keywords
// Gemini does not understand are dropped.
func toSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{Type: schemaType(m["type"])}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok && len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				s.Properties[name] = toSchema(sub)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}
	switch req := m["required"].(type) {
	case []string:
		s.Required = append([]string(nil), req...)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	switch enum := m["enum"].(type) {
	case []string:
		s.Enum = append([]string(nil), enum...)
	case []any:
		for _, e := range enum {
			if v, ok := e.(string); ok {
				s.Enum = append(s.Enum, v)
			}
		}
	}
	if len(s.Enum) > 0 {
		s.Format = "enum"
	}
	return s
}

func schemaType(raw any) genai.Type {
	switch raw {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}
