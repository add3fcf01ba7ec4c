package gemini

import (
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"bugx/internal/llm"
)

func TestToContentsMapsRolesAndMergesTurns(t *testing.T) {
	system, contents := toContents([]llm.Message{
		{Role: llm.RoleSystem, Content: "be careful"},
		{Role: llm.RoleUser, Content: "fix the bug"},
		{Role: llm.RoleAssistant, Content: "Looking.", ToolCalls: []llm.ToolCall{
			{ID: "call_0", Function: llm.FunctionCall{Name: "read_file", Arguments: `{"path":"main.py"}`}},
			{ID: "call_1", Function: llm.FunctionCall{Name: "scan_directory", Arguments: ""}},
		}},
		{Role: llm.RoleTool, Name: "read_file", ToolCallID: "call_0", Content: "print(1)"},
		{Role: llm.RoleTool, Name: "scan_directory", ToolCallID: "call_1", Content: "main.py → size: 9 bytes, is_dir: false"},
	})

	if system != "be careful" {
		t.Fatalf("system = %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" || contents[2].Role != "user" {
		t.Fatalf("unexpected roles %s %s %s", contents[0].Role, contents[1].Role, contents[2].Role)
	}
	if len(contents[1].Parts) != 3 {
		t.Fatalf("model turn should carry text and two calls, got %d parts", len(contents[1].Parts))
	}
	call, ok := contents[1].Parts[1].(genai.FunctionCall)
	if !ok || call.Name != "read_file" || call.Args["path"] != "main.py" {
		t.Fatalf("unexpected call part %#v", contents[1].Parts[1])
	}
	if len(contents[2].Parts) != 2 {
		t.Fatalf("tool responses should merge into one user turn, got %d parts", len(contents[2].Parts))
	}
	resp, ok := contents[2].Parts[0].(genai.FunctionResponse)
	if !ok || resp.Name != "read_file" || resp.Response["result"] != "print(1)" {
		t.Fatalf("unexpected response part %#v", contents[2].Parts[0])
	}
}

func TestFromResponse(t *testing.T) {
	out := fromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{
			genai.Text("Reading "),
			genai.Text("files."),
			genai.FunctionCall{Name: "read_file", Args: map[string]any{"path": "a.py"}},
		}}}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 5, CandidatesTokenCount: 2, TotalTokenCount: 7},
	})
	if len(out.Choices) != 1 {
		t.Fatalf("expected one choice")
	}
	msg := out.Choices[0].Message
	if msg.Content != "Reading files." || out.Choices[0].FinishReason != "tool_calls" {
		t.Fatalf("unexpected message %+v", out.Choices[0])
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(msg.ToolCalls[0].Function.Arguments), &args); err != nil || args["path"] != "a.py" {
		t.Fatalf("unexpected arguments %q", msg.ToolCalls[0].Function.Arguments)
	}
	if msg.ToolCalls[0].ID != "call_0" || out.Usage.TotalTokens != 7 {
		t.Fatalf("unexpected call id or usage: %+v %+v", msg.ToolCalls[0], out.Usage)
	}
}

func TestToSchema(t *testing.T) {
	s := toSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "enum": []any{"delete", "move"}, "description": "what to do"},
			"paths":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"limit":  map[string]any{"type": "integer"},
		},
		"required":             []any{"action"},
		"additionalProperties": false,
	})
	if s.Type != genai.TypeObject || len(s.Required) != 1 || s.Required[0] != "action" {
		t.Fatalf("unexpected schema %+v", s)
	}
	action := s.Properties["action"]
	if action.Type != genai.TypeString || action.Format != "enum" || len(action.Enum) != 2 || action.Description != "what to do" {
		t.Fatalf("unexpected action schema %+v", action)
	}
	if s.Properties["paths"].Items.Type != genai.TypeString || s.Properties["limit"].Type != genai.TypeInteger {
		t.Fatalf("nested schemas not converted")
	}
}
