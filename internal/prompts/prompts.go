// Package prompts holds the embedded prompts sent to the model.
package prompts

import (
	_ "embed"
	"strings"
	"sync"
)

var (
	//go:embed system.txt
	systemPrompt string
	//go:embed planner.txt
	plannerPrompt string
	//go:embed codegen.txt
	codegenPrompt string
)

var (
	metadataMu sync.RWMutex
	metadata   string
)

// Base returns the built-in agent system prompt.
func Base() string {
	return strings.TrimSpace(systemPrompt)
}

// Planner returns the prompt that makes the model emit a Plan/Summary block.
func Planner() string {
	return strings.TrimSpace(plannerPrompt)
}

// Codegen returns the prompt used by the code generation tool.
func Codegen() string {
	return strings.TrimSpace(codegenPrompt)
}

// Combine joins the built-in prompt with environment metadata and an
// optional user-provided prompt.
func Combine(user string) string {
	sections := []string{Base()}
	if meta := getMetadata(); meta != "" {
		sections = append(sections, "## Environment Context\n"+meta)
	}
	if trimmed := strings.TrimSpace(user); trimmed != "" {
		sections = append(sections, trimmed)
	}
	return strings.Join(sections, "\n\n")
}

// PlanRequest formats a user request for the planner.
func PlanRequest(request string) string {
	return "Request: " + strings.TrimSpace(request)
}

// CodeRequest formats a code generation request with optional context.
func CodeRequest(request, context string) string {
	var b strings.Builder
	b.WriteString("Request:\n")
	b.WriteString(strings.TrimSpace(request))
	if ctx := strings.TrimSpace(context); ctx != "" {
		b.WriteString("\n\nExisting code:\n")
		b.WriteString(ctx)
	}
	return b.String()
}

// SetMetadata defines the environment metadata appended to the system prompt.
func SetMetadata(info string) {
	metadataMu.Lock()
	defer metadataMu.Unlock()
	metadata = strings.TrimSpace(info)
}

func getMetadata() string {
	metadataMu.RLock()
	defer metadataMu.RUnlock()
	return metadata
}
