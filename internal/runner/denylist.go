package runner

import (
	"strings"

	"bugx/internal/sandbox"
)

// dangerousPatterns are matched as substrings of the lowercased command.
var dangerousPatterns = []string{
	"rm -rf /",
	`rm -rf \`,
	"format c:",
	"mkfs",
	":(){:|:&};:",
	":(){ :|:& };:",
}

// elevationPrefixes are matched at the start of the lowercased command.
var elevationPrefixes = []string{"sudo "}

// CheckCommand returns a safety_blocked error when command is on the deny-list.
func CheckCommand(command string) error {
	normalized := strings.ToLower(strings.TrimSpace(command))
	for _, prefix := range elevationPrefixes {
		if strings.HasPrefix(normalized, prefix) || normalized == strings.TrimSpace(prefix) {
			return blocked(command)
		}
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(normalized, pattern) {
			return blocked(command)
		}
	}
	return nil
}

func blocked(command string) error {
	return sandbox.Errorf(sandbox.KindSafetyBlocked, command, "command blocked for safety: %q", command)
}
