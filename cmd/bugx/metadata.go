package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

func buildEnvironmentMetadata(workspace string) string {
	now := time.Now()
	zoneName, offset := now.Zone()
	if strings.TrimSpace(zoneName) == "" {
		zoneName = "Local"
	}
	lines := []string{
		fmt.Sprintf("- OS: %s (%s)", runtime.GOOS, runtime.GOARCH),
	}
	if shell := detectShell(); shell != "" {
		lines = append(lines, fmt.Sprintf("- Shell: %s", shell))
	}
	lines = append(lines,
		fmt.Sprintf("- Date: %s", now.Format("2006-01-02")),
		fmt.Sprintf("- Timezone: %s (UTC%s)", zoneName, formatUTCOffset(offset)),
	)
	if workspace != "" {
		lines = append(lines, fmt.Sprintf("- Working Directory: %s (every path you use is relative to it)", workspace))
	}
	if Version != "" {
		lines = append(lines, fmt.Sprintf("- BugX Version: %s", Version))
	}
	return strings.Join(lines, "\n")
}

func detectShell() string {
	for _, key := range []string{"SHELL", "COMSPEC"} {
		if shell := strings.TrimSpace(os.Getenv(key)); shell != "" {
			return shell
		}
	}
	return ""
}

func formatUTCOffset(offsetSeconds int) string {
	sign := "+"
	if offsetSeconds < 0 {
		sign = "-"
		offsetSeconds = -offsetSeconds
	}
	return fmt.Sprintf("%s%02d:%02d", sign, offsetSeconds/3600, (offsetSeconds%3600)/60)
}
