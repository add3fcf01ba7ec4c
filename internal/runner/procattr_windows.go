//go:build windows

package runner

import (
	"context"
	"os/exec"
	"time"
)

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	return exec.CommandContext(ctx, "cmd", "/C", command)
}

func configureProcess(cmd *exec.Cmd) {
	cmd.WaitDelay = 2 * time.Second
}
