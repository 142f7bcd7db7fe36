//go:build windows

package process

import (
	"os/exec"
	"time"
)

func setProcessGroup(cmd *exec.Cmd) {}

func terminate(cmd *exec.Cmd, _ time.Duration, _ <-chan struct{}) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
