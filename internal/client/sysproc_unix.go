//go:build unix

package client

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the spawned daemon from the client's session
// so it survives the client exiting.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
