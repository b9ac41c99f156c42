//go:build windows

package client

import "os/exec"

func setSysProcAttr(cmd *exec.Cmd) {}
