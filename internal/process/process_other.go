//go:build !unix

package process

import "os/exec"

// killGroupOnCancel keeps the os/exec default of killing the direct child.
func killGroupOnCancel(cmd *exec.Cmd) {}

func exitCode(err *exec.ExitError) int {
	if code := err.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
