// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/attendify/presence/internal/metrics"
)

// Terminate stops a process group: SIGTERM, wait up to grace for waitCh, then
// SIGKILL and drain waitCh. It returns the error received from waitCh and is
// safe to call with a nil command.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	metrics.IncProcTerminate("SIGTERM", signalResult(Kill(cmd, syscall.SIGTERM)))

	select {
	case err := <-waitCh:
		if err == nil {
			metrics.IncProcWait("exit0")
		} else {
			metrics.IncProcWait("exit_nonzero")
		}
		return err
	case <-time.After(grace):
		metrics.IncProcTerminate("SIGKILL", signalResult(Kill(cmd, syscall.SIGKILL)))

		err := <-waitCh
		if err == nil {
			metrics.IncProcWait("forced_exit0")
		} else {
			metrics.IncProcWait("forced_error")
		}
		return err
	}
}

func signalResult(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return "esrch"
	default:
		return "error"
	}
}
