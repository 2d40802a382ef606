package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vrcproxy/ytdlp-proxy/internal/status"
)

const (
	// executionTimeout is the hard ceiling on one tool run.
	executionTimeout = 30 * time.Second

	// waitPollInterval is the sleep between liveness checks.
	waitPollInterval = 100 * time.Millisecond

	// reapGrace bounds how long a kill waits for the child to be reaped.
	reapGrace = 5 * time.Second
)

// guard exclusively owns one live child process. Whatever exit path
// the calling scope takes, Release checks whether the child is still
// alive, force-terminates it if so and reaps it, so no orphan or
// zombie survives the invocation. No other code path may signal the
// child.
type guard struct {
	cmd    *exec.Cmd
	done   chan error
	reaped bool
}

func newGuard(cmd *exec.Cmd) *guard {
	g := &guard{
		cmd:  cmd,
		done: make(chan error, 1),
	}
	go func() {
		g.done <- cmd.Wait()
	}()
	return g
}

// Wait polls the child until it exits or the deadline passes. On a
// deadline breach the child is killed, reaped and the outcome is a
// Timeout error rather than an indefinite block.
func (g *guard) Wait(timeout, pollInterval time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		select {
		case err := <-g.done:
			g.reaped = true
			return g.classify(err)
		default:
		}

		if time.Now().After(deadline) {
			log.Errorf("child process %d exceeded the %s execution ceiling, terminating", g.cmd.Process.Pid, timeout)
			g.terminate()
			return status.Errorf(status.Timeout, "process terminated after exceeding the %s execution ceiling", timeout)
		}

		time.Sleep(pollInterval)
	}
}

// Release is the guard's backstop, run deferred by the owning scope.
// Failures here are warnings only, they must not mask the primary
// outcome.
func (g *guard) Release() {
	if g.reaped {
		return
	}
	log.Warnf("child process %d still alive on scope exit, cleaning up", g.cmd.Process.Pid)
	g.terminate()
}

// terminate kills the child if needed and blocks briefly to reap it.
func (g *guard) terminate() {
	if g.reaped {
		return
	}

	if err := g.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Warnf("failed to kill child process %d: %v", g.cmd.Process.Pid, err)
	}

	select {
	case <-g.done:
	case <-time.After(reapGrace):
		log.Warnf("timed out reaping child process %d", g.cmd.Process.Pid)
	}

	g.reaped = true
}

// classify maps the wait result to the invocation outcome. A non-zero
// exit surfaces the numeric code; a process terminated without a
// status code (killed by a signal) carries the no-status marker.
func (g *guard) classify(waitErr error) error {
	if waitErr == nil {
		log.Info("process completed successfully")
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		if code >= 0 {
			return status.NewExecutionError(code, "process exited with status %d", code)
		}
		return status.NewExecutionError(status.NoExitCode, "process terminated without a status code: %v", exitErr)
	}

	return status.NewExecutionError(status.NoExitCode, "failed waiting for process: %v", waitErr)
}
