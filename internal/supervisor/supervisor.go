// Package supervisor executes the managed tool as a subprocess with
// confinement, a hard execution ceiling and guaranteed cleanup on
// every exit path.
package supervisor

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vrcproxy/ytdlp-proxy/internal/status"
	"github.com/vrcproxy/ytdlp-proxy/util"
)

// TempDirName is the confinement subdirectory substituted for the
// system temp path in the child's environment.
const TempDirName = "tmp"

// DuplicateDetector gates the launch when a copy of the managed
// executable is already running.
type DuplicateDetector interface {
	IsRunning() bool
}

// Supervisor owns one tool invocation end-to-end: spawn, bounded wait,
// termination and reaping.
type Supervisor struct {
	workDir  string
	detector DuplicateDetector

	timeout      time.Duration
	pollInterval time.Duration
}

// New creates a supervisor operating out of workDir, which becomes the
// child's working directory and hosts the confinement temp dir.
func New(workDir string, detector DuplicateDetector) *Supervisor {
	return &Supervisor{
		workDir:      workDir,
		detector:     detector,
		timeout:      executionTimeout,
		pollInterval: waitPollInterval,
	}
}

// Execute runs the executable with the given arguments and blocks
// until it finishes, fails or runs past the execution ceiling.
//
// A running duplicate instance and an empty argument list are both
// successful no-ops. The child inherits stdout and stderr live, reads
// stdin from the null device, and sees the confinement directory as
// its temp path.
func (s *Supervisor) Execute(exePath string, args []string) error {
	if s.detector != nil && s.detector.IsRunning() {
		log.Infof("%s is already running, skipping launch", filepath.Base(exePath))
		return nil
	}

	if len(args) == 0 {
		log.Warn("no arguments provided, nothing to execute")
		return nil
	}

	if !util.FileExists(exePath) {
		return status.Errorf(status.FileNotFound, "executable not found: %s", exePath)
	}

	tempDir := s.setupTempDir()

	cmd := exec.Command(exePath, args...)
	cmd.Dir = s.workDir
	cmd.Env = append(os.Environ(),
		"TMPDIR="+tempDir,
		"TEMP="+tempDir,
		"TMP="+tempDir,
	)
	// nil Stdin connects the child to the null device.
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.Infof("executing %s with %d arguments", filepath.Base(exePath), len(args))
	log.Debugf("arguments: %v", args)

	if err := cmd.Start(); err != nil {
		return status.NewExecutionError(status.NoExitCode, "failed to execute %s: %v", exePath, err)
	}

	guard := newGuard(cmd)
	defer guard.Release()

	return guard.Wait(s.timeout, s.pollInterval)
}

// setupTempDir creates the confinement directory under the work dir.
// If creation fails the system temp dir is used instead, the child
// still has to run.
func (s *Supervisor) setupTempDir() string {
	tempDir := filepath.Join(s.workDir, TempDirName)
	if err := os.MkdirAll(tempDir, 0750); err != nil {
		log.Warnf("could not create temp directory %s: %v", tempDir, err)
		return os.TempDir()
	}
	return tempDir
}
