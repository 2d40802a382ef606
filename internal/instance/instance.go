// Package instance detects an already-running copy of the managed
// executable in the OS process table. The wrapped tool is a
// non-reentrant, exclusive-resource consumer, so overlapping instances
// are prevented instead of being allowed to race.
package instance

import (
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"
)

// Detector scans the process table for live processes whose image
// matches the managed executable.
type Detector struct {
	exePath string
	exeName string
	ownPID  int32

	// listProcesses is swappable for tests.
	listProcesses func() ([]*process.Process, error)
}

// NewDetector creates a detector for the managed executable at exePath.
// ownPID is excluded from consideration.
func NewDetector(exePath string, ownPID int32) *Detector {
	return &Detector{
		exePath:       exePath,
		exeName:       filepath.Base(exePath),
		ownPID:        ownPID,
		listProcesses: process.Processes,
	}
}

// IsRunning reports whether another live process matches the managed
// executable. Enumeration errors are logged and treated as "not
// running" so a broken process table can never block the launch.
func (d *Detector) IsRunning() bool {
	processes, err := d.listProcesses()
	if err != nil {
		log.Warnf("failed to enumerate processes: %v", err)
		return false
	}

	for _, p := range processes {
		if p.Pid == d.ownPID {
			continue
		}
		if d.matches(p) {
			log.Infof("found running instance of %s (pid %d)", d.exeName, p.Pid)
			return true
		}
	}

	return false
}

// matches compares a process against the managed executable. The
// strict comparison is full executable-path equality combined with a
// case-insensitive file-name check. When the process's exe path is
// unreadable (insufficient permissions, zombie entries) it falls back
// to comparing the process name alone.
func (d *Detector) matches(p *process.Process) bool {
	name, err := p.Name()
	if err != nil || name == "" {
		return false
	}
	if !strings.EqualFold(name, d.exeName) {
		return false
	}

	exe, err := p.Exe()
	if err != nil || exe == "" {
		// Name-only fallback: the name already matched and the path
		// cannot be read for this entry.
		log.Debugf("exe path unavailable for pid %d, matching by name only", p.Pid)
		return true
	}

	return pathsEqual(exe, d.exePath)
}

func pathsEqual(a, b string) bool {
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		ra = a
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		rb = b
	}
	return strings.EqualFold(filepath.Clean(ra), filepath.Clean(rb))
}
