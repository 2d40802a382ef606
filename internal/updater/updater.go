// Package updater keeps the managed executable present and reasonably
// current against its remote release source.
package updater

import (
	"context"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vrcproxy/ytdlp-proxy/internal/status"
	"github.com/vrcproxy/ytdlp-proxy/util"
)

// VersionFileName is the local version record kept beside the managed
// executable.
const VersionFileName = "version.json"

// checkInterval is how long a remote check stays fresh.
const checkInterval = 24 * time.Hour

// VersionRecord tracks which version of the tool is installed and when
// the remote source was last consulted. An absent timestamp means a
// check is due.
type VersionRecord struct {
	Version   string     `json:"version"`
	LastCheck *time.Time `json:"last_check,omitempty"`
}

// Manager downloads and updates the managed executable.
type Manager struct {
	exePath    string
	exeDir     string
	assetName  string
	releaseURL string

	// injectable for tests
	now           func() time.Time
	fetchRelease  func(ctx context.Context, url string) (*Release, error)
	downloadAsset func(ctx context.Context, url string) ([]byte, error)
}

// NewManager creates a manager for the executable at exePath. The
// asset name is the exact release asset looked up during downloads.
func NewManager(exePath, assetName, releaseURL string) *Manager {
	return &Manager{
		exePath:       exePath,
		exeDir:        filepath.Dir(exePath),
		assetName:     assetName,
		releaseURL:    releaseURL,
		now:           time.Now,
		fetchRelease:  fetchRelease,
		downloadAsset: downloadAsset,
	}
}

// ExecutablePath returns the managed executable's path.
func (m *Manager) ExecutablePath() string {
	return m.exePath
}

// ExecutableExists reports whether the managed executable is on disk.
func (m *Manager) ExecutableExists() bool {
	return util.FileExists(m.exePath)
}

// EnsurePresent downloads the latest release when the managed
// executable is absent. Errors here are fatal to the invocation since
// there is no tool to run.
func (m *Manager) EnsurePresent(ctx context.Context) error {
	if m.ExecutableExists() {
		return nil
	}

	log.Infof("%s not found, downloading...", m.exePath)
	return m.DownloadLatest(ctx)
}

// CheckAndUpdate refreshes the managed executable when the remote tag
// differs from the recorded one. The remote source is consulted at
// most once per day unless force is set; within the window the call
// returns without any network traffic.
func (m *Manager) CheckAndUpdate(ctx context.Context, force bool) error {
	record := m.loadRecord()

	if !force && !m.checkDue(record) {
		log.Debugf("update check not due yet, last check %v", record.LastCheck)
		return nil
	}

	log.Info("checking for tool updates...")

	release, err := m.fetchRelease(ctx, m.releaseURL)
	if err != nil {
		return err
	}

	now := m.now().UTC()
	record.LastCheck = &now

	if record.Version != release.TagName {
		log.Infof("new version available: %s (current: %q)", release.TagName, record.Version)
		return m.download(ctx, release)
	}

	log.Infof("tool is up to date: %s", record.Version)
	return m.saveRecord(record)
}

// DownloadLatest performs a full download of the latest release and
// records the new tag.
func (m *Manager) DownloadLatest(ctx context.Context) error {
	release, err := m.fetchRelease(ctx, m.releaseURL)
	if err != nil {
		return err
	}
	return m.download(ctx, release)
}

// download fetches the release's matching asset into memory, replaces
// the managed executable atomically and persists the version record.
func (m *Manager) download(ctx context.Context, release *Release) error {
	asset, err := release.FindAsset(m.assetName)
	if err != nil {
		return err
	}

	log.Infof("downloading from: %s", asset.BrowserDownloadURL)

	data, err := m.downloadAsset(ctx, asset.BrowserDownloadURL)
	if err != nil {
		return err
	}

	if err := util.WriteBytesAtomic(m.exePath, data, 0755); err != nil {
		return status.FromOSError(err, "failed to write executable %s", m.exePath)
	}

	now := m.now().UTC()
	if err := m.saveRecord(VersionRecord{Version: release.TagName, LastCheck: &now}); err != nil {
		return err
	}

	log.Infof("successfully downloaded tool version: %s", release.TagName)
	return nil
}

// checkDue reports whether the last recorded check is stale.
func (m *Manager) checkDue(record VersionRecord) bool {
	if record.LastCheck == nil {
		return true
	}
	return m.now().UTC().Sub(*record.LastCheck) > checkInterval
}

// loadRecord reads the version record. A missing or corrupt file
// yields a zero record, which counts as "check due".
func (m *Manager) loadRecord() VersionRecord {
	record := VersionRecord{}
	path := filepath.Join(m.exeDir, VersionFileName)
	if !util.FileExists(path) {
		return record
	}
	if err := util.ReadJson(path, &record); err != nil {
		log.Warnf("failed to read version record %s: %v", path, err)
		return VersionRecord{}
	}
	return record
}

func (m *Manager) saveRecord(record VersionRecord) error {
	path := filepath.Join(m.exeDir, VersionFileName)
	if err := util.WriteJson(path, record); err != nil {
		return status.FromOSError(err, "failed to write version record %s", path)
	}
	return nil
}
