package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrcproxy/ytdlp-proxy/internal/status"
)

const assetName = "yt-dlp"

// newTestServer serves release metadata at /release and asset bytes at
// /asset, counting the requests to each.
func newTestServer(t *testing.T, tag string, withAsset bool, metadataHits, assetHits *int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(metadataHits, 1)
		release := Release{TagName: tag}
		if withAsset {
			release.Assets = []Asset{
				{Name: "other-asset.tar.gz", BrowserDownloadURL: server.URL + "/other"},
				{Name: assetName, BrowserDownloadURL: server.URL + "/asset"},
			}
		}
		if err := json.NewEncoder(w).Encode(release); err != nil {
			t.Errorf("encode release: %v", err)
		}
	})
	mux.HandleFunc("/asset", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(assetHits, 1)
		fmt.Fprintf(w, "binary-for-%s", tag)
	})

	return server
}

func newTestManager(t *testing.T, releaseURL string) *Manager {
	t.Helper()
	dir := t.TempDir()
	return NewManager(filepath.Join(dir, assetName), assetName, releaseURL)
}

func TestEnsurePresentDownloads(t *testing.T) {
	var metadataHits, assetHits int32
	server := newTestServer(t, "2026.08.01", true, &metadataHits, &assetHits)

	m := newTestManager(t, server.URL+"/release")
	require.False(t, m.ExecutableExists())

	err := m.EnsurePresent(context.Background())
	require.NoError(t, err)

	require.True(t, m.ExecutableExists())
	data, err := os.ReadFile(m.ExecutablePath())
	require.NoError(t, err)
	assert.Equal(t, "binary-for-2026.08.01", string(data))

	record := m.loadRecord()
	assert.Equal(t, "2026.08.01", record.Version)
	require.NotNil(t, record.LastCheck)
	assert.WithinDuration(t, time.Now().UTC(), *record.LastCheck, time.Minute)
}

func TestEnsurePresentSkipsWhenBinaryExists(t *testing.T) {
	var metadataHits, assetHits int32
	server := newTestServer(t, "2026.08.01", true, &metadataHits, &assetHits)

	m := newTestManager(t, server.URL+"/release")
	require.NoError(t, os.WriteFile(m.ExecutablePath(), []byte("existing"), 0755))

	require.NoError(t, m.EnsurePresent(context.Background()))

	assert.EqualValues(t, 0, atomic.LoadInt32(&metadataHits))
	assert.EqualValues(t, 0, atomic.LoadInt32(&assetHits))
}

func TestCheckAndUpdateRespectsDailyGate(t *testing.T) {
	var metadataHits, assetHits int32
	server := newTestServer(t, "2026.08.01", true, &metadataHits, &assetHits)

	m := newTestManager(t, server.URL+"/release")
	recent := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, m.saveRecord(VersionRecord{Version: "2026.08.01", LastCheck: &recent}))

	require.NoError(t, m.CheckAndUpdate(context.Background(), false))

	assert.EqualValues(t, 0, atomic.LoadInt32(&metadataHits), "no network call expected within the daily gate")
	assert.EqualValues(t, 0, atomic.LoadInt32(&assetHits))
}

func TestCheckAndUpdateForceBypassesGate(t *testing.T) {
	var metadataHits, assetHits int32
	server := newTestServer(t, "2026.08.01", true, &metadataHits, &assetHits)

	m := newTestManager(t, server.URL+"/release")
	recent := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, m.saveRecord(VersionRecord{Version: "2026.08.01", LastCheck: &recent}))

	require.NoError(t, m.CheckAndUpdate(context.Background(), true))

	assert.EqualValues(t, 1, atomic.LoadInt32(&metadataHits))
}

func TestCheckAndUpdateSameTagRefreshesTimestampOnly(t *testing.T) {
	var metadataHits, assetHits int32
	server := newTestServer(t, "2026.08.01", true, &metadataHits, &assetHits)

	m := newTestManager(t, server.URL+"/release")
	require.NoError(t, os.WriteFile(m.ExecutablePath(), []byte("existing"), 0755))
	stale := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, m.saveRecord(VersionRecord{Version: "2026.08.01", LastCheck: &stale}))

	require.NoError(t, m.CheckAndUpdate(context.Background(), false))

	assert.EqualValues(t, 1, atomic.LoadInt32(&metadataHits))
	assert.EqualValues(t, 0, atomic.LoadInt32(&assetHits), "matching tag must not trigger a download")

	data, err := os.ReadFile(m.ExecutablePath())
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data), "binary must be untouched")

	record := m.loadRecord()
	require.NotNil(t, record.LastCheck)
	assert.True(t, record.LastCheck.After(stale), "timestamp must be refreshed")
}

func TestCheckAndUpdateNewTagOverwritesBinary(t *testing.T) {
	var metadataHits, assetHits int32
	server := newTestServer(t, "2026.08.15", true, &metadataHits, &assetHits)

	m := newTestManager(t, server.URL+"/release")
	require.NoError(t, os.WriteFile(m.ExecutablePath(), []byte("old"), 0755))
	stale := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, m.saveRecord(VersionRecord{Version: "2026.08.01", LastCheck: &stale}))

	require.NoError(t, m.CheckAndUpdate(context.Background(), false))

	data, err := os.ReadFile(m.ExecutablePath())
	require.NoError(t, err)
	assert.Equal(t, "binary-for-2026.08.15", string(data))

	record := m.loadRecord()
	assert.Equal(t, "2026.08.15", record.Version)
}

func TestCheckAndUpdateMissingRecordMeansCheckDue(t *testing.T) {
	var metadataHits, assetHits int32
	server := newTestServer(t, "2026.08.15", true, &metadataHits, &assetHits)

	m := newTestManager(t, server.URL+"/release")

	require.NoError(t, m.CheckAndUpdate(context.Background(), false))

	assert.EqualValues(t, 1, atomic.LoadInt32(&metadataHits))
	assert.Equal(t, "2026.08.15", m.loadRecord().Version)
	assert.True(t, m.ExecutableExists())
}

func TestDownloadFailsDistinctlyWhenAssetMissing(t *testing.T) {
	var metadataHits, assetHits int32
	server := newTestServer(t, "2026.08.15", false, &metadataHits, &assetHits)

	m := newTestManager(t, server.URL+"/release")

	err := m.DownloadLatest(context.Background())
	require.Error(t, err)
	assert.True(t, status.Is(err, status.Download), "missing asset must be a Download error, got: %v", err)
}

func TestFetchReleaseRejectsMalformedMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	t.Cleanup(server.Close)

	_, err := fetchRelease(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.RemoteData), "got: %v", err)
}

func TestFetchReleaseRejectsMissingTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"assets": []}`)
	}))
	t.Cleanup(server.Close)

	_, err := fetchRelease(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.RemoteData), "got: %v", err)
}

func TestLoadRecordToleratesCorruptFile(t *testing.T) {
	m := newTestManager(t, "http://unused")
	require.NoError(t, os.WriteFile(filepath.Join(m.exeDir, VersionFileName), []byte("{broken"), 0600))

	record := m.loadRecord()
	assert.Empty(t, record.Version)
	assert.Nil(t, record.LastCheck, "corrupt record must count as check due")
}
