package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/vrcproxy/ytdlp-proxy/internal/status"
	"github.com/vrcproxy/ytdlp-proxy/version"
)

const (
	userAgent = "ytdlp-proxy/%s"

	// downloadSizeLimit bounds the in-memory asset fetch.
	downloadSizeLimit = 512 * 1024 * 1024

	// metadataSizeLimit bounds the release metadata response.
	metadataSizeLimit = 4 * 1024 * 1024

	retryDelay = 3 * time.Second
)

// Release is the remote description of the latest available version.
// It is fetched fresh on each check and never persisted.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// FindAsset returns the asset whose name exactly equals name.
func (r *Release) FindAsset(name string) (*Asset, error) {
	for i := range r.Assets {
		if r.Assets[i].Name == name {
			return &r.Assets[i], nil
		}
	}
	return nil, status.Errorf(status.Download, "could not find %s in release assets", name)
}

// fetchRelease downloads and decodes the latest release metadata.
func fetchRelease(ctx context.Context, url string) (*Release, error) {
	body, err := fetchURL(ctx, url, metadataSizeLimit)
	if err != nil {
		return nil, err
	}

	release := &Release{}
	if err := json.Unmarshal(body, release); err != nil {
		return nil, status.Errorf(status.RemoteData, "failed to parse release metadata: %v", err)
	}
	if release.TagName == "" {
		return nil, status.Errorf(status.RemoteData, "release metadata has no tag name")
	}

	return release, nil
}

// downloadAsset fetches the asset bytes fully into memory, retrying
// once after a short delay on transient failures.
func downloadAsset(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		var err error
		body, err = fetchURL(ctx, url, downloadSizeLimit)
		if err != nil {
			log.Warnf("asset download attempt failed: %v", err)
		}
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), 1), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}

	return body, nil
}

func fetchURL(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, status.Errorf(status.Download, "failed to create HTTP request: %v", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf(userAgent, version.ProxyVersion()))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, status.FromHTTPError(err, "request to %s failed", url)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, status.Errorf(status.Download, "unexpected HTTP status from %s: %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, status.FromHTTPError(err, "failed to read response body from %s", url)
	}

	return body, nil
}
