// Package proxy ties one supervised invocation together: keep the tool
// current, sanitize the arguments, gate on a running duplicate and
// execute.
package proxy

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/vrcproxy/ytdlp-proxy/internal/config"
	"github.com/vrcproxy/ytdlp-proxy/internal/filter"
	"github.com/vrcproxy/ytdlp-proxy/internal/instance"
	"github.com/vrcproxy/ytdlp-proxy/internal/supervisor"
	"github.com/vrcproxy/ytdlp-proxy/internal/updater"
)

// Run performs one proxied tool invocation with the raw arguments
// received from the host.
//
// When no managed binary exists yet the initial download is fatal;
// once a working binary is on disk, update failures are logged and
// swallowed so a flaky release endpoint cannot break the invocation.
func Run(ctx context.Context, appDir string, cfg *config.Config, rawArgs []string) error {
	toolPath := cfg.ToolPath(appDir)
	manager := updater.NewManager(toolPath, cfg.ExecutableName, cfg.ReleaseURL)

	if !manager.ExecutableExists() {
		if err := manager.EnsurePresent(ctx); err != nil {
			return err
		}
	} else if err := manager.CheckAndUpdate(ctx, false); err != nil {
		log.Errorf("failed to check for updates: %v", err)
	}

	toolArgs := filter.Apply(rawArgs, cfg.Policy())

	detector := instance.NewDetector(toolPath, int32(os.Getpid()))
	sup := supervisor.New(appDir, detector)

	return sup.Execute(toolPath, toolArgs)
}

// Update forces a remote check and download regardless of when the
// last check happened.
func Update(ctx context.Context, appDir string, cfg *config.Config) error {
	toolPath := cfg.ToolPath(appDir)
	manager := updater.NewManager(toolPath, cfg.ExecutableName, cfg.ReleaseURL)
	return manager.CheckAndUpdate(ctx, true)
}
