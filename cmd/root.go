package cmd

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vrcproxy/ytdlp-proxy/internal/config"
	"github.com/vrcproxy/ytdlp-proxy/internal/proxy"
	"github.com/vrcproxy/ytdlp-proxy/util"
)

// LogFileName is the rotating log file kept beside the proxy binary.
const LogFileName = "logs.log"

var rootCmd = &cobra.Command{
	Use:          "ytdlp-proxy [tool arguments...]",
	Short:        "supervising proxy for yt-dlp",
	SilenceUsage: true,
	// Every token belongs to the wrapped tool; nothing is interpreted
	// as a flag of the proxy itself.
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		appDir := applicationDir()

		cfg, err := config.Load(appDir)
		if err != nil {
			return err
		}

		initLogging(appDir, cfg)

		log.Infof("arguments: %v", os.Args)
		log.Infof("application directory: %s", appDir)
		log.Infof("tool path: %s", cfg.ToolPath(appDir))

		return proxy.Run(context.Background(), appDir, cfg, args)
	},
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// applicationDir is the directory holding the proxy binary itself; the
// configuration, logs and the managed tool all live beside it. Falls
// back to the current working directory when the executable path
// cannot be resolved.
func applicationDir() string {
	exePath, err := os.Executable()
	if err == nil {
		return filepath.Dir(exePath)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func initLogging(appDir string, cfg *config.Config) {
	level := "info"
	if cfg.Logging.DebugEnabled {
		level = "debug"
	}

	logPath := filepath.Join(appDir, LogFileName)
	if err := util.InitLog(level, logPath, cfg.Logging.MaxFileSizeMB, cfg.Logging.MaxArchivedLogs); err != nil {
		log.Warnf("failed to initialize file logging: %v", err)
	}
}
