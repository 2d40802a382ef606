package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vrcproxy/ytdlp-proxy/internal/config"
	"github.com/vrcproxy/ytdlp-proxy/internal/proxy"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "checks the release source and updates the managed tool, ignoring the daily gate",
	RunE: func(cmd *cobra.Command, args []string) error {
		appDir := applicationDir()

		cfg, err := config.Load(appDir)
		if err != nil {
			return err
		}

		initLogging(appDir, cfg)

		return proxy.Update(context.Background(), appDir, cfg)
	},
}
