package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vrcproxy/ytdlp-proxy/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints the proxy version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.ProxyVersion())
	},
}
