package main

import (
	"os"

	"github.com/vrcproxy/ytdlp-proxy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
