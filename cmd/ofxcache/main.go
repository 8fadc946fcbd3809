package main

import (
	"os"

	"github.com/platinummonkey/ofxhost/pkg/cli"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
