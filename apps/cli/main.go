package main

import "github.com/abdul-hamid-achik/spyspec/apps/cli/cmd"

// Set by build flags.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
