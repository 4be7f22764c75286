package main

import "github.com/DeBrosOfficial/walletkit/pkg/cli"

// version metadata populated via -ldflags at build time
var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	cli.Version, cli.Commit, cli.Date = version, commit, date
	cli.Execute()
}
