package main

import (
	"os"

	"github.com/lazypower/waypoint/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
