// Command netrun inspects and runs compact inference graphs from the
// command line; see cmd/netrun for the actual subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/lattiml/lattice/cmd/netrun"
)

func main() {
	if err := netrun.NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
