// macrokey binds key combinations to keyboard and mouse macros.
//
// It runs as a tray application: pressing a bound combination runs the
// bound action (repeat keys, click, move the pointer, type text) on the
// desktop or on an Android device attached over USB.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

var version = "dev"

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("macrokey"),
		kong.Description("Keyboard and mouse macros bound to key combinations."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
