// Command blockfsctl formats, inspects, checks, and archives block
// filesystem images.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "blockfsctl",
		Usage: "format and inspect block filesystem images",
		Commands: []*cli.Command{
			formatCommand(),
			lsCommand(),
			catCommand(),
			checkCommand(),
			exportCommand(),
			importCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "blockfsctl:", err)
		os.Exit(1)
	}
}
