// Command qrscan reconciles QR decode results into presentation commands.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/qrscan/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "qrscan:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
