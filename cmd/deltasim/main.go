// Command deltasim compiles, simulates and tests symbolic dataflow models.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/deltasim/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands report their own failures. Anything else is a usage error
	// from flag or argument parsing.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(cli.GetExitCode(err))
}
