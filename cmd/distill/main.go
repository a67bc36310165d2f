// Command distill hydrates structured values from RDF datasets and
// dehydrates them back into quads, driven by layouts written in CUE.
//
// Usage:
//
//	distill check <layouts>                                     Validate layouts
//	distill hydrate --layouts <dir> --layout <ref> [data.nq]    Extract a value
//	distill dehydrate --layouts <dir> --layout <ref> <value.json>
//	distill load --db <file> | --kv <dir> <file.nq>...          Store quads
//	distill test <scenarios-dir>                                Run scenarios
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/distill/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Errors wrapping a cause were already reported by the command.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Err == nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
