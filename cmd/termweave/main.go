// Command termweave runs a term-rewriting program described in the
// S-expression syntax internal/sexpr and internal/program define.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"termweave/internal/cli"
)

func main() {
	var res cli.Result
	cmd := cli.NewRootCommand(&res)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if res.ExitCode == cli.ExitSuccess {
			res.ExitCode = cli.ExitCode(err)
		}
		os.Exit(res.ExitCode)
	}

	if res.Summary != nil {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(res.Summary); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(cli.ExitIOFailure)
		}
	}
	os.Exit(res.ExitCode)
}
