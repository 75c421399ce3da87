package main

import (
	"context"
	"fmt"
	"os"

	"shaderharness/internal/cli"
)

func main() {
	result, err := cli.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(result.ExitCode)
}
