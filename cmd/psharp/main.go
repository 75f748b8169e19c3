package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fniksic/PSharp/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "psharp: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
