package main

import (
	"fmt"
	"os"

	"github.com/lherron/foldermerge/internal/cli"
)

func main() {
	err := cli.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
