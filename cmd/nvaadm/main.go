package main

import (
	"fmt"
	"os"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/cmd/nvaadm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
