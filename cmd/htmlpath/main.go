// Package main is the entry point for the htmlpath CLI.
package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/htmlpath/internal/cli"
)

// Version information, injected at build time.
var Version = "dev"

func main() {
	rootCmd := cli.NewRootCmd()
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
