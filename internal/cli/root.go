// Package cli implements the htmlpath command-line tool.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root htmlpath command with all subcommands
// registered against the local filesystem.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newFileLoader())
}

func newRootCmd(loader Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "htmlpath",
		Short:         "htmlpath - map offsets in HTML to CSS selectors",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
	}
	root.AddCommand(NewResolveCmd(loader))
	root.AddCommand(NewVerifyCmd(loader))
	root.AddCommand(NewTokensCmd(loader))
	root.AddCommand(NewConvertCmd(loader))
	return root
}
