package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dgallion1/htmlpath/internal/selector"
)

// NewTokensCmd creates the tokens subcommand.
func NewTokensCmd(loader Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tokens <file>",
		Short:        "List the classified tags of a document",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loader.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading document: %w", err)
			}
			tokens := selector.Tokenize(doc.HTML)
			if tokens == nil {
				tokens = []selector.Token{}
			}
			return emit(cmd, tokens, func(w io.Writer) error {
				for _, tok := range tokens {
					if _, err := fmt.Fprintf(w, "%d-%d\t%s\t%s\t%s\n", tok.Start, tok.End, tok.Kind, tok.Category, tok.Name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	addFormatFlag(cmd)
	return cmd
}
