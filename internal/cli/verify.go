package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dgallion1/htmlpath/internal/verify"
)

// NewVerifyCmd creates the verify subcommand.
func NewVerifyCmd(loader Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "verify <file>",
		Short:        "Evaluate a selector against a document",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, _ := cmd.Flags().GetString("selector")
			if sel == "" {
				return fmt.Errorf("--selector is required")
			}

			doc, err := loader.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading document: %w", err)
			}

			m, err := verify.NewEvaluator().Evaluate(doc.HTML, sel)
			if err != nil {
				return err
			}

			if err := emit(cmd, m, func(w io.Writer) error {
				if m.Count == 0 {
					_, err := fmt.Fprintf(w, "no match for %s\n", m.Query)
					return err
				}
				_, err := fmt.Fprintf(w, "%d match(es) for %s\n<%s>\n%s\n", m.Count, m.Query, m.Tag, m.Markdown)
				return err
			}); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			if strict, _ := cmd.Flags().GetBool("strict"); strict && !m.Unique() {
				return fmt.Errorf("selector matched %d elements, want exactly 1", m.Count)
			}
			return nil
		},
	}

	cmd.Flags().String("selector", "", "Selector to evaluate")
	cmd.Flags().Bool("strict", false, "Fail unless the selector matches exactly one element")
	addFormatFlag(cmd)

	return cmd
}
