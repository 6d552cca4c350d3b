package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type convertOutput struct {
	Title  string `json:"title" yaml:"title"`
	Format string `json:"format" yaml:"format"`
	HTML   string `json:"html" yaml:"html"`
}

// NewConvertCmd creates the convert subcommand. It prints the HTML that
// offsets into a non-HTML file refer to.
func NewConvertCmd(loader Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "convert <file>",
		Short:        "Print a document converted to HTML",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loader.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading document: %w", err)
			}
			out := convertOutput{Title: doc.Title, Format: doc.Format, HTML: doc.HTML}
			return emit(cmd, out, func(w io.Writer) error {
				_, err := io.WriteString(w, doc.HTML)
				return err
			})
		},
	}
	addFormatFlag(cmd)
	return cmd
}
