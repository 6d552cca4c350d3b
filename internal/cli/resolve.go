package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dgallion1/htmlpath/internal/document"
	"github.com/dgallion1/htmlpath/internal/selector"
	"github.com/dgallion1/htmlpath/internal/verify"
)

// resolveOutput is one resolved offset.
type resolveOutput struct {
	Offset      int                    `json:"offset" yaml:"offset"`
	ByteOffset  int                    `json:"byte_offset" yaml:"byte_offset"`
	Selector    string                 `json:"selector,omitempty" yaml:"selector,omitempty"`
	Segments    []selector.PathSegment `json:"segments" yaml:"segments"`
	Diagnostics []selector.Diagnostic  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Matches     *int                   `json:"matches,omitempty" yaml:"matches,omitempty"`
	Verified    *bool                  `json:"verified,omitempty" yaml:"verified,omitempty"`
	Error       string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewResolveCmd creates the resolve subcommand.
func NewResolveCmd(loader Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "resolve <file>",
		Short:        "Print the selector of the element enclosing each offset",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			offsets, _ := cmd.Flags().GetIntSlice("offset")
			if len(offsets) == 0 {
				return fmt.Errorf("at least one --offset is required")
			}
			unitName, _ := cmd.Flags().GetString("unit")
			unit, err := selector.ParseUnit(unitName)
			if err != nil {
				return err
			}
			check, _ := cmd.Flags().GetBool("check")

			doc, err := loader.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading document: %w", err)
			}

			var tree *verify.Tree
			if check {
				if tree, err = verify.Parse(doc.HTML); err != nil {
					return fmt.Errorf("parsing document: %w", err)
				}
			}

			idx := selector.NewIndex(doc.HTML)
			results := make([]resolveOutput, len(offsets))
			failed := 0
			for i, off := range offsets {
				results[i] = resolveOffset(idx, tree, doc.HTML, off, unit)
				if results[i].Error != "" {
					failed++
				}
			}

			if err := emit(cmd, results, func(w io.Writer) error {
				return writeResolveText(w, results)
			}); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d offsets failed", failed, len(offsets))
			}
			return nil
		},
	}

	cmd.Flags().IntSlice("offset", nil, "Offset to resolve (repeatable or comma-separated)")
	cmd.Flags().String("unit", "byte", "Offset unit: byte, rune or utf16")
	cmd.Flags().Bool("check", false, "Evaluate each selector against the parsed document")
	addFormatFlag(cmd)

	return cmd
}

func resolveOffset(idx *selector.Index, tree *verify.Tree, text string, offset int, unit selector.Unit) resolveOutput {
	out := resolveOutput{Offset: offset, ByteOffset: -1, Segments: []selector.PathSegment{}}
	b, err := selector.ByteOffset(text, offset, unit)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.ByteOffset = b

	path, err := idx.Resolve(b)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Selector = path.Selector()
	if path.Segments != nil {
		out.Segments = path.Segments
	}
	out.Diagnostics = path.Diagnostics

	if tree != nil {
		a := document.Anchor{Offset: b, Selector: out.Selector}
		if err := tree.Check(&a, verify.ProbeText(text, b)); err != nil {
			out.Error = err.Error()
			return out
		}
		out.Matches = &a.Matches
		out.Verified = &a.Verified
	}
	return out
}

func writeResolveText(w io.Writer, results []resolveOutput) error {
	for _, r := range results {
		if r.Error != "" {
			if _, err := fmt.Fprintf(w, "%d\terror: %s\n", r.Offset, r.Error); err != nil {
				return err
			}
			continue
		}
		line := fmt.Sprintf("%d\t%s", r.Offset, r.Selector)
		if r.Verified != nil {
			line += fmt.Sprintf("\tmatches=%d verified=%t", *r.Matches, *r.Verified)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		for _, d := range r.Diagnostics {
			if _, err := fmt.Fprintf(w, "\twarning: %s\n", d); err != nil {
				return err
			}
		}
	}
	return nil
}
