package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/fxlens/internal/annotate"
	"github.com/Veraticus/fxlens/internal/page"
)

func stripCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "strip [file]",
		Short: "Remove fxlens annotations from an HTML document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}

			r, err := openInput(cmd.Context(), input)
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			out, removed, err := stripDocument(r)
			if err != nil {
				return err
			}
			slog.Info("Stripped annotations", "input", input, "removed", removed)

			if outFile != "" {
				return writeFileAtomic(outFile, []byte(out))
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "file for the stripped document")
	return cmd
}

// stripDocument reverts every annotation marker, the view flags and the
// injected stylesheet.
func stripDocument(r io.Reader) (string, int, error) {
	doc, err := page.Parse(r)
	if err != nil {
		return "", 0, err
	}

	a := annotate.New(doc, annotate.NewRegistry(), annotate.DefaultLocale)
	removed := a.SweepStale(doc.Root())
	a.ApplyViewFlags(doc.Body(), false, false)
	annotate.RemoveStyles(doc)

	out, err := doc.HTML()
	if err != nil {
		return "", removed, fmt.Errorf("rendering stripped document: %w", err)
	}
	return out, removed, nil
}
