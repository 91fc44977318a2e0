package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/fxlens/internal/cli"
	"github.com/Veraticus/fxlens/internal/detect"
	"github.com/Veraticus/fxlens/internal/model"
)

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [text...]",
		Short: "List the prices found in text",
		Long: `Detect scans text for prices and prints the currency, amount and byte offsets
of each one. Without arguments the text is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(data)
			}

			found := detect.Detect(text)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), formatDetections(found))
			return err
		},
	}
}

func formatDetections(found []model.Detection) string {
	if len(found) == 0 {
		return cli.FormatInfo("No prices found")
	}

	rows := make([][]string, 0, len(found))
	for _, d := range found {
		rows = append(rows, []string{
			d.CurrencyCode,
			d.MatchedText,
			strconv.FormatFloat(d.Amount, 'f', -1, 64),
			fmt.Sprintf("%d-%d", d.Start, d.End),
		})
	}
	return cli.RenderTable([]string{"CODE", "MATCH", "AMOUNT", "BYTES"}, rows)
}

