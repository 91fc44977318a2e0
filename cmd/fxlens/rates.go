package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/fxlens/internal/cli"
	"github.com/Veraticus/fxlens/internal/currency"
	"github.com/Veraticus/fxlens/internal/model"
)

func ratesCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the cached exchange rate table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx, appCfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			svc := newRateService(appCfg, store)

			var snap model.RateSnapshot
			if refresh {
				snap, err = svc.Refresh(ctx, appCfg.Rates.Base)
			} else {
				snap, err = svc.GetRates(ctx, appCfg.Rates.Base)
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatRates(snap))
			return err
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch a fresh table even when the cache is fresh")
	return cmd
}

func formatRates(snap model.RateSnapshot) string {
	codes := make([]string, 0, len(snap.Rates))
	for code := range snap.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		name := currency.Name(code)
		rows = append(rows, []string{code, name, strconv.FormatFloat(snap.Rates[code], 'f', -1, 64)})
	}

	title := fmt.Sprintf("1 %s on %s (fetched %s)",
		snap.Base, snap.Date, snap.FetchedAt.Local().Format("2006-01-02 15:04"))
	return cli.RenderBox(title, cli.RenderTable([]string{"CODE", "NAME", "RATE"}, rows))
}
