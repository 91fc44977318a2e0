package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/fxlens/internal/cli"
	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/model"
	"github.com/Veraticus/fxlens/internal/prefs"
	"github.com/Veraticus/fxlens/internal/tui"
)

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferences",
	}

	cmd.AddCommand(prefsShowCmd())
	cmd.AddCommand(prefsSetCmd())
	cmd.AddCommand(prefsPickCmd())
	return cmd
}

func prefsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print all preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, appCfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := initPreferences(ctx, store)
			if err != nil {
				return err
			}
			current, err := p.Load(ctx)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatPreferences(current))
			return err
		},
	}
}

func prefsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one preference",
		Long: `Set changes one preference. Keys: enabled, hidden, hideOriginal,
targetCurrency, randomCurrency.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, appCfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := initPreferences(ctx, store)
			if err != nil {
				return err
			}
			if _, err := p.Set(ctx, args[0], args[1]); err != nil {
				if errors.Is(err, prefs.ErrUnknownKey) || errors.Is(err, prefs.ErrInvalidValue) {
					return common.NewUserError(err.Error(), err)
				}
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s updated", args[0])))
			return err
		},
	}
}

func prefsPickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pick",
		Short: "Choose the target currency interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, appCfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := initPreferences(ctx, store)
			if err != nil {
				return err
			}
			current, err := p.Load(ctx)
			if err != nil {
				return err
			}

			chosen, err := tui.RunPicker(ctx, current.TargetCurrency)
			if err != nil {
				return err
			}
			if chosen == "" {
				return nil
			}

			if _, err := p.Set(ctx, model.PrefTargetCurrency, chosen); err != nil {
				return err
			}
			if current.RandomCurrency {
				if _, err := p.Set(ctx, model.PrefRandomCurrency, "false"); err != nil {
					return err
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Target currency set to "+chosen))
			return err
		},
	}
}

func formatPreferences(p model.Preferences) string {
	rows := make([][]string, 0, len(prefs.Keys()))
	for _, key := range prefs.Keys() {
		value, err := prefs.Get(p, key)
		if err != nil {
			continue
		}
		rows = append(rows, []string{key, value})
	}
	return cli.RenderTable([]string{"KEY", "VALUE"}, rows)
}
