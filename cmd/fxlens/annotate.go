package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/fxlens/internal/annotate"
	"github.com/Veraticus/fxlens/internal/cli"
	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/currency"
	"github.com/Veraticus/fxlens/internal/engine"
	"github.com/Veraticus/fxlens/internal/page"
	"github.com/Veraticus/fxlens/internal/prefs"
)

type annotateOptions struct {
	outDir  string
	outFile string
	target  string
	styles  bool
}

func annotateCmd() *cobra.Command {
	var opts annotateOptions

	cmd := &cobra.Command{
		Use:   "annotate [files|urls...]",
		Short: "Annotate prices in HTML documents",
		Long: `Annotate runs one view over each document and prints the annotated HTML.
Inputs may be file paths, http(s) URLs or "-" for stdin (the default).

With several inputs use --out to write each annotated document into a directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			return runAnnotate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outDir, "out", "", "directory for annotated documents")
	cmd.Flags().StringVarP(&opts.outFile, "output", "o", "", "file for the annotated document (single input)")
	cmd.Flags().StringVar(&opts.target, "target", "", "target currency (overrides preferences)")
	cmd.Flags().BoolVar(&opts.styles, "styles", false, "inject the presentation stylesheet")

	return cmd
}

func runAnnotate(cmd *cobra.Command, inputs []string, opts annotateOptions) error {
	ctx := cmd.Context()

	if opts.target != "" && !currency.IsSupported(strings.ToUpper(opts.target)) {
		return common.NewUserError(fmt.Sprintf("unsupported target currency %q", opts.target), common.ErrInvalidConfig)
	}
	if len(inputs) > 1 && opts.outDir == "" {
		return common.NewUserError("several inputs need --out <dir>", common.ErrMissingConfig)
	}
	if opts.outFile != "" && len(inputs) > 1 {
		return common.NewUserError("--output accepts a single input", common.ErrInvalidConfig)
	}

	store, err := initStorage(ctx, appCfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	prefStore, err := initPreferences(ctx, store)
	if err != nil {
		return err
	}
	ec, err := engineConfig(appCfg)
	if err != nil {
		return err
	}
	ec.RepassDelays = nil

	source := prefs.Override{Source: prefStore, Target: opts.target}
	rateService := newRateService(appCfg, store)

	progress := cli.NewProgress(cmd.ErrOrStderr(), len(inputs), "Annotating documents...")
	var total engine.PassStats
	var failed int

	for i, input := range inputs {
		stats, err := annotateOne(ctx, input, i, opts, rateService, source, ec, cmd.OutOrStdout())
		progress.Step()
		if err != nil {
			if errors.Is(err, common.ErrRatesUnavailable) || errors.Is(err, context.Canceled) {
				return err
			}
			failed++
			common.LogError(err, "Failed to annotate document", common.Fields{"input": input})
			continue
		}
		total.Target = stats.Target
		total.Converted += stats.Converted
		total.Hidden += stats.Hidden
	}
	progress.Finish()

	if opts.outDir != "" || opts.outFile != "" {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(fmt.Sprintf(
			"Annotated %d of %d documents: %d prices converted to %s",
			len(inputs)-failed, len(inputs), total.Converted, total.Target)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(inputs))
	}
	return nil
}

func annotateOne(ctx context.Context, input string, index int, opts annotateOptions, rates engine.RateProvider, source prefs.Source, ec engine.Config, stdout io.Writer) (engine.PassStats, error) {
	r, err := openInput(ctx, input)
	if err != nil {
		return engine.PassStats{}, err
	}
	doc, err := page.Parse(r)
	_ = r.Close()
	if err != nil {
		return engine.PassStats{}, err
	}

	if opts.styles {
		if err := annotate.InjectStyles(doc); err != nil {
			return engine.PassStats{}, err
		}
	}

	_, stats, err := engine.AnnotateDocument(ctx, doc, rates, source, ec, nil)
	if err != nil {
		return stats, err
	}

	rendered, err := doc.HTML()
	if err != nil {
		return stats, err
	}

	switch {
	case opts.outDir != "":
		return stats, writeFileAtomic(filepath.Join(opts.outDir, outputName(input, index)), []byte(rendered))
	case opts.outFile != "":
		return stats, writeFileAtomic(opts.outFile, []byte(rendered))
	default:
		_, err = io.WriteString(stdout, rendered)
		return stats, err
	}
}
