package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/Veraticus/fxlens/internal/cli"
	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/config"
	"github.com/Veraticus/fxlens/internal/engine"
	"github.com/Veraticus/fxlens/internal/model"
	"github.com/Veraticus/fxlens/internal/page"
	"github.com/Veraticus/fxlens/internal/prefs"
)

const watchDebounce = 200 * time.Millisecond

func watchCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Keep an annotated copy of an HTML file up to date",
		Long: `Watch keeps one view alive over an HTML file. Edits to the file's body are
applied to the view as mutations and only the changed subtrees are processed.
Preference changes and rate refreshes reprocess the whole document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return common.NewUserError("watch needs --out <file>", common.ErrMissingConfig)
			}
			return runWatch(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", "", "file receiving the annotated document")
	return cmd
}

// watchSession is driven by a single goroutine. Only the counters may be
// read from elsewhere.
type watchSession struct {
	ctrl        *engine.Controller
	prefs       *prefs.Store
	doc         *page.Document
	input       string
	output      string
	writes      atomic.Int64
	annotations atomic.Int64
}

func (s *watchSession) summary() string {
	return fmt.Sprintf("%d annotations in %s after %d writes", s.annotations.Load(), s.output, s.writes.Load())
}

func runWatch(cmd *cobra.Command, input, output string) error {
	input, err := filepath.Abs(config.ExpandPath(input))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", input, err)
	}
	output, err = filepath.Abs(config.ExpandPath(output))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", output, err)
	}
	if input == output {
		return common.NewUserError("--out must differ from the watched file", common.ErrInvalidConfig)
	}

	ctx := cmd.Context()
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

	doc, err := readDocument(input)
	if err != nil {
		return err
	}

	s := &watchSession{
		ctrl:   engine.NewWithConfig(doc, newRateService(appCfg, store), prefStore, ec),
		prefs:  prefStore,
		doc:    doc,
		input:  input,
		output: output,
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr(), s.summary)
	ctx = interrupts.HandleInterrupts(ctx)

	if _, err := s.ctrl.Load(ctx); err != nil {
		if !errors.Is(err, common.ErrRatesUnavailable) {
			return err
		}
		slog.Warn("Rates unavailable, writing unannotated copy until they arrive", "error", err)
	}
	if err := s.flush(ctx); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(filepath.Dir(input)); err != nil {
		return fmt.Errorf("watching %s: %w", input, err)
	}
	dbPath, err := filepath.Abs(store.Path())
	if err != nil {
		return fmt.Errorf("resolving %s: %w", store.Path(), err)
	}
	dbDir := filepath.Dir(dbPath)
	if dbDir != filepath.Dir(input) {
		if err := fsw.Add(dbDir); err != nil {
			slog.Warn("Preference changes will not be picked up", "dir", dbDir, "error", err)
		}
	}

	// the database also changes on rate cache writes; only real preference
	// changes reach the view
	if _, err := prefStore.Reload(ctx); err != nil {
		return err
	}
	prefStore.OnChange(func(model.Preferences) {
		s.ctrl.Handle(ctx, engine.Event{Kind: engine.EventPreferences})
	})

	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo(fmt.Sprintf("Watching %s → %s", input, output)))
	return s.loop(ctx, fsw, dbPath, ec.RepassDelays)
}

func (s *watchSession) loop(ctx context.Context, fsw *fsnotify.Watcher, dbPath string, delays []time.Duration) error {
	timers := make(chan engine.Event, len(delays))
	for _, d := range delays {
		label := "delayed-" + d.String()
		t := time.AfterFunc(d, func() {
			timers <- engine.Event{Kind: engine.EventTimer, Label: label}
		})
		defer t.Stop()
	}

	refresh := time.NewTicker(appCfg.Rates.MaxAge)
	defer refresh.Stop()

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	var docChanged, dbChanged bool

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			switch {
			case ev.Name == s.input:
				docChanged = true
			case isDatabaseFile(ev.Name, dbPath):
				dbChanged = true
			default:
				continue
			}
			debounce.Reset(watchDebounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", "error", err)

		case <-debounce.C:
			if docChanged {
				if err := s.reload(); err != nil {
					slog.Warn("Failed to reload document", "input", s.input, "error", err)
				}
			}
			if dbChanged {
				if _, err := s.prefs.Reload(ctx); err != nil {
					slog.Warn("Failed to reload preferences", "error", err)
				}
			}
			docChanged, dbChanged = false, false
			if err := s.flush(ctx); err != nil {
				return err
			}

		case ev := <-timers:
			s.ctrl.Handle(ctx, ev)
			if err := s.flush(ctx); err != nil {
				return err
			}

		case <-refresh.C:
			s.ctrl.Handle(ctx, engine.Event{Kind: engine.EventRates})
			if err := s.flush(ctx); err != nil {
				return err
			}
		}
	}
}

// reload swaps the body of the live document for the body of the file on
// disk. The swap is recorded as a mutation and processed by the next flush.
func (s *watchSession) reload() error {
	fresh, err := readDocument(s.input)
	if err != nil {
		return err
	}

	body := fresh.Body()
	var children []*html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	s.doc.ReplaceChildren(s.doc.Body(), children...)
	slog.Debug("Reloaded document body", "input", s.input, "nodes", len(children))
	return nil
}

// flush settles pending mutations and writes the annotated document.
func (s *watchSession) flush(ctx context.Context) error {
	s.ctrl.Settle(ctx)

	rendered, err := s.doc.HTML()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.output, []byte(rendered)); err != nil {
		return err
	}
	s.writes.Add(1)
	s.annotations.Store(int64(s.ctrl.Registry().Len()))
	slog.Debug("Wrote annotated document",
		"output", s.output,
		"annotations", s.annotations.Load(),
		"state", s.ctrl.State().String())
	return nil
}

func readDocument(path string) (*page.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return page.Parse(f)
}

func isDatabaseFile(name, dbPath string) bool {
	switch name {
	case dbPath, dbPath + "-wal", dbPath + "-journal":
		return true
	}
	return false
}
