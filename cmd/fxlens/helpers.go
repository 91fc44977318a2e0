package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/config"
	"github.com/Veraticus/fxlens/internal/engine"
	"github.com/Veraticus/fxlens/internal/prefs"
	"github.com/Veraticus/fxlens/internal/rates"
	"github.com/Veraticus/fxlens/internal/storage"
)

// initStorage opens and migrates the configured database.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initPreferences wraps store in a preference store with defaults written.
func initPreferences(ctx context.Context, store *storage.SQLiteStorage) (*prefs.Store, error) {
	p := prefs.NewStore(store)
	if _, err := p.InitDefaults(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func newRateService(cfg *config.Config, store *storage.SQLiteStorage) *rates.Service {
	client := rates.NewFrankfurterClient(rates.ClientConfig{
		BaseURL:           cfg.Rates.URL,
		Timeout:           cfg.Rates.Timeout,
		RequestsPerSecond: cfg.Rates.RequestsPerSecond,
		Retry: common.RetryOptions{
			MaxAttempts:  cfg.Rates.RetryMax,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
		},
	})
	return rates.NewService(client, store, cfg.Rates.MaxAge)
}

func engineConfig(cfg *config.Config) (engine.Config, error) {
	tag, err := cfg.Engine.Language()
	if err != nil {
		return engine.Config{}, err
	}

	ec := engine.DefaultConfig()
	ec.Base = cfg.Rates.Base
	ec.Locale = tag
	ec.RepassDelays = cfg.Engine.RepassDelays
	ec.MaxMutationRounds = cfg.Engine.MaxMutationRounds
	return ec, nil
}

// openInput opens a file path, an http(s) URL or "-" for stdin.
func openInput(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request for %s: %w", name, err)
		}
		req.Header.Set("Accept", "text/html")

		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", name, err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: HTTP %d", name, resp.StatusCode)
		}
		return resp.Body, nil
	}

	f, err := os.Open(config.ExpandPath(name))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

// outputName derives the file name used for input when writing into a directory.
func outputName(input string, index int) string {
	if input == "-" {
		return fmt.Sprintf("stdin-%d.html", index)
	}

	base := input
	if i := strings.Index(base, "://"); i >= 0 {
		base = strings.Trim(base[i+3:], "/")
		base = strings.NewReplacer("/", "_", "?", "_", "&", "_", "=", "_").Replace(base)
	} else {
		base = filepath.Base(base)
	}
	if base == "" || base == "." {
		base = fmt.Sprintf("document-%d", index)
	}
	if ext := filepath.Ext(base); ext != ".html" && ext != ".htm" {
		base += ".html"
	}
	return base
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".fxlens-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
