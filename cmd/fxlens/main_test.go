package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/fxlens/internal/config"
	"github.com/Veraticus/fxlens/internal/detect"
	"github.com/Veraticus/fxlens/internal/engine"
)

func setupTestConfig(t *testing.T) {
	t.Helper()

	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"EUR","date":"2024-05-17","rates":{"USD":1.1,"GBP":0.85,"JPY":160}}`))
	}))
	t.Cleanup(rates.Close)

	prev := appCfg
	t.Cleanup(func() { appCfg = prev })

	appCfg = &config.Config{
		Logging:  config.LoggingConfig{Level: "info", Format: "console"},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "fxlens.db")},
		Rates: config.RatesConfig{
			Base:     "EUR",
			URL:      rates.URL,
			MaxAge:   time.Hour,
			Timeout:  5 * time.Second,
			RetryMax: 1,
		},
		Engine: config.EngineConfig{Locale: "en-US", MaxMutationRounds: 8},
		Serve:  config.ServeConfig{Addr: "127.0.0.1:0"},
	}
	require.NoError(t, appCfg.Validate())
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		input string
		want  string
		index int
	}{
		{input: "shop/page.html", want: "page.html"},
		{input: "shop/page.htm", want: "page.htm"},
		{input: "notes.txt", want: "notes.txt.html"},
		{input: "-", index: 2, want: "stdin-2.html"},
		{input: "https://example.com/item?id=4", want: "example.com_item_id_4.html"},
		{input: "https://", index: 1, want: "document-1.html"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, outputName(tt.input, tt.index))
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.html")
	require.NoError(t, writeFileAtomic(path, []byte("one")))
	require.NoError(t, writeFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFormatDetections(t *testing.T) {
	out := formatDetections(detect.Detect("Was $100 now 80 EUR"))
	assert.Contains(t, out, "USD")
	assert.Contains(t, out, "EUR")
	assert.Contains(t, out, "$100")

	assert.Contains(t, formatDetections(nil), "No prices found")
}

func TestDetectCommand(t *testing.T) {
	cmd := detectCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("Only ¥1,000 today"))
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "JPY")
	assert.Contains(t, out.String(), "1000")
}

func TestAnnotateAndStrip(t *testing.T) {
	setupTestConfig(t)

	const pristine = `<html><head></head><body><p>Lunch €10.00 and <span class="price">€5.00</span></p></body></html>`
	input := filepath.Join(t.TempDir(), "menu.html")
	require.NoError(t, os.WriteFile(input, []byte(pristine), 0o600))

	cmd := annotateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--target", "usd", "--styles", input})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	annotated := out.String()
	assert.Contains(t, annotated, "$11.00")
	assert.Contains(t, annotated, `data-currency-converted="true"`)
	assert.Contains(t, annotated, `id="fxlens-styles"`)

	stripped, removed, err := stripDocument(strings.NewReader(annotated))
	require.NoError(t, err)
	assert.Positive(t, removed)
	assert.Equal(t, pristine, stripped)
}

func TestAnnotate_OutDir(t *testing.T) {
	setupTestConfig(t)

	dir := t.TempDir()
	var inputs []string
	for _, name := range []string{"a.html", "b.html"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(`<p>£20.00</p>`), 0o600))
		inputs = append(inputs, path)
	}
	outDir := filepath.Join(dir, "out")

	cmd := annotateCmd()
	var stderr bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--target", "EUR", "--out", outDir}, inputs...))
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	for _, name := range []string{"a.html", "b.html"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Contains(t, string(data), "€23.53")
	}
	assert.Contains(t, stderr.String(), "Annotated 2 of 2 documents")
}

func TestAnnotate_Validation(t *testing.T) {
	setupTestConfig(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unsupported target", args: []string{"--target", "XYZ", "a.html"}, want: "unsupported target currency"},
		{name: "several inputs without out", args: []string{"a.html", "b.html"}, want: "--out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := annotateCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			err := cmd.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPrefsSetAndShow(t *testing.T) {
	setupTestConfig(t)

	set := prefsSetCmd()
	set.SetOut(&bytes.Buffer{})
	set.SetArgs([]string{"targetCurrency", "gbp"})
	require.NoError(t, set.ExecuteContext(context.Background()))

	bad := prefsSetCmd()
	bad.SetOut(&bytes.Buffer{})
	bad.SetErr(&bytes.Buffer{})
	bad.SetArgs([]string{"theme", "dark"})
	require.Error(t, bad.ExecuteContext(context.Background()))

	show := prefsShowCmd()
	var out bytes.Buffer
	show.SetOut(&out)
	show.SetArgs([]string{})
	require.NoError(t, show.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "GBP")
	assert.Contains(t, out.String(), "hideOriginal")
}

func TestRatesCommand(t *testing.T) {
	setupTestConfig(t)

	cmd := ratesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--refresh"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "1 EUR on 2024-05-17")
	assert.Contains(t, out.String(), "Japanese Yen")
}

func TestIsDatabaseFile(t *testing.T) {
	assert.True(t, isDatabaseFile("/data/fx.db", "/data/fx.db"))
	assert.True(t, isDatabaseFile("/data/fx.db-wal", "/data/fx.db"))
	assert.False(t, isDatabaseFile("/data/fx.db-shm", "/data/fx.db"))
	assert.False(t, isDatabaseFile("/data/other.db", "/data/fx.db"))
}

func TestWatchSession_SummaryDuringFlush(t *testing.T) {
	setupTestConfig(t)
	ctx := context.Background()

	dir := t.TempDir()
	input := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(input, []byte(`<html><head></head><body><p>Tea €10</p></body></html>`), 0o600))

	store, err := initStorage(ctx, appCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	prefStore, err := initPreferences(ctx, store)
	require.NoError(t, err)
	ec, err := engineConfig(appCfg)
	require.NoError(t, err)
	doc, err := readDocument(input)
	require.NoError(t, err)

	s := &watchSession{
		ctrl:   engine.NewWithConfig(doc, newRateService(appCfg, store), prefStore, ec),
		doc:    doc,
		input:  input,
		output: filepath.Join(dir, "out.html"),
	}
	assert.Equal(t, "0 annotations in "+s.output+" after 0 writes", s.summary())

	_, err = s.ctrl.Load(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				_ = s.summary()
			}
		}
	}()

	for range 3 {
		s.ctrl.Handle(ctx, engine.Event{Kind: engine.EventTimer})
		require.NoError(t, s.flush(ctx))
	}
	close(done)
	wg.Wait()

	assert.Equal(t, "1 annotations in "+s.output+" after 3 writes", s.summary())
}
