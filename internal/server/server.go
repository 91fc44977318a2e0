// Package server exposes detection and annotation over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/fxlens/internal/annotate"
	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/currency"
	"github.com/Veraticus/fxlens/internal/detect"
	"github.com/Veraticus/fxlens/internal/engine"
	"github.com/Veraticus/fxlens/internal/metrics"
	"github.com/Veraticus/fxlens/internal/page"
	"github.com/Veraticus/fxlens/internal/prefs"
)

// DefaultMaxBody limits the size of documents accepted by POST /annotate.
const DefaultMaxBody = 10 << 20

// Response headers set by POST /annotate.
const (
	HeaderView      = "X-Fxlens-View"
	HeaderTarget    = "X-Fxlens-Target"
	HeaderConverted = "X-Fxlens-Converted"
)

// Options configures a Server.
type Options struct {
	Rates    engine.RateProvider
	Prefs    prefs.Source
	Registry *prometheus.Registry
	TLS      *tls.Config
	Engine   engine.Config
	MaxBody  int64
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	recorder *metrics.Recorder
	opts     Options
}

// New creates a server with all routes and middleware.
func New(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	// Timed re-passes belong to long-lived views; requests are one-shot.
	opts.Engine.RepassDelays = nil

	s := &Server{
		opts:     opts,
		recorder: metrics.NewRecorder(opts.Registry),
	}
	s.router = s.buildRouter(metrics.NewHTTP(opts.Registry))
	return s
}

// Router returns the chi router.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		TLSConfig:         s.opts.TLS,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.opts.TLS != nil {
			slog.Info("Serving HTTPS", "addr", addr)
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			slog.Info("Serving", "addr", addr)
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) buildRouter(httpMetrics *metrics.HTTP) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/detect", s.handleDetect)
	r.Post("/annotate", s.handleAnnotate)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DetectionResponse is one detection as returned by GET /detect.
type DetectionResponse struct {
	Matched  string  `json:"matched"`
	Currency string  `json:"currency"`
	Raw      string  `json:"raw"`
	Amount   float64 `json:"amount"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "missing text parameter")
		return
	}

	found := detect.Detect(text)
	out := make([]DetectionResponse, 0, len(found))
	for _, d := range found {
		out = append(out, DetectionResponse{
			Matched:  d.MatchedText,
			Currency: d.CurrencyCode,
			Raw:      d.RawAmount,
			Amount:   d.Amount,
			Start:    d.Start,
			End:      d.End,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"detections": out})
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	target := strings.ToUpper(r.URL.Query().Get("target"))
	if target != "" && !currency.IsSupported(target) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported target currency %q", target))
		return
	}

	doc, err := page.Parse(http.MaxBytesReader(w, r.Body, s.opts.MaxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid HTML document")
		return
	}

	if wantStyles, _ := strconv.ParseBool(r.URL.Query().Get("styles")); wantStyles {
		if err := annotate.InjectStyles(doc); err != nil {
			slog.Warn("Failed to inject styles", "error", err)
		}
	}

	source := prefs.Override{Source: s.opts.Prefs, Target: target}
	view, stats, err := engine.AnnotateDocument(r.Context(), doc, s.opts.Rates, source, s.opts.Engine, s.recorder)
	if err != nil {
		if errors.Is(err, common.ErrRatesUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "exchange rates unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "annotation failed")
		common.LogError(err, "Annotation failed", common.Fields{"view": view.ID()})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(HeaderView, view.ID())
	w.Header().Set(HeaderTarget, view.Target())
	w.Header().Set(HeaderConverted, strconv.Itoa(stats.Converted))
	w.WriteHeader(http.StatusOK)
	if err := doc.Render(w); err != nil {
		slog.Warn("Failed to write annotated document", "view", view.ID(), "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
