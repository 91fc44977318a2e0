// Package engine drives detection and annotation over a document view.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/Veraticus/fxlens/internal/amount"
	"github.com/Veraticus/fxlens/internal/annotate"
	"github.com/Veraticus/fxlens/internal/classify"
	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/currency"
	"github.com/Veraticus/fxlens/internal/detect"
	"github.com/Veraticus/fxlens/internal/model"
	"github.com/Veraticus/fxlens/internal/page"
)

// State is the lifecycle state of a view.
type State int

const (
	// StateUninitialized is the state before Load.
	StateUninitialized State = iota
	// StateRatesPending waits for a usable rate table.
	StateRatesPending
	// StateActive processes every content change.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRatesPending:
		return "rates-pending"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Config holds configuration options for the controller.
type Config struct {
	// Rand returns a value in [0, n); used for random target selection.
	Rand func(n int) int
	// Detector defaults to detect.Default() when nil.
	Detector          Detector
	Base              string
	Locale            language.Tag
	RepassDelays      []time.Duration
	MaxMutationRounds int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Base:              "EUR",
		Locale:            language.AmericanEnglish,
		RepassDelays:      []time.Duration{time.Second, 3 * time.Second},
		MaxMutationRounds: 8,
		Rand:              rand.IntN,
	}
}

// PassStats summarises one pass.
type PassStats struct {
	Target    string
	TextUnits int
	Merged    int
	Split     int
	Converted int
	Hidden    int
	FellBack  bool
}

func (s *PassStats) add(o PassStats) {
	if o.Target != "" {
		s.Target = o.Target
	}
	s.TextUnits += o.TextUnits
	s.Merged += o.Merged
	s.Split += o.Split
	s.Converted += o.Converted
	s.Hidden += o.Hidden
	s.FellBack = s.FellBack || o.FellBack
}

// view is the mutable state owned by one controller.
type view struct {
	rates             model.RateTable
	prefs             model.Preferences
	target            string
	fallbackAttempted bool
}

// Controller reprocesses one document view on every content change.
type Controller struct {
	doc        *page.Document
	registry   *annotate.Registry
	annotator  *annotate.Annotator
	classifier *classify.Classifier
	detector   Detector
	rates      RateProvider
	prefs      PreferenceSource
	recorder   Recorder
	logger     *slog.Logger
	id         string
	cfg        Config
	view       view
	state      State
}

// New creates a controller with the default configuration.
func New(doc *page.Document, rates RateProvider, prefs PreferenceSource) *Controller {
	return NewWithConfig(doc, rates, prefs, DefaultConfig())
}

// NewWithConfig creates a controller with custom configuration.
func NewWithConfig(doc *page.Document, rates RateProvider, prefs PreferenceSource, cfg Config) *Controller {
	defaults := DefaultConfig()
	if cfg.Base == "" {
		cfg.Base = defaults.Base
	}
	if cfg.Locale == language.Und {
		cfg.Locale = defaults.Locale
	}
	if cfg.MaxMutationRounds <= 0 {
		cfg.MaxMutationRounds = defaults.MaxMutationRounds
	}
	if cfg.Rand == nil {
		cfg.Rand = defaults.Rand
	}
	if cfg.Detector == nil {
		cfg.Detector = detect.Default()
	}

	registry := annotate.NewRegistry()
	id := uuid.NewString()

	return &Controller{
		doc:        doc,
		registry:   registry,
		annotator:  annotate.New(doc, registry, cfg.Locale),
		classifier: classify.New(registry),
		detector:   cfg.Detector,
		rates:      rates,
		prefs:      prefs,
		recorder:   nopRecorder{},
		logger:     slog.Default().With("view", id),
		id:         id,
		cfg:        cfg,
		view:       view{prefs: model.DefaultPreferences()},
	}
}

// SetRecorder installs a recorder for pass statistics.
func (c *Controller) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	c.recorder = r
}

// ID returns the view identifier.
func (c *Controller) ID() string { return c.id }

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Target returns the current target currency.
func (c *Controller) Target() string { return c.view.target }

// Registry exposes the annotation registry of the view.
func (c *Controller) Registry() *annotate.Registry { return c.registry }

// Annotator exposes the annotator of the view.
func (c *Controller) Annotator() *annotate.Annotator { return c.annotator }

// Load starts the view: stale markers are swept, then preferences and rates
// are loaded concurrently. With a usable rate table the controller becomes
// active and runs a full pass. Without one it stays pending and returns an
// error wrapping common.ErrRatesUnavailable.
func (c *Controller) Load(ctx context.Context) (PassStats, error) {
	if c.state != StateUninitialized {
		return PassStats{}, fmt.Errorf("view %s already loaded", c.id)
	}
	c.state = StateRatesPending

	if swept := c.annotator.SweepStale(c.doc.Root()); swept > 0 {
		c.logger.Info("Removed stale annotations", "count", swept)
	}

	var (
		prefs    model.Preferences
		snapshot model.RateSnapshot
		rateErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.prefs.Load(gctx)
		if err != nil {
			c.logger.Warn("Failed to load preferences, using defaults", "error", err)
			p = model.DefaultPreferences()
		}
		prefs = p
		return nil
	})
	g.Go(func() error {
		snapshot, rateErr = c.rates.GetRates(gctx, c.cfg.Base)
		return nil
	})
	if err := g.Wait(); err != nil {
		return PassStats{}, err
	}

	c.applyPreferences(prefs)
	c.logger.Info("View initialised",
		"enabled", c.view.prefs.Enabled,
		"random", c.view.prefs.RandomCurrency,
		"target", c.view.target)

	if rateErr != nil {
		c.logger.Debug("Rates unavailable, staying pending", "error", rateErr)
		return PassStats{}, fmt.Errorf("%w: %w", common.ErrRatesUnavailable, rateErr)
	}
	c.setRates(snapshot)

	if !c.view.prefs.Enabled {
		return PassStats{}, nil
	}
	return c.fullPass("initial"), nil
}

// Handle reacts to one event and returns the statistics of the pass it ran.
func (c *Controller) Handle(ctx context.Context, ev Event) PassStats {
	switch ev.Kind {
	case EventPreferences:
		return c.handlePreferences(ctx, ev)
	case EventRates:
		return c.handleRates(ctx, ev)
	}

	act := plan(ev, c.state, c.view.prefs.Enabled, c.doc.Root(), c.registry)
	if act.full {
		return c.fullPass(ev.label())
	}

	var stats PassStats
	for _, root := range act.roots {
		stats.add(c.processRoot(root, false))
	}
	if len(act.roots) > 0 {
		c.logger.Debug("Processed mutation batch",
			"roots", len(act.roots),
			"converted", stats.Converted)
		c.recorder.ObservePass(PassIncremental, stats)
	}
	return stats
}

// Settle feeds the pending mutation records of the document back into the
// controller until none remain or the round limit is reached. Annotations
// written by the controller produce records too; they are excluded from
// reprocessing, so the loop converges.
func (c *Controller) Settle(ctx context.Context) PassStats {
	var stats PassStats
	for round := 0; round < c.cfg.MaxMutationRounds; round++ {
		records := c.doc.TakeRecords()
		if len(records) == 0 {
			return stats
		}
		stats.add(c.Handle(ctx, Event{Kind: EventMutations, Mutations: records}))
	}
	if pending := len(c.doc.TakeRecords()); pending > 0 {
		c.logger.Warn("Mutation rounds exhausted", "pending", pending)
	}
	return stats
}

// Run loads the view and then processes events, timed re-passes and
// resulting mutations one at a time until ctx is cancelled or events closes.
func (c *Controller) Run(ctx context.Context, events <-chan Event) {
	if c.state == StateUninitialized {
		if _, err := c.Load(ctx); err != nil {
			c.logger.Info("View is waiting for rates", "error", err)
		}
		c.Settle(ctx)
	}

	timers := make(chan Event, len(c.cfg.RepassDelays))
	for _, d := range c.cfg.RepassDelays {
		label := "delayed-" + d.String()
		t := time.AfterFunc(d, func() {
			timers <- Event{Kind: EventTimer, Label: label}
		})
		defer t.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("View shutting down")
			return
		case ev := <-timers:
			c.Handle(ctx, ev)
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Handle(ctx, ev)
		}
		c.Settle(ctx)
	}
}

func (c *Controller) handlePreferences(ctx context.Context, ev Event) PassStats {
	prev := c.view.prefs

	next := prev
	if ev.Preferences != nil {
		next = *ev.Preferences
	} else {
		p, err := c.prefs.Load(ctx)
		if err != nil {
			c.logger.Warn("Failed to reload preferences", "error", err)
			return PassStats{}
		}
		next = p
	}

	structural := next.Enabled != prev.Enabled ||
		next.TargetCurrency != prev.TargetCurrency ||
		next.RandomCurrency != prev.RandomCurrency

	if !structural {
		c.view.prefs = next
		c.annotator.ApplyViewFlags(c.doc.Body(), next.Hidden, next.HideOriginal)
		return PassStats{}
	}

	c.applyPreferences(next)

	if !next.Enabled {
		removed := c.annotator.RemoveAll()
		shown := c.annotator.ShowAll()
		c.logger.Info("Disabled, annotations removed", "removed", removed, "shown", shown)
		return PassStats{}
	}

	if c.state == StateRatesPending {
		return c.handleRates(ctx, Event{Kind: EventRates})
	}
	if c.state != StateActive {
		return PassStats{}
	}
	return c.fullPass("preferences")
}

func (c *Controller) handleRates(ctx context.Context, ev Event) PassStats {
	if c.state == StateUninitialized {
		return PassStats{}
	}

	var snapshot model.RateSnapshot
	if ev.Rates != nil {
		snapshot = *ev.Rates
	} else {
		s, err := c.rates.GetRates(ctx, c.cfg.Base)
		if err != nil {
			c.logger.Debug("Rate refresh failed, keeping current table", "error", err)
			return PassStats{}
		}
		snapshot = s
	}
	if len(snapshot.Rates) == 0 {
		return PassStats{}
	}

	c.setRates(snapshot)
	if !c.view.prefs.Enabled {
		return PassStats{}
	}
	return c.fullPass("rates")
}

func (c *Controller) setRates(s model.RateSnapshot) {
	c.view.rates = s.Rates
	c.state = StateActive
}

func (c *Controller) applyPreferences(p model.Preferences) {
	c.view.prefs = p

	target := strings.ToUpper(p.TargetCurrency)
	if !currency.IsSupported(target) {
		target = model.DefaultPreferences().TargetCurrency
	}
	if p.RandomCurrency {
		candidates := lo.Filter(currency.Codes(), func(code string, _ int) bool {
			return code != "JPY"
		})
		target = candidates[c.cfg.Rand(len(candidates))]
	}
	c.view.target = target
}

// fullPass removes every annotation, shows hidden elements and reprocesses
// the body.
func (c *Controller) fullPass(label string) PassStats {
	if c.state != StateActive || !c.view.prefs.Enabled {
		return PassStats{}
	}

	c.annotator.RemoveAll()
	c.annotator.ShowAll()
	body := c.doc.Body()
	c.annotator.ApplyViewFlags(body, c.view.prefs.Hidden, c.view.prefs.HideOriginal)

	stats := c.processRoot(body, true)
	c.logger.Debug("Full pass complete", "trigger", label)
	c.recorder.ObservePass(PassFull, stats)
	return stats
}

// processRoot runs the three strategies under root. When full is set and no
// candidate converted, the target is assumed to be the page currency and
// the pass is retried once per view with the other common currency.
func (c *Controller) processRoot(root *html.Node, full bool) PassStats {
	regions := c.classifier.Classify(root)
	stats := PassStats{
		Target:    c.view.target,
		TextUnits: len(regions.Text),
		Merged:    len(regions.Merged),
		Split:     len(regions.Split),
	}

	for _, n := range regions.Text {
		c.guard("text", func() error {
			converted, err := c.convertText(n)
			stats.Converted += converted
			return err
		})
	}

	// innermost first, so outer price containers see an annotated descendant
	for i := len(regions.Merged) - 1; i >= 0; i-- {
		el := regions.Merged[i]
		c.guard("merged", func() error {
			ok, err := c.convertMerged(el)
			if ok {
				stats.Converted++
			}
			return err
		})
	}

	for _, el := range regions.Split {
		c.guard("split", func() error {
			ok, err := c.convertSplit(el)
			if ok {
				stats.Converted++
			}
			return err
		})
	}

	stats.Hidden = c.hidePoints(root)

	if !full {
		return stats
	}

	c.logger.Info("Processed document",
		"target", stats.Target,
		"text_units", stats.TextUnits,
		"merged", stats.Merged,
		"split", stats.Split,
		"converted", stats.Converted,
		"rate_keys", len(c.view.rates))

	if stats.Converted == 0 && regions.Candidates() && !c.view.fallbackAttempted {
		c.view.fallbackAttempted = true
		from := c.view.target
		fallback := "USD"
		if from == "USD" {
			fallback = "EUR"
		}
		c.logger.Info("No conversions, target likely matches page currency",
			"target", from,
			"fallback", fallback)
		c.recorder.ObserveFallback(from, fallback)
		c.view.target = fallback

		retry := c.processRoot(root, true)
		retry.FellBack = true
		// points hidden by the first attempt stay hidden
		retry.Hidden += stats.Hidden
		return retry
	}

	return stats
}

// guard runs fn for one region. Errors and panics are logged and never
// abort the pass.
func (c *Controller) guard(strategy string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Region processing panicked", "strategy", strategy, "panic", r)
			c.recorder.ObserveRegionFailure(strategy)
		}
	}()

	if err := fn(); err != nil && !errors.Is(err, annotate.ErrUnresolvableRate) {
		c.logger.Warn("Region processing failed", "strategy", strategy, "error", err)
		c.recorder.ObserveRegionFailure(strategy)
	}
}

// convertText annotates every detection with a known rate in a text unit,
// last to first, so earlier offsets stay valid.
func (c *Controller) convertText(n *html.Node) (int, error) {
	if n.Parent == nil {
		return 0, nil
	}

	detections := c.detector.Detect(n.Data)
	converted := 0
	unit := n

	for i := len(detections) - 1; i >= 0 && unit != nil; i-- {
		d := detections[i]
		rate, ok := c.view.rates.CrossRate(d.CurrencyCode, c.view.target)
		if !ok {
			continue
		}
		before, err := c.annotator.AnnotateText(unit, d, c.view.target, rate)
		if err != nil {
			return converted, err
		}
		converted++
		unit = before
	}

	return converted, nil
}

func (c *Controller) convertMerged(el *html.Node) (bool, error) {
	if c.registry.IsAnnotated(el) || c.registry.ContainsAnnotated(el) {
		return false, nil
	}

	text := strings.TrimSpace(page.RenderedText(el))
	if detections := c.detector.Detect(text); len(detections) > 0 {
		return c.convertElement(el, detections[0].Amount, detections[0].CurrencyCode)
	}

	raw, ok := page.Attr(el, "data-price")
	if !ok || raw == "" {
		raw, ok = page.Attr(el, "content")
	}
	if !ok || raw == "" {
		return false, nil
	}
	code, ok := currency.GuessFromText(text)
	if !ok {
		return false, nil
	}
	value, err := parseAttributeAmount(raw, code)
	if err != nil {
		return false, nil
	}
	return c.convertElement(el, value, code)
}

func (c *Controller) convertSplit(el *html.Node) (bool, error) {
	if c.registry.IsAnnotated(el) || c.registry.ContainsAnnotated(el) {
		return false, nil
	}

	detections := c.detector.Detect(strings.TrimSpace(page.RenderedText(el)))
	if len(detections) == 0 {
		return false, nil
	}
	return c.convertElement(el, detections[0].Amount, detections[0].CurrencyCode)
}

func (c *Controller) convertElement(el *html.Node, value float64, code string) (bool, error) {
	rate, ok := c.view.rates.CrossRate(code, c.view.target)
	if !ok {
		return false, nil
	}
	if err := c.annotator.AnnotateElement(el, value, code, c.view.target, rate); err != nil {
		return false, err
	}
	return true, nil
}

func (ev Event) label() string {
	if ev.Label != "" {
		return ev.Label
	}
	return ev.Kind.String()
}

// parseAttributeAmount reads a machine-readable price attribute such as
// data-price="1234.5".
func parseAttributeAmount(raw, code string) (float64, error) {
	return amount.Parse(strings.TrimSpace(raw), code)
}
