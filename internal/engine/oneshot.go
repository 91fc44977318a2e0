package engine

import (
	"context"

	"github.com/Veraticus/fxlens/internal/page"
)

// AnnotateDocument runs a view over doc without timers: it loads, settles the
// mutations its own writes produced and returns the controller together with
// the combined statistics.
func AnnotateDocument(ctx context.Context, doc *page.Document, rates RateProvider, prefs PreferenceSource, cfg Config, rec Recorder) (*Controller, PassStats, error) {
	c := NewWithConfig(doc, rates, prefs, cfg)
	if rec != nil {
		c.SetRecorder(rec)
	}

	stats, err := c.Load(ctx)
	if err != nil {
		return c, stats, err
	}
	stats.add(c.Settle(ctx))
	return c, stats, nil
}
