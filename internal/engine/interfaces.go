package engine

import (
	"context"

	"github.com/Veraticus/fxlens/internal/model"
)

// RateProvider supplies exchange rate tables.
type RateProvider interface {
	GetRates(ctx context.Context, base string) (model.RateSnapshot, error)
}

// PreferenceSource supplies a snapshot of the user preferences.
type PreferenceSource interface {
	Load(ctx context.Context) (model.Preferences, error)
}

// Detector finds currency amounts in a piece of text.
type Detector interface {
	Detect(text string) []model.Detection
}

// Recorder observes pass outcomes.
type Recorder interface {
	ObservePass(kind PassKind, stats PassStats)
	ObserveFallback(from, to string)
	ObserveRegionFailure(strategy string)
}

type nopRecorder struct{}

func (nopRecorder) ObservePass(PassKind, PassStats)  {}
func (nopRecorder) ObserveFallback(string, string) {}
func (nopRecorder) ObserveRegionFailure(string)    {}
