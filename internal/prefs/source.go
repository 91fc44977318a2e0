package prefs

import (
	"context"
	"strings"

	"github.com/Veraticus/fxlens/internal/model"
)

// Source supplies preference snapshots to a view.
type Source interface {
	Load(ctx context.Context) (model.Preferences, error)
}

// Static is a Source that always returns the same preferences.
type Static model.Preferences

// Load returns the stored snapshot.
func (s Static) Load(context.Context) (model.Preferences, error) {
	return model.Preferences(s), nil
}

// Override wraps a Source and pins the target currency. An empty target
// leaves the wrapped preferences untouched.
type Override struct {
	Source Source
	Target string
}

// Load returns the wrapped preferences with the pinned target applied.
func (o Override) Load(ctx context.Context) (model.Preferences, error) {
	p, err := o.Source.Load(ctx)
	if err != nil {
		return p, err
	}
	if target := strings.ToUpper(strings.TrimSpace(o.Target)); target != "" {
		p.TargetCurrency = target
		p.RandomCurrency = false
		p.Enabled = true
	}
	return p, nil
}
