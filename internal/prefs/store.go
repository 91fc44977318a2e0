// Package prefs persists user preferences and notifies subscribers of changes.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/Veraticus/fxlens/internal/currency"
	"github.com/Veraticus/fxlens/internal/model"
)

var (
	// ErrUnknownKey is returned for keys outside the preference set.
	ErrUnknownKey = errors.New("unknown preference key")
	// ErrInvalidValue is returned when a value does not fit its key.
	ErrInvalidValue = errors.New("invalid preference value")
)

// Backend is the key/value persistence used by Store. Values are JSON.
type Backend interface {
	GetPreferences(ctx context.Context) (map[string]string, error)
	SetPreference(ctx context.Context, key, value string) error
	SetPreferenceIfMissing(ctx context.Context, key, value string) (bool, error)
}

// Store reads and writes preferences through a Backend.
type Store struct {
	backend     Backend
	last        *model.Preferences
	subscribers []func(model.Preferences)
	mu          sync.Mutex
}

// NewStore creates a store over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Keys returns the preference keys in display order.
func Keys() []string {
	return []string{
		model.PrefEnabled,
		model.PrefHidden,
		model.PrefHideOriginal,
		model.PrefTargetCurrency,
		model.PrefRandomCurrency,
	}
}

// InitDefaults stores the default for every key that has no value yet and
// returns how many keys were written.
func (s *Store) InitDefaults(ctx context.Context) (int, error) {
	defaults, err := encode(model.DefaultPreferences())
	if err != nil {
		return 0, err
	}

	written := 0
	for _, key := range Keys() {
		inserted, err := s.backend.SetPreferenceIfMissing(ctx, key, defaults[key])
		if err != nil {
			return written, fmt.Errorf("initializing preference %s: %w", key, err)
		}
		if inserted {
			written++
		}
	}
	if written > 0 {
		slog.Debug("Initialized preference defaults", "count", written)
	}
	return written, nil
}

// Load returns the stored preferences with defaults for missing keys.
func (s *Store) Load(ctx context.Context) (model.Preferences, error) {
	stored, err := s.backend.GetPreferences(ctx)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("loading preferences: %w", err)
	}

	prefs := model.DefaultPreferences()
	for key, raw := range stored {
		if err := apply(&prefs, key, raw); err != nil {
			slog.Warn("Ignoring stored preference", "key", key, "error", err)
		}
	}
	return prefs, nil
}

// Set validates and stores one preference given in its textual form, then
// notifies subscribers with the resulting snapshot.
func (s *Store) Set(ctx context.Context, key, value string) (model.Preferences, error) {
	encoded, err := normalize(key, value)
	if err != nil {
		return model.Preferences{}, err
	}

	if err := s.backend.SetPreference(ctx, key, encoded); err != nil {
		return model.Preferences{}, fmt.Errorf("storing preference %s: %w", key, err)
	}

	prefs, err := s.Load(ctx)
	if err != nil {
		return model.Preferences{}, err
	}
	s.mu.Lock()
	s.last = &prefs
	s.mu.Unlock()
	s.notify(prefs)
	return prefs, nil
}

// Reload re-reads the backend and notifies subscribers when the preferences
// differ from the last snapshot seen by Set or Reload. It picks up writes
// made by other processes sharing the backend. The first call only records
// the snapshot.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	prefs, err := s.Load(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	changed := s.last != nil && *s.last != prefs
	s.last = &prefs
	s.mu.Unlock()

	if changed {
		slog.Debug("Preferences changed", "target", prefs.TargetCurrency, "enabled", prefs.Enabled)
		s.notify(prefs)
	}
	return changed, nil
}

// OnChange registers fn to receive the snapshot after every successful Set
// and every Reload that found a change. fn runs on the caller's goroutine.
func (s *Store) OnChange(fn func(model.Preferences)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) notify(prefs model.Preferences) {
	s.mu.Lock()
	subs := make([]func(model.Preferences), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(prefs)
	}
}

// Get returns the textual value of key from prefs.
func Get(prefs model.Preferences, key string) (string, error) {
	switch key {
	case model.PrefEnabled:
		return strconv.FormatBool(prefs.Enabled), nil
	case model.PrefHidden:
		return strconv.FormatBool(prefs.Hidden), nil
	case model.PrefHideOriginal:
		return strconv.FormatBool(prefs.HideOriginal), nil
	case model.PrefTargetCurrency:
		return prefs.TargetCurrency, nil
	case model.PrefRandomCurrency:
		return strconv.FormatBool(prefs.RandomCurrency), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

func normalize(key, value string) (string, error) {
	value = strings.TrimSpace(value)

	switch key {
	case model.PrefEnabled, model.PrefHidden, model.PrefHideOriginal, model.PrefRandomCurrency:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s must be true or false, got %q", ErrInvalidValue, key, value)
		}
		return strconv.FormatBool(b), nil
	case model.PrefTargetCurrency:
		code := strings.ToUpper(value)
		if !currency.IsSupported(code) {
			return "", fmt.Errorf("%w: unsupported currency %q", ErrInvalidValue, value)
		}
		encoded, err := json.Marshal(code)
		if err != nil {
			return "", fmt.Errorf("encoding %s: %w", key, err)
		}
		return string(encoded), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

func apply(prefs *model.Preferences, key, raw string) error {
	var target any
	switch key {
	case model.PrefEnabled:
		target = &prefs.Enabled
	case model.PrefHidden:
		target = &prefs.Hidden
	case model.PrefHideOriginal:
		target = &prefs.HideOriginal
	case model.PrefTargetCurrency:
		target = &prefs.TargetCurrency
	case model.PrefRandomCurrency:
		target = &prefs.RandomCurrency
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err)
	}
	return nil
}

func encode(prefs model.Preferences) (map[string]string, error) {
	out := make(map[string]string, len(Keys()))
	for _, key := range Keys() {
		text, err := Get(prefs, key)
		if err != nil {
			return nil, err
		}
		value, err := normalize(key, text)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}
