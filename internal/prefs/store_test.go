package prefs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/fxlens/internal/model"
	"github.com/Veraticus/fxlens/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.SQLiteStorage) {
	t.Helper()
	db, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return NewStore(db), db
}

func TestStore_InitDefaults(t *testing.T) {
	ctx := context.Background()
	store, db := newTestStore(t)

	require.NoError(t, db.SetPreference(ctx, model.PrefTargetCurrency, `"GBP"`))

	written, err := store.InitDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, written)

	written, err = store.InitDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, written)

	prefs, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GBP", prefs.TargetCurrency)
	assert.True(t, prefs.Enabled)
	assert.False(t, prefs.Hidden)
	assert.True(t, prefs.HideOriginal)
	assert.True(t, prefs.RandomCurrency)

	raw, err := db.GetPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, "true", raw[model.PrefEnabled])
	assert.Equal(t, `"GBP"`, raw[model.PrefTargetCurrency])
}

func TestStore_LoadEmptyUsesDefaults(t *testing.T) {
	store, _ := newTestStore(t)

	prefs, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPreferences(), prefs)
}

func TestStore_LoadIgnoresCorruptValues(t *testing.T) {
	ctx := context.Background()
	store, db := newTestStore(t)
	require.NoError(t, db.SetPreference(ctx, model.PrefEnabled, "not-json"))
	require.NoError(t, db.SetPreference(ctx, "legacy", "1"))

	prefs, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, prefs.Enabled)
}

func TestStore_Set(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
		check   func(t *testing.T, p model.Preferences)
	}{
		{
			name:  "disable",
			key:   model.PrefEnabled,
			value: "false",
			check: func(t *testing.T, p model.Preferences) { assert.False(t, p.Enabled) },
		},
		{
			name:  "target currency is upper-cased",
			key:   model.PrefTargetCurrency,
			value: " jpy ",
			check: func(t *testing.T, p model.Preferences) { assert.Equal(t, "JPY", p.TargetCurrency) },
		},
		{
			name:  "hide converted",
			key:   model.PrefHidden,
			value: "1",
			check: func(t *testing.T, p model.Preferences) { assert.True(t, p.Hidden) },
		},
		{
			name:    "unsupported currency",
			key:     model.PrefTargetCurrency,
			value:   "XYZ",
			wantErr: ErrInvalidValue,
		},
		{
			name:    "non-boolean flag",
			key:     model.PrefRandomCurrency,
			value:   "sometimes",
			wantErr: ErrInvalidValue,
		},
		{
			name:    "unknown key",
			key:     "theme",
			value:   "dark",
			wantErr: ErrUnknownKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			var notified []model.Preferences
			store.OnChange(func(p model.Preferences) { notified = append(notified, p) })

			prefs, err := store.Set(context.Background(), tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, notified)
				return
			}
			require.NoError(t, err)
			tt.check(t, prefs)
			require.Len(t, notified, 1)
			assert.Equal(t, prefs, notified[0])
		})
	}
}

func TestStore_Reload(t *testing.T) {
	ctx := context.Background()
	store, db := newTestStore(t)
	other := NewStore(db)

	var notified []model.Preferences
	store.OnChange(func(p model.Preferences) { notified = append(notified, p) })

	changed, err := store.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "first reload only records the snapshot")

	require.NoError(t, db.SaveRates(ctx, model.RateSnapshot{Base: "EUR", FetchedAt: time.Now(), Rates: model.RateTable{"EUR": 1}}))
	changed, err = store.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, notified)

	_, err = other.Set(ctx, model.PrefTargetCurrency, "chf")
	require.NoError(t, err)
	changed, err = store.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, notified, 1)
	assert.Equal(t, "CHF", notified[0].TargetCurrency)

	// a local Set moves the snapshot, so reloading afterwards is quiet
	_, err = store.Set(ctx, model.PrefHidden, "true")
	require.NoError(t, err)
	changed, err = store.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, notified, 2)
}

func TestGet(t *testing.T) {
	prefs := model.DefaultPreferences()
	for _, key := range Keys() {
		value, err := Get(prefs, key)
		require.NoError(t, err)
		assert.NotEmpty(t, value)
	}

	_, err := Get(prefs, "nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestOverride(t *testing.T) {
	base := Static(model.DefaultPreferences())

	prefs, err := Override{Source: base, Target: "gbp"}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GBP", prefs.TargetCurrency)
	assert.False(t, prefs.RandomCurrency)

	prefs, err = Override{Source: base}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPreferences(), prefs)
}
