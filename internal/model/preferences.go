package model

// Preferences is the read-only snapshot of user settings consumed by a view.
type Preferences struct {
	TargetCurrency string `json:"targetCurrency"`
	Enabled        bool   `json:"enabled"`
	Hidden         bool   `json:"hidden"`
	HideOriginal   bool   `json:"hideOriginal"`
	RandomCurrency bool   `json:"randomCurrency"`
}

// Preference keys as persisted by the preference store.
const (
	PrefEnabled        = "enabled"
	PrefHidden         = "hidden"
	PrefHideOriginal   = "hideOriginal"
	PrefTargetCurrency = "targetCurrency"
	PrefRandomCurrency = "randomCurrency"
)

// DefaultPreferences returns the settings used for keys that were never stored.
func DefaultPreferences() Preferences {
	return Preferences{
		Enabled:        true,
		Hidden:         false,
		HideOriginal:   true,
		TargetCurrency: "USD",
		RandomCurrency: true,
	}
}
