package model

// Detection is a confirmed (currency, amount, range) triple found in one text unit.
// Start and End are byte offsets into the scanned text with Start < End.
type Detection struct {
	MatchedText  string
	CurrencyCode string
	RawAmount    string
	Amount       float64
	Start        int
	End          int
}

// Overlaps reports whether the detection intersects the half-open range [start, end).
func (d Detection) Overlaps(start, end int) bool {
	return start < d.End && end > d.Start
}
