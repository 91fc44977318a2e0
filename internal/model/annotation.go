package model

// AnnotationMode distinguishes how a conversion was materialised on the page.
type AnnotationMode int

const (
	// ModeReplacement wraps the matched substring of a text unit in a marker element.
	ModeReplacement AnnotationMode = iota
	// ModeAttribute stores the converted value as metadata on an existing element.
	ModeAttribute
)

func (m AnnotationMode) String() string {
	switch m {
	case ModeReplacement:
		return "replacement"
	case ModeAttribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// Annotation describes one conversion applied to the page.
type Annotation struct {
	Original     string
	Rendered     string
	FromCurrency string
	ToCurrency   string
	Amount       float64
	Converted    float64
	Mode         AnnotationMode
}
