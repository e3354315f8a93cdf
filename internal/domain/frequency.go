package domain

// Frequency is how often a collector visits the borrower
type Frequency string

const (
	FrequencyDaily    Frequency = "diario"
	FrequencyWeekly   Frequency = "semanal"
	FrequencyBiweekly Frequency = "quincenal"
)

// Frequencies lists every supported frequency in display order
var Frequencies = []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyBiweekly}

// IsValid reports whether f is one of the supported frequencies
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly:
		return true
	}
	return false
}

// StepDays returns the calendar days between two consecutive collections.
// Unknown frequencies fall back to a daily step.
func (f Frequency) StepDays() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 15
	default:
		return 1
	}
}

// ParseFrequency validates a wire value
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.IsValid() {
		return "", ErrInvalidFrequency
	}
	return f, nil
}
