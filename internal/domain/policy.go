package domain

// CollectionPolicy holds the business numbers that changed between releases:
// the installment count per frequency and how many pending installments still
// allow a renewal. Both are injected rather than hardcoded.
type CollectionPolicy struct {
	Installments      map[Frequency]int
	RenewalMaxPending int
}

// DefaultCollectionPolicy returns the 24/4/2 table with a renewal threshold of 3
func DefaultCollectionPolicy() CollectionPolicy {
	return CollectionPolicy{
		Installments: map[Frequency]int{
			FrequencyDaily:    24,
			FrequencyWeekly:   4,
			FrequencyBiweekly: 2,
		},
		RenewalMaxPending: 3,
	}
}

// Validate checks that every frequency has a positive count and the threshold is not negative
func (p CollectionPolicy) Validate() error {
	for _, f := range Frequencies {
		if n, ok := p.Installments[f]; !ok || n < 1 {
			return ErrInvalidPolicy
		}
	}
	if p.RenewalMaxPending < 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// InstallmentCount returns the configured count for f
func (p CollectionPolicy) InstallmentCount(f Frequency) (int, error) {
	n, ok := p.Installments[f]
	if !ok || n < 1 {
		return 0, ErrInvalidFrequency
	}
	return n, nil
}
