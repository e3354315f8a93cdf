package calendar

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
)

// MaxBusinessDaySearch bounds the forward search for a business day
const MaxBusinessDaySearch = 14

// UnknownYearPolicy decides what happens for a year with no holiday table
type UnknownYearPolicy string

const (
	// UnknownYearNone treats the year as having no holidays (Sundays still skip)
	UnknownYearNone UnknownYearPolicy = "none"
	// UnknownYearFail refuses to produce dates in the year
	UnknownYearFail UnknownYearPolicy = "fail"
)

// ParseUnknownYearPolicy validates a configuration value
func ParseUnknownYearPolicy(s string) (UnknownYearPolicy, error) {
	switch p := UnknownYearPolicy(s); p {
	case UnknownYearNone, UnknownYearFail:
		return p, nil
	case "":
		return UnknownYearNone, nil
	}
	return "", fmt.Errorf("unknown holiday policy %q", s)
}

// Calendar answers which dates are collection days. It is immutable after New
// and safe for concurrent use.
type Calendar struct {
	holidays map[int]map[MonthDay]struct{}
	policy   UnknownYearPolicy
	location *time.Location
}

// New builds a Calendar. loc is the timezone used to turn the wall clock into
// today's date; nil means UTC.
func New(table HolidayTable, policy UnknownYearPolicy, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if policy == "" {
		policy = UnknownYearNone
	}
	h := make(map[int]map[MonthDay]struct{}, len(table))
	for year, days := range table {
		set := make(map[MonthDay]struct{}, len(days))
		for _, md := range days {
			set[md] = struct{}{}
		}
		h[year] = set
	}
	return &Calendar{holidays: h, policy: policy, location: loc}
}

// Default returns a calendar with the built-in holidays, lenient policy and UTC
func Default() *Calendar {
	return New(DefaultHolidays(), UnknownYearNone, time.UTC)
}

// Location returns the timezone used by Today
func (c *Calendar) Location() *time.Location {
	return c.location
}

// Today returns the calendar date of now in the configured location
func (c *Calendar) Today(now time.Time) civil.Date {
	return civil.DateOf(now.In(c.location))
}

// Covers reports whether a holiday table exists for year
func (c *Calendar) Covers(year int) bool {
	_, ok := c.holidays[year]
	return ok
}

// IsHoliday reports whether d is a listed holiday. Years without a table have no holidays.
func (c *Calendar) IsHoliday(d civil.Date) bool {
	days, ok := c.holidays[d.Year]
	if !ok {
		return false
	}
	_, hit := days[MonthDay{Month: d.Month, Day: d.Day}]
	return hit
}

// IsBusinessDay reports whether collections may happen on d
func (c *Calendar) IsBusinessDay(d civil.Date) bool {
	return !IsSunday(d) && !c.IsHoliday(d)
}

func (c *Calendar) checkYear(d civil.Date) error {
	if c.policy == UnknownYearFail && !c.Covers(d.Year) {
		return fmt.Errorf("%w %d", domain.ErrCalendarYearUnknown, d.Year)
	}
	return nil
}

// NextBusinessDayOnOrAfter returns d when it is a business day, otherwise the
// first business day after it. The search gives up after MaxBusinessDaySearch
// steps and returns the last candidate.
func (c *Calendar) NextBusinessDayOnOrAfter(d civil.Date) (civil.Date, error) {
	candidate := d
	for attempts := 0; ; attempts++ {
		if err := c.checkYear(candidate); err != nil {
			return civil.Date{}, err
		}
		if c.IsBusinessDay(candidate) || attempts == MaxBusinessDaySearch {
			return candidate, nil
		}
		candidate = candidate.AddDays(1)
	}
}

// NextCollectionDate steps from by the frequency's interval and snaps forward
// to a business day
func (c *Calendar) NextCollectionDate(from civil.Date, f domain.Frequency) (civil.Date, error) {
	if !f.IsValid() {
		return civil.Date{}, domain.ErrInvalidFrequency
	}
	return c.NextBusinessDayOnOrAfter(from.AddDays(f.StepDays()))
}

// FirstCollectionDate is the first due date of a loan issued today
func (c *Calendar) FirstCollectionDate(today civil.Date, f domain.Frequency) (civil.Date, error) {
	return c.NextCollectionDate(today, f)
}
