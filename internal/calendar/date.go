package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
)

// dateFieldWidths is the exact digit count of year, month and day
var dateFieldWidths = [3]int{4, 2, 2}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseDate reads a YYYY-MM-DD value. A trailing time-of-day introduced by 'T'
// or a space is discarded. The string is split on '-' directly so no timezone
// can shift the day.
func ParseDate(s string) (civil.Date, error) {
	raw := strings.TrimSpace(s)
	if i := strings.IndexAny(raw, "T "); i >= 0 {
		raw = raw[:i]
	}

	parts := strings.Split(raw, "-")
	if len(parts) != 3 {
		return civil.Date{}, fmt.Errorf("%w: %q", domain.ErrMalformedDate, s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		if len(p) != dateFieldWidths[i] || !allDigits(p) {
			return civil.Date{}, fmt.Errorf("%w: %q", domain.ErrMalformedDate, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return civil.Date{}, fmt.Errorf("%w: %q", domain.ErrMalformedDate, s)
		}
		nums[i] = n
	}

	d := civil.Date{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]}
	if !d.IsValid() {
		return civil.Date{}, fmt.Errorf("%w: %q", domain.ErrMalformedDate, s)
	}
	return d, nil
}

// FormatDate renders d as YYYY-MM-DD
func FormatDate(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsSunday reports whether d falls on a Sunday
func IsSunday(d civil.Date) bool {
	return d.In(time.UTC).Weekday() == time.Sunday
}

// SameDay compares two dates through their YYYY-MM-DD form
func SameDay(a, b civil.Date) bool {
	return FormatDate(a) == FormatDate(b)
}
