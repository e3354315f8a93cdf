package calendar

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MonthDay is a day of the year without the year
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay reads an "MM-DD" value
func ParseMonthDay(s string) (MonthDay, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return MonthDay{}, fmt.Errorf("invalid holiday %q: want MM-DD", s)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil || m < 1 || m > 12 {
		return MonthDay{}, fmt.Errorf("invalid holiday month in %q", s)
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil || d < 1 || d > 31 {
		return MonthDay{}, fmt.Errorf("invalid holiday day in %q", s)
	}
	return MonthDay{Month: time.Month(m), Day: d}, nil
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

// HolidayTable lists non-collection days per year
type HolidayTable map[int][]MonthDay

// mustTable builds a table entry from MM-DD literals
func mustTable(days ...string) []MonthDay {
	out := make([]MonthDay, 0, len(days))
	for _, s := range days {
		md, err := ParseMonthDay(s)
		if err != nil {
			panic(err)
		}
		out = append(out, md)
	}
	return out
}

// DefaultHolidays returns the built-in national holiday tables (Colombia)
func DefaultHolidays() HolidayTable {
	return HolidayTable{
		2025: mustTable(
			"01-01", "01-06", "03-24", "04-17", "04-18", "05-01", "06-02", "06-23", "07-01",
			"07-20", "08-07", "08-18", "10-13", "11-03", "11-17", "12-08", "12-25",
		),
		2026: mustTable(
			"01-01", "01-12", "03-23", "04-02", "04-03", "05-01", "05-18", "06-08", "06-15",
			"06-29", "07-20", "08-07", "08-17", "10-12", "11-02", "11-16", "12-08", "12-25",
		),
	}
}

// holidayFile is the YAML shape of HOLIDAYS_FILE:
//
//	years:
//	  2027: ["01-01", "01-11", ...]
type holidayFile struct {
	Years map[int][]string `yaml:"years"`
}

// LoadHolidayFile reads a YAML holiday table. Years it lists replace the
// matching years in base; other years in base are kept.
func LoadHolidayFile(path string, base HolidayTable) (HolidayTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holiday file: %w", err)
	}
	return ParseHolidayYAML(data, base)
}

// ParseHolidayYAML merges a YAML holiday document over base
func ParseHolidayYAML(data []byte, base HolidayTable) (HolidayTable, error) {
	var f holidayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse holiday file: %w", err)
	}

	out := make(HolidayTable, len(base)+len(f.Years))
	for y, days := range base {
		out[y] = append([]MonthDay(nil), days...)
	}
	for y, days := range f.Years {
		parsed := make([]MonthDay, 0, len(days))
		for _, s := range days {
			md, err := ParseMonthDay(s)
			if err != nil {
				return nil, fmt.Errorf("year %d: %w", y, err)
			}
			parsed = append(parsed, md)
		}
		out[y] = parsed
	}
	return out, nil
}
