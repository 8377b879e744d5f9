package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a reporting month. Grade records store the month by its upper-case English name.
type Period struct {
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
}

func NewPeriod(month time.Month, year int) Period {
	return Period{Month: month, Year: year}
}

// MonthName returns the stored form of the period's month, e.g. "JANUARY".
func (p Period) MonthName() string {
	return MonthName(p.Month)
}

func (p Period) Valid() bool {
	return p.Month >= time.January && p.Month <= time.December && p.Year > 0
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.MonthName(), p.Year)
}

func MonthName(m time.Month) string {
	return strings.ToUpper(m.String())
}

// ParseMonth accepts an English month name (any case, full or 3-letter) or a month number.
func ParseMonth(s string) (time.Month, error) {
	s = CleanString(s, true /* lower */)
	if s == "" {
		return 0, fmt.Errorf("empty month")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("invalid month %q", s)
		}
		return time.Month(n), nil
	}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s == name || s == name[:3] {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid month %q", s)
}
