// Package lunation provides the calendar month arithmetic behind the
// monthly digest cycle. A Lunation names one calendar month, the unit a
// digest file covers.
package lunation

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidLunation indicates a year/month pair outside the calendar.
var ErrInvalidLunation = errors.New("invalid lunation")

// Lunation identifies one calendar month.
type Lunation struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1..12
}

// New validates a year/month pair and returns it as a Lunation.
func New(year, month int) (Lunation, error) {
	l := Lunation{Year: year, Month: month}
	if !l.Valid() {
		return Lunation{}, fmt.Errorf("%w: year %d month %d", ErrInvalidLunation, year, month)
	}
	return l, nil
}

// Of returns the lunation containing the given time.
func Of(t time.Time) Lunation {
	return Lunation{Year: t.Year(), Month: int(t.Month())}
}

// Previous returns the lunation immediately before the given time.
// On a January date the year decrements and the month wraps to December.
func Previous(t time.Time) Lunation {
	return Of(t).Previous()
}

// Previous returns the calendar month immediately preceding l.
func (l Lunation) Previous() Lunation {
	if l.Month == 1 {
		return Lunation{Year: l.Year - 1, Month: 12}
	}
	return Lunation{Year: l.Year, Month: l.Month - 1}
}

// Valid reports whether l denotes a real calendar month.
func (l Lunation) Valid() bool {
	return l.Year > 0 && l.Month >= 1 && l.Month <= 12
}

// String renders l as "YYYY-MM" with a zero-padded month.
func (l Lunation) String() string {
	return fmt.Sprintf("%04d-%02d", l.Year, l.Month)
}

// Parse reads a "YYYY-MM" string produced by String.
func Parse(s string) (Lunation, error) {
	var year, month int
	if _, err := fmt.Sscanf(s, "%d-%d", &year, &month); err != nil {
		return Lunation{}, fmt.Errorf("%w: %q", ErrInvalidLunation, s)
	}
	return New(year, month)
}

// FileName returns the digest file name for l, e.g. "RSAA_Papers_2024_3.txt".
// The month is unpadded, matching the historical file names.
func (l Lunation) FileName(prefix string) string {
	return fmt.Sprintf("%s_%d_%d.txt", prefix, l.Year, l.Month)
}
