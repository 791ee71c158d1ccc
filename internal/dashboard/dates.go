package dashboard

import (
	"math"
	"time"
)

// Date represents a calendar date
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateOf takes the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}
}

// DateIn is the calendar date of t as seen from loc. A value at midnight of its
// own location is a date-only value and keeps its calendar date.
func DateIn(t time.Time, loc *time.Location) Date {
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return DateOf(t)
	}
	return DateOf(t.In(loc))
}

// Before reports whether d falls on an earlier day than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// SameMonth reports whether both dates are in the same calendar month and year.
func (d Date) SameMonth(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month
}

func (d Date) time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// RentalDays counts the days of a rental with both ends included. It is 0
// when either date is missing or the end precedes the start.
func RentalDays(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	s, e := DateOf(start), DateOf(end)
	if e.Before(s) {
		return 0
	}
	return int(e.time().Sub(s.time()).Hours()/24) + 1
}

// DaysUntil is the number of started days between now and start, never
// negative.
func DaysUntil(now, start time.Time) int {
	if start.IsZero() {
		return 0
	}
	days := math.Ceil(start.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}

// GrossPrice adds VAT to a net amount, rounded to cents.
func GrossPrice(net, vatPercent float64) float64 {
	return math.Round(net*(1+vatPercent/100)*100) / 100
}
