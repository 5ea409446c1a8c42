// Package calendar maps calendar dates onto the school's Mon–Sun week and
// its two session days. Everything here is pure and looks only at the
// year/month/day components of the given time, so callers decide the
// timezone once (config.Location) and stay consistent.
package calendar

import (
	"time"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
)

// Midnight truncates t to its calendar date, keeping the location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Monday on or before d.
func WeekStart(d time.Time) time.Time {
	d = Midnight(d)
	wd := int(d.Weekday())
	if wd == 0 { // Sunday closes the week
		return d.AddDate(0, 0, -6)
	}
	return d.AddDate(0, 0, -(wd - 1))
}

// WeekEnd returns the Sunday on or after d.
func WeekEnd(d time.Time) time.Time {
	d = Midnight(d)
	wd := int(d.Weekday())
	if wd == 0 {
		return d
	}
	return d.AddDate(0, 0, 7-wd)
}

// AnchorThursday returns the Thursday of d's week. A Sunday belongs to the
// week that started the previous Monday, so it resolves to the preceding
// Thursday.
func AnchorThursday(d time.Time) time.Time {
	d = Midnight(d)
	wd := int(d.Weekday())
	days := 4 - wd
	if wd == 0 {
		days = -3
	}
	return d.AddDate(0, 0, days)
}

// IsCompensableWeekday reports whether d is a day on which a make-up
// check-in may be recorded: any weekday except the two session days.
func IsCompensableWeekday(d time.Time) bool {
	switch d.Weekday() {
	case time.Thursday, time.Sunday:
		return false
	default:
		return true
	}
}

// SessionTypeFor returns the regular session held on d, if any.
func SessionTypeFor(d time.Time) (models.SessionType, bool) {
	switch d.Weekday() {
	case time.Thursday:
		return models.SessionThursday, true
	case time.Sunday:
		return models.SessionSunday, true
	default:
		return "", false
	}
}
