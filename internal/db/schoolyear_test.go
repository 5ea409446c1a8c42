package db

import (
	"testing"
	"time"
)

func TestYearStartYear(t *testing.T) {
	cases := []struct {
		in   time.Time
		want int
	}{
		{time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 2024},
		{time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 2025},
		{time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), 2025},
	}
	for _, c := range cases {
		if got := YearStartYear(c.in); got != c.want {
			t.Errorf("YearStartYear(%s) = %d, want %d", c.in.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestYearStart(t *testing.T) {
	in := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)
	want := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	if got := YearStart(in); !got.Equal(want) {
		t.Fatalf("YearStart = %s, want %s", got, want)
	}
}

func TestYearLabel(t *testing.T) {
	if got := YearLabel(2025); got != "2025–2026" {
		t.Fatalf("YearLabel = %q", got)
	}
}

func TestWeeksBetween(t *testing.T) {
	sep1 := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		to   time.Time
		want int
	}{
		{sep1, 1},                                          // single day still occupies a week
		{sep1.AddDate(0, 0, 6), 1},                         // Mon..Sun
		{sep1.AddDate(0, 0, 7), 2},                         // next Monday
		{time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), 39}, // a typical catechism year
	}
	for _, c := range cases {
		if got := WeeksBetween(sep1, c.to); got != c.want {
			t.Errorf("WeeksBetween(…, %s) = %d, want %d", c.to.Format("2006-01-02"), got, c.want)
		}
	}
	if WeeksBetween(sep1, sep1.AddDate(0, 0, -1)) != 0 {
		t.Error("reversed range must be 0 weeks")
	}

	// Intervals anchor at from, not at calendar Mondays: Wed Sep 3 through
	// Mon Sep 8 is six days, one interval.
	wed := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	if got := WeeksBetween(wed, wed.AddDate(0, 0, 5)); got != 1 {
		t.Errorf("Wed..Mon = %d weeks, want 1", got)
	}
}
