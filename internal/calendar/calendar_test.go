package calendar

import (
	"testing"
	"time"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAnchorThursday(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday", date(2025, 11, 10), date(2025, 11, 13)},
		{"wednesday", date(2025, 11, 12), date(2025, 11, 13)},
		{"thursday itself", date(2025, 11, 13), date(2025, 11, 13)},
		{"saturday", date(2025, 11, 15), date(2025, 11, 13)},
		{"sunday resolves backwards", date(2025, 11, 16), date(2025, 11, 13)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := AnchorThursday(c.in)
			if !got.Equal(c.want) {
				t.Fatalf("AnchorThursday(%s) = %s, want %s",
					c.in.Format("2006-01-02"), got.Format("2006-01-02"), c.want.Format("2006-01-02"))
			}
		})
	}
}

func TestAnchorThursday_ConstantOverWeek(t *testing.T) {
	// Mon 2025-11-10 .. Sun 2025-11-16 all share one anchor.
	want := date(2025, 11, 13)
	for i := 0; i < 7; i++ {
		d := date(2025, 11, 10).AddDate(0, 0, i)
		if got := AnchorThursday(d); !got.Equal(want) {
			t.Fatalf("AnchorThursday(%s) = %s, want %s",
				d.Format("2006-01-02"), got.Format("2006-01-02"), want.Format("2006-01-02"))
		}
	}
}

func TestWeekBounds(t *testing.T) {
	// Sunday 2025-11-16 falls in the week Mon 10th .. Sun 16th.
	sun := date(2025, 11, 16)
	if got := WeekStart(sun); !got.Equal(date(2025, 11, 10)) {
		t.Fatalf("WeekStart = %s", got.Format("2006-01-02"))
	}
	if got := WeekEnd(sun); !got.Equal(sun) {
		t.Fatalf("WeekEnd = %s", got.Format("2006-01-02"))
	}
}

func TestWeekBounds_Property(t *testing.T) {
	// For every day of 2025: start ≤ d ≤ end, start is Monday, end is
	// Sunday, and the span is exactly 6 days.
	for d := date(2025, 1, 1); d.Year() == 2025; d = d.AddDate(0, 0, 1) {
		start, end := WeekStart(d), WeekEnd(d)
		if start.After(d) || end.Before(d) {
			t.Fatalf("%s outside its own week [%s, %s]", d, start, end)
		}
		if start.Weekday() != time.Monday || end.Weekday() != time.Sunday {
			t.Fatalf("bad weekdays for %s: %s, %s", d, start.Weekday(), end.Weekday())
		}
		if end.Sub(start) != 6*24*time.Hour {
			t.Fatalf("week of %s is not 7 days", d)
		}
	}
}

func TestIsCompensableWeekday(t *testing.T) {
	// Mon Tue Wed Fri Sat yes; Thu Sun no.
	yes := []time.Time{date(2025, 11, 10), date(2025, 11, 11), date(2025, 11, 12), date(2025, 11, 14), date(2025, 11, 15)}
	no := []time.Time{date(2025, 11, 13), date(2025, 11, 16)}
	for _, d := range yes {
		if !IsCompensableWeekday(d) {
			t.Errorf("expected %s compensable", d.Weekday())
		}
	}
	for _, d := range no {
		if IsCompensableWeekday(d) {
			t.Errorf("expected %s not compensable", d.Weekday())
		}
	}
}

func TestSessionTypeFor(t *testing.T) {
	if st, ok := SessionTypeFor(date(2025, 11, 13)); !ok || st != models.SessionThursday {
		t.Fatalf("thursday: got %q %v", st, ok)
	}
	if st, ok := SessionTypeFor(date(2025, 11, 16)); !ok || st != models.SessionSunday {
		t.Fatalf("sunday: got %q %v", st, ok)
	}
	if _, ok := SessionTypeFor(date(2025, 11, 12)); ok {
		t.Fatal("wednesday should carry no session")
	}
}

func TestMidnight_KeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	in := time.Date(2025, 11, 16, 23, 59, 0, 0, loc)
	got := Midnight(in)
	if got.Hour() != 0 || got.Location() != loc {
		t.Fatalf("Midnight(%s) = %s", in, got)
	}
	// Late Sunday evening local time must stay a Sunday.
	if got.Weekday() != time.Sunday {
		t.Fatalf("weekday drifted: %s", got.Weekday())
	}
}
