package dates

import (
	"errors"
	"testing"
	"time"
)

// Wednesday, 15 April 2026, 10:00.
var testNow = time.Date(2026, time.April, 15, 10, 0, 0, 0, time.UTC)

func testResolver() *Resolver {
	return NewResolver(time.UTC, WithNow(func() time.Time { return testNow }))
}

func TestResolveDeadlines(t *testing.T) {
	cases := []struct {
		name string
		text string
		want time.Time
	}{
		{"bare weekday skips today", "środa", time.Date(2026, time.April, 22, 0, 0, 0, 0, time.UTC)},
		{"weekday next monday", "poniedziałek", time.Date(2026, time.April, 20, 0, 0, 0, 0, time.UTC)},
		{"weekday abbreviation", "pn", time.Date(2026, time.April, 20, 0, 0, 0, 0, time.UTC)},
		{"weekday accusative with filler", "na środę", time.Date(2026, time.April, 22, 0, 0, 0, 0, time.UTC)},
		{"weekday with clock", "piątek 16:30", time.Date(2026, time.April, 17, 16, 30, 0, 0, time.UTC)},
		{"tomorrow", "jutro", time.Date(2026, time.April, 16, 0, 0, 0, 0, time.UTC)},
		{"tomorrow with clock", "jutro 16:30", time.Date(2026, time.April, 16, 16, 30, 0, 0, time.UTC)},
		{"numeric day month", "20.04", time.Date(2026, time.April, 20, 0, 0, 0, 0, time.UTC)},
		{"numeric full date", "15.04.26", time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)},
		{"numeric with slashes", "20/4/2026", time.Date(2026, time.April, 20, 0, 0, 0, 0, time.UTC)},
		{"roman month", "20.IV", time.Date(2026, time.April, 20, 0, 0, 0, 0, time.UTC)},
		{"month word genitive", "20 maja", time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC)},
		{"clock only tonight", "17:00", time.Date(2026, time.April, 15, 17, 0, 0, 0, time.UTC)},
		{"filler words", "w piątek o 8:00", time.Date(2026, time.April, 17, 8, 0, 0, 0, time.UTC)},
	}

	r := testResolver()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := r.Resolve(tc.text)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tc.text, err)
			}
			if !res.At.Equal(tc.want) {
				t.Fatalf("Resolve(%q) = %v, want %v", tc.text, res.At, tc.want)
			}
		})
	}
}

func TestResolvePastRollsForward(t *testing.T) {
	cases := []struct {
		name string
		text string
		want time.Time
	}{
		// 8:00 already passed today, so the clock means tomorrow morning.
		{"past clock rolls a day", "8:00", time.Date(2026, time.April, 16, 8, 0, 0, 0, time.UTC)},
		// Day 10 already passed this month.
		{"past day rolls a month", "10", time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)},
		// 15.04 midnight already passed, and the month is fixed.
		{"past date rolls a year", "15.04", time.Date(2027, time.April, 15, 0, 0, 0, 0, time.UTC)},
	}

	r := testResolver()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := r.Resolve(tc.text)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tc.text, err)
			}
			if !res.At.Equal(tc.want) {
				t.Fatalf("Resolve(%q) = %v, want %v", tc.text, res.At, tc.want)
			}
		})
	}
}

func TestResolveWeekdayNeverToday(t *testing.T) {
	r := testResolver()
	// testNow is a Wednesday; asking for środa must land a full week out.
	res, err := r.Resolve("środa")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.At.After(testNow) {
		t.Fatalf("weekday resolved to %v, not after now %v", res.At, testNow)
	}
	if res.At.Weekday() != time.Wednesday {
		t.Fatalf("expected a Wednesday, got %v", res.At.Weekday())
	}
	if d := res.At.Sub(testNow); d < 6*24*time.Hour {
		t.Fatalf("expected next week's Wednesday, got %v away", d)
	}
}

func TestResolveRemovalGrace(t *testing.T) {
	r := testResolver()

	// Time of day given: removal trails by 45 minutes.
	res, err := r.Resolve("jutro 16:30")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := res.At.Add(45 * time.Minute); !res.RemoveAt.Equal(want) {
		t.Fatalf("RemoveAt = %v, want %v", res.RemoveAt, want)
	}

	// No time of day: removal lands on 16:00 that day.
	res, err = r.Resolve("jutro")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := time.Date(2026, time.April, 16, 16, 0, 0, 0, time.UTC); !res.RemoveAt.Equal(want) {
		t.Fatalf("RemoveAt = %v, want %v", res.RemoveAt, want)
	}

	// Seconds given: removal is exactly the stated moment.
	res, err = r.Resolve("jutro 16:30:00")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.RemoveAt.Equal(res.At) {
		t.Fatalf("RemoveAt = %v, want %v", res.RemoveAt, res.At)
	}
}

func TestResolveErrors(t *testing.T) {
	cases := []string{
		"",
		"na",
		"wczoraj",
		"25:00",
		"16:70",
		"32.01",
		"15.13",
		"99",
		"abc 15",
	}

	r := testResolver()
	for _, text := range cases {
		if _, err := r.Resolve(text); !errors.Is(err, ErrParse) {
			t.Fatalf("Resolve(%q) err = %v, want ErrParse", text, err)
		}
	}
}

func TestResolveFourDigitYear(t *testing.T) {
	r := testResolver()
	res, err := r.Resolve("20 maja 2027")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := time.Date(2027, time.May, 20, 0, 0, 0, 0, time.UTC); !res.At.Equal(want) {
		t.Fatalf("At = %v, want %v", res.At, want)
	}
}
