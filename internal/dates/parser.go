// Package dates resolves free-form Polish date/time expressions into
// absolute timestamps, always preferring the nearest future occurrence.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrParse is returned when the text matches no known date grammar or
// contains no usable date component.
var ErrParse = errors.New("nierozpoznany format daty")

var jutroRe = regexp.MustCompile(`(?i)jutro`)

// Resolution is the outcome of parsing one date expression.
// At is the deadline the user asked for; RemoveAt is the later moment at
// which the entry should be auto-removed (grace window applied).
type Resolution struct {
	At       time.Time
	RemoveAt time.Time
}

type Resolver struct {
	loc *time.Location
	now func() time.Time
}

type Option func(*Resolver)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(loc *time.Location, opts ...Option) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	r := &Resolver{loc: loc, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// parsed date/time components; -1 means the user did not supply the field.
type components struct {
	year, month, day     int
	hour, minute, second int
	weekday              int
}

func (c components) empty() bool {
	return c.year < 0 && c.month < 0 && c.day < 0 && c.hour < 0 && c.minute < 0 && c.second < 0 && c.weekday < 0
}

// Resolve parses text and returns the nearest future interpretation.
//
// Missing fields fill from start-of-today. A bare weekday advances to the
// next occurrence strictly after today. A result still in the past rolls
// the smallest missing unit forward (hour only: +1 day, day without
// month: +1 month, month without year: +1 year).
//
// The removal deadline trails the stated one by 45 minutes unless the
// user supplied seconds; when no time of day was given at all it lands on
// 16:00 plus the same 45 minutes.
func (r *Resolver) Resolve(text string) (Resolution, error) {
	now := r.now().In(r.loc)

	// "jutro" becomes tomorrow's date in DD.MM.YY, keeping any time of
	// day the user wrote next to it.
	text = jutroRe.ReplaceAllString(text, now.AddDate(0, 0, 1).Format("02.01.06"))

	c, err := r.scan(text)
	if err != nil {
		return Resolution{}, err
	}
	if c.empty() {
		return Resolution{}, fmt.Errorf("%w: brak daty w tekście %q", ErrParse, text)
	}

	def := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	y, mo, d := def.Year(), int(def.Month()), def.Day()
	h, mi, s := 0, 0, 0
	if c.year >= 0 {
		y = c.year
	}
	if c.month >= 0 {
		mo = c.month
	}
	if c.day >= 0 {
		d = c.day
	}
	if c.hour >= 0 {
		h = c.hour
	}
	if c.minute >= 0 {
		mi = c.minute
	}
	if c.second >= 0 {
		s = c.second
	}
	when := time.Date(y, time.Month(mo), d, h, mi, s, 0, r.loc)

	if c.weekday >= 0 {
		if c.day < 0 {
			// Never resolve a bare weekday to today.
			when = when.AddDate(0, 0, 1)
		}
		when = when.AddDate(0, 0, (c.weekday+7-mondayIndex(when))%7)
	}

	if when.Before(now) {
		switch {
		case c.hour >= 0 && c.day < 0 && c.weekday < 0:
			when = when.AddDate(0, 0, 1)
		case c.day >= 0 && c.month < 0:
			when = when.AddDate(0, 1, 0)
		case c.month >= 0 && c.year < 0:
			when = when.AddDate(1, 0, 0)
		}
	}

	removeAt := when
	if c.second < 0 {
		removeAt = removeAt.Add(45 * time.Minute)
		if c.hour < 0 && c.minute < 0 {
			// 15:15 + the 45 above lands removal on 16:00.
			removeAt = removeAt.Add(15*time.Hour + 15*time.Minute)
		}
	}

	return Resolution{At: when, RemoveAt: removeAt}, nil
}

func (r *Resolver) scan(text string) (components, error) {
	c := components{year: -1, month: -1, day: -1, hour: -1, minute: -1, second: -1, weekday: -1}

	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ",")
		if tok == "" {
			continue
		}
		low := strings.ToLower(tok)
		if fillerWords[low] {
			continue
		}
		if wd, ok := lookupWeekday(low); ok {
			c.weekday = wd
			continue
		}
		if m, ok := lookupMonth(low); ok {
			c.month = int(m)
			continue
		}
		if strings.ContainsAny(tok, ":") {
			if err := scanClock(tok, &c); err != nil {
				return c, err
			}
			continue
		}
		if strings.ContainsAny(tok, "./-") {
			if err := scanNumericDate(tok, &c); err != nil {
				return c, err
			}
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			if err := assignNumber(n, len(tok), &c); err != nil {
				return c, err
			}
			continue
		}
		return c, fmt.Errorf("%w: %q", ErrParse, tok)
	}
	return c, nil
}

func scanClock(tok string, c *components) error {
	parts := strings.Split(tok, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("%w: %q", ErrParse, tok)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrParse, tok)
		}
		nums[i] = n
	}
	if nums[0] < 0 || nums[0] > 23 || nums[1] < 0 || nums[1] > 59 {
		return fmt.Errorf("%w: %q", ErrParse, tok)
	}
	c.hour, c.minute = nums[0], nums[1]
	if len(nums) == 3 {
		if nums[2] < 0 || nums[2] > 59 {
			return fmt.Errorf("%w: %q", ErrParse, tok)
		}
		c.second = nums[2]
	}
	return nil
}

// scanNumericDate handles day-first numeric dates: "15.4", "15.04.26",
// "15/04/2026", "15.IV".
func scanNumericDate(tok string, c *components) error {
	parts := strings.FieldsFunc(tok, func(r rune) bool {
		return r == '.' || r == '/' || r == '-'
	})
	if len(parts) < 1 || len(parts) > 3 {
		return fmt.Errorf("%w: %q", ErrParse, tok)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return fmt.Errorf("%w: %q", ErrParse, tok)
	}
	c.day = day
	if len(parts) == 1 {
		return nil
	}

	if m, ok := lookupMonth(parts[1]); ok {
		c.month = int(m)
	} else {
		mo, err := strconv.Atoi(parts[1])
		if err != nil || mo < 1 || mo > 12 {
			return fmt.Errorf("%w: %q", ErrParse, tok)
		}
		c.month = mo
	}
	if len(parts) == 2 {
		return nil
	}

	yr, err := strconv.Atoi(parts[2])
	if err != nil || yr < 0 {
		return fmt.Errorf("%w: %q", ErrParse, tok)
	}
	if yr < 100 {
		yr += 2000
	}
	c.year = yr
	return nil
}

// assignNumber places a bare number into the first sensible slot:
// four digits are a year, the first small number is a day of month,
// a later one the hour.
func assignNumber(n, width int, c *components) error {
	switch {
	case width == 4:
		c.year = n
	case c.day < 0 && n >= 1 && n <= 31:
		c.day = n
	case c.hour < 0 && n >= 0 && n <= 23:
		c.hour = n
	default:
		return fmt.Errorf("%w: %d", ErrParse, n)
	}
	return nil
}
