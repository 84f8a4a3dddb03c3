// Package styles renders the entry list as chat text according to a
// user's display preferences. It is a pure formatting layer over the
// sorted collection.
package styles

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"spisbot/internal/spis"
)

var weekdayNames = [7]string{
	"Poniedziałek", "Wtorek", "Środa", "Czwartek", "Piątek", "Sobota", "Niedziela",
}

var monthNamesGenitive = [12]string{
	"stycznia", "lutego", "marca", "kwietnia", "maja", "czerwca",
	"lipca", "sierpnia", "września", "października", "listopada", "grudnia",
}

const truncationMark = "\n..."

// maxLen caps the rendered list; Telegram rejects longer messages and
// the adapter would split mid-entry otherwise.
const maxLen = 3900

func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func dateHeading(p spis.StylePrefs, d time.Time, now time.Time) string {
	switch p.DateStyle {
	case "none":
		return ""
	case "short":
		return "\n" + d.Format("02.01") + ":\n"
	default:
		year := ""
		if d.Year() != now.Year() {
			year = fmt.Sprintf(" %d", d.Year())
		}
		return fmt.Sprintf("\n%s, %d %s%s:\n", weekdayNames[mondayIndex(d)], d.Day(), monthNamesGenitive[d.Month()-1], year)
	}
}

func clock(p spis.StylePrefs, d time.Time) string {
	if p.TimeStyle == "none" {
		return ""
	}
	return fmt.Sprintf(" (%d:%02d)", d.Hour(), d.Minute())
}

func subjectEmoji(p spis.StylePrefs, s spis.Subject) string {
	switch p.EmojiStyle {
	case "none":
		return ""
	case "random":
		if len(s.Emoji) == 0 {
			return ""
		}
		return s.Emoji[rand.Intn(len(s.Emoji))]
	default:
		return s.DefaultEmoji()
	}
}

func credit(p spis.StylePrefs, e *spis.Entry) string {
	switch p.CreditStyle {
	case "inline":
		return fmt.Sprintf("dodał(a): %d", e.AuthorID)
	case "inline-date":
		return fmt.Sprintf("dodał(a): %d (%s)", e.AuthorID, e.CreatedAt.Format("02.01.06"))
	default:
		return ""
	}
}

func taskLine(p spis.StylePrefs, e *spis.Entry) string {
	var b strings.Builder
	emoji := subjectEmoji(p, e.Subject)
	if !p.HideSubject || emoji != "" {
		b.WriteString("*")
		b.WriteString(emoji)
		if !p.HideSubject {
			b.WriteString(e.Subject.Name)
			b.WriteString(emoji)
		}
		b.WriteString("*:")
	} else {
		b.WriteString("-")
	}
	writeBadges(&b, p, e)
	if e.HasTime() {
		b.WriteString(clock(p, e.DueAt))
	}
	b.WriteString(" ")
	b.WriteString(e.Body)
	return b.String()
}

func announcementLine(p spis.StylePrefs, e *spis.Entry) string {
	var b strings.Builder
	writeBadges(&b, p, e)
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(e.Body)
	return b.String()
}

func writeBadges(b *strings.Builder, p spis.StylePrefs, e *spis.Entry) {
	cr := credit(p, e)
	switch {
	case p.ShowID && cr != "":
		fmt.Fprintf(b, " [ID: %s, %s]", e.ID, cr)
	case p.ShowID:
		fmt.Fprintf(b, " [ID: %s]", e.ID)
	case cr != "":
		fmt.Fprintf(b, " [%s]", cr)
	}
}

// Render produces the full list view. Tasks come grouped under date
// headings; announcements follow under one shared heading. Output is
// truncated at a line boundary when it would exceed the message cap.
func Render(entries []*spis.Entry, p spis.StylePrefs, now time.Time) string {
	if len(entries) == 0 {
		return "Spis jest aktualnie pusty!"
	}

	var b strings.Builder
	lastDay := now.AddDate(0, 0, -1)
	inAnnouncements := false
	truncated := false

	for _, e := range entries {
		if e.Kind != spis.KindTask && !inAnnouncements {
			inAnnouncements = true
			b.WriteString("\nOgłoszenia:\n")
		}
		if inAnnouncements {
			b.WriteString(announcementLine(p, e))
			b.WriteString("\n")
		} else {
			line := taskLine(p, e) + "\n"
			day := time.Date(e.DueAt.Year(), e.DueAt.Month(), e.DueAt.Day(), 0, 0, 0, 0, e.DueAt.Location())
			if day.After(lastDay) {
				line = dateHeading(p, e.DueAt, now) + line
				lastDay = day
			}
			b.WriteString(line)
		}
		if b.Len() >= maxLen {
			break
		}
	}

	out := b.String()

	if p.CreditStyle == "" || p.CreditStyle == "footer" {
		authors := map[int64]bool{}
		order := []int64{}
		for _, e := range entries {
			if !authors[e.AuthorID] {
				authors[e.AuthorID] = true
				order = append(order, e.AuthorID)
			}
		}
		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
		parts := make([]string, 0, len(order))
		for _, id := range order {
			parts = append(parts, fmt.Sprintf("%d", id))
		}
		footer := "\nOpracowanie spisu:\n" + strings.Join(parts, ", ")
		if len(out)+len(footer) < maxLen {
			out += footer
		} else {
			truncated = true
		}
	}

	for len(out) >= maxLen-len(truncationMark) {
		truncated = true
		if i := strings.LastIndexByte(out, '\n'); i > 0 {
			out = out[:i]
		} else {
			out = out[:maxLen-len(truncationMark)]
			break
		}
	}
	if truncated {
		out += truncationMark
	}
	return strings.TrimLeft(out, "\n")
}
