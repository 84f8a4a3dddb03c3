package styles

import (
	"strings"
	"testing"
	"time"

	"spisbot/internal/spis"
)

var renderNow = time.Date(2026, time.April, 15, 10, 0, 0, 0, time.UTC)

func mkTask(t *testing.T, body, subjCode string, due time.Time) *spis.Entry {
	t.Helper()
	subj, ok := spis.SubjectByCode(subjCode)
	if !ok {
		t.Fatalf("unknown subject code %q", subjCode)
	}
	return spis.NewTask(body, 10, subj, due, due.Add(45*time.Minute), renderNow)
}

func mkAnnouncement(body string, removeAt time.Time) *spis.Entry {
	return spis.NewAnnouncement(body, 11, removeAt, renderNow)
}

func TestRenderEmpty(t *testing.T) {
	got := Render(nil, spis.StylePrefs{}, renderNow)
	if got != "Spis jest aktualnie pusty!" {
		t.Fatalf("Render(empty) = %q", got)
	}
}

func TestRenderGroupsTasksByDay(t *testing.T) {
	entries := []*spis.Entry{
		mkTask(t, "zadanie 1", "mat", time.Date(2026, time.April, 16, 0, 0, 0, 0, time.UTC)),
		mkTask(t, "zadanie 2", "pol", time.Date(2026, time.April, 16, 16, 30, 0, 0, time.UTC)),
		mkTask(t, "zadanie 3", "hist", time.Date(2026, time.April, 20, 0, 0, 0, 0, time.UTC)),
		mkAnnouncement("ogłoszenie 1", time.Date(2026, time.April, 22, 16, 0, 0, 0, time.UTC)),
	}

	got := Render(entries, spis.StylePrefs{}, renderNow)

	if n := strings.Count(got, "Czwartek, 16 kwietnia:"); n != 1 {
		t.Fatalf("expected one heading for the 16th, got %d in:\n%s", n, got)
	}
	if !strings.Contains(got, "Poniedziałek, 20 kwietnia:") {
		t.Fatalf("missing heading for the 20th:\n%s", got)
	}
	if !strings.Contains(got, "Ogłoszenia:") {
		t.Fatalf("missing announcements heading:\n%s", got)
	}
	if !strings.Contains(got, "*🧮Matematyka🧮*: zadanie 1") {
		t.Fatalf("missing subject line:\n%s", got)
	}
	// Midnight deadline hides the clock, 16:30 shows it.
	if strings.Contains(got, "(0:00)") {
		t.Fatalf("midnight clock should be hidden:\n%s", got)
	}
	if !strings.Contains(got, "(16:30) zadanie 2") {
		t.Fatalf("missing clock on timed task:\n%s", got)
	}
	// Default credit footer lists both authors.
	if !strings.Contains(got, "Opracowanie spisu:") {
		t.Fatalf("missing credit footer:\n%s", got)
	}
	if !strings.Contains(got, "10, 11") {
		t.Fatalf("footer should list author ids:\n%s", got)
	}
}

func TestRenderYearShownWhenDifferent(t *testing.T) {
	entries := []*spis.Entry{
		mkTask(t, "odległe", "mat", time.Date(2027, time.April, 16, 0, 0, 0, 0, time.UTC)),
	}
	got := Render(entries, spis.StylePrefs{}, renderNow)
	if !strings.Contains(got, "16 kwietnia 2027:") {
		t.Fatalf("heading should carry the year:\n%s", got)
	}
}

func TestRenderStyleVariants(t *testing.T) {
	due := time.Date(2026, time.April, 16, 16, 30, 0, 0, time.UTC)
	entries := []*spis.Entry{mkTask(t, "zadanie", "mat", due)}

	got := Render(entries, spis.StylePrefs{DateStyle: "short"}, renderNow)
	if !strings.Contains(got, "16.04:") {
		t.Fatalf("short date style missing:\n%s", got)
	}

	got = Render(entries, spis.StylePrefs{DateStyle: "none", TimeStyle: "none", CreditStyle: "none"}, renderNow)
	if strings.Contains(got, "16.04") || strings.Contains(got, "kwietnia") {
		t.Fatalf("date heading should be gone:\n%s", got)
	}
	if strings.Contains(got, "(16:30)") {
		t.Fatalf("clock should be gone:\n%s", got)
	}
	if strings.Contains(got, "Opracowanie spisu:") {
		t.Fatalf("credit footer should be gone:\n%s", got)
	}

	got = Render(entries, spis.StylePrefs{ShowID: true, CreditStyle: "inline"}, renderNow)
	if !strings.Contains(got, "[ID: "+entries[0].ID+", dodał(a): 10]") {
		t.Fatalf("id and inline credit badge missing:\n%s", got)
	}

	got = Render(entries, spis.StylePrefs{HideSubject: true, EmojiStyle: "none", CreditStyle: "none"}, renderNow)
	if strings.Contains(got, "Matematyka") {
		t.Fatalf("subject should be hidden:\n%s", got)
	}
	if !strings.Contains(got, "- (16:30) zadanie") {
		t.Fatalf("hidden subject should leave a dash:\n%s", got)
	}
}

func TestRenderTruncates(t *testing.T) {
	long := strings.Repeat("bardzo długa treść ", 20)
	var entries []*spis.Entry
	for day := 16; day <= 28; day++ {
		for h := 8; h <= 18; h++ {
			entries = append(entries, mkTask(t, long, "mat", time.Date(2026, time.April, day, h, 0, 0, 0, time.UTC)))
		}
	}

	got := Render(entries, spis.StylePrefs{}, renderNow)
	if len(got) >= maxLen {
		t.Fatalf("rendered %d chars, cap is %d", len(got), maxLen)
	}
	if !strings.HasSuffix(got, truncationMark) {
		t.Fatalf("truncated output should end with the marker, got tail %q", got[len(got)-10:])
	}
}
