package spis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"spisbot/internal/blob"
	"spisbot/internal/config"
	"spisbot/internal/dates"
	"spisbot/pkg/logx"
)

// Wednesday, 15 April 2026, 10:00.
var testNow = time.Date(2026, time.April, 15, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	return newTestStoreAt(t, dir, testNow)
}

func newTestStoreAt(t *testing.T, dir string, now time.Time) *Store {
	t.Helper()
	sink, err := blob.Open(config.BlobConfig{Driver: "file", Path: dir}, nil, logx.Nop())
	if err != nil {
		t.Fatalf("blob.Open: %v", err)
	}
	clock := func() time.Time { return now }
	s := NewStore(StoreOptions{
		Sink:     sink,
		Location: time.UTC,
		Now:      clock,
		Resolver: dates.NewResolver(time.UTC, dates.WithNow(clock)),
	})
	t.Cleanup(s.Close)
	return s
}

func TestAddTaskSortsBeforeAnnouncements(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	if _, err := s.AddAnnouncement("wycieczka klasowa", "jutro", 1); err != nil {
		t.Fatalf("AddAnnouncement: %v", err)
	}
	task, err := s.AddTask("zadania 1-5 ze strony 20", "piątek", "matematyka", 2)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	got := s.List()
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].ID != task.ID {
		t.Fatalf("task should sort before announcement, got %v first", got[0].Kind)
	}
	if got[1].Kind != KindAnnouncement {
		t.Fatalf("expected announcement last, got %v", got[1].Kind)
	}
}

func TestListOrderedByRemoveAt(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	later, err := s.AddTask("rozdział 3", "20.04", "historia", 1)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	sooner, err := s.AddTask("słówka z lekcji", "jutro", "angielski", 1)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	got := s.List()
	if got[0].ID != sooner.ID || got[1].ID != later.ID {
		t.Fatalf("entries not ordered by removal deadline: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestAddTaskRejectsPastDate(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	// Full explicit date: midnight today already passed.
	_, err := s.AddTask("spóźnione", "15.04.2026", "polski", 1)
	if !errors.Is(err, ErrPastDate) {
		t.Fatalf("err = %v, want ErrPastDate", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("rejected entry must not be stored")
	}
}

func TestAddTaskUnknownSubject(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	_, err := s.AddTask("cokolwiek", "jutro", "astrologia", 1)
	if !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("err = %v, want ErrUnknownSubject", err)
	}
}

func TestBodyLimit(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	_, err := s.AddTask(strings.Repeat("a", 401), "jutro", "matematyka", 1)
	if !errors.Is(err, ErrTooLong) {
		t.Fatalf("401 chars: err = %v, want ErrTooLong", err)
	}

	// The cap counts runes, not bytes.
	if _, err := s.AddTask(strings.Repeat("ż", 400), "jutro", "matematyka", 1); err != nil {
		t.Fatalf("400 runes: %v", err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	if err := s.Delete("deadbeef"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDuplicateContentLastWriterWins(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	first, err := s.AddTask("to samo", "jutro", "fizyka", 7)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	second, err := s.AddTask("to samo", "jutro", "fizyka", 7)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("identical content produced different ids: %s vs %s", first.ID, second.ID)
	}
	if got := s.List(); len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
}

func TestEditKeepsID(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	e, err := s.AddTask("stara treść", "jutro", "chemia", 1)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	id := e.ID

	body := "nowa treść"
	date := "20.04 16:30"
	subject := "biologia"
	got, err := s.EditTask(id, EditRequest{Body: &body, DateText: &date, Subject: &subject})
	if err != nil {
		t.Fatalf("EditTask: %v", err)
	}
	if got.ID != id {
		t.Fatalf("edit changed the id: %s -> %s", id, got.ID)
	}
	if got.Body != body {
		t.Fatalf("Body = %q, want %q", got.Body, body)
	}
	if got.Subject.Code != "bio" {
		t.Fatalf("Subject = %q, want bio", got.Subject.Code)
	}
	if want := time.Date(2026, time.April, 20, 16, 30, 0, 0, time.UTC); !got.DueAt.Equal(want) {
		t.Fatalf("DueAt = %v, want %v", got.DueAt, want)
	}
	if want := got.DueAt.Add(45 * time.Minute); !got.RemoveAt.Equal(want) {
		t.Fatalf("RemoveAt = %v, want %v", got.RemoveAt, want)
	}
}

func TestEditValidation(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	task, err := s.AddTask("zadanie", "jutro", "geografia", 1)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	ann, err := s.AddAnnouncement("ogłoszenie", "jutro", 1)
	if err != nil {
		t.Fatalf("AddAnnouncement: %v", err)
	}

	if _, err := s.EditTask(task.ID, EditRequest{}); !errors.Is(err, ErrNoChanges) {
		t.Fatalf("empty edit: err = %v, want ErrNoChanges", err)
	}

	subj := "matematyka"
	if _, err := s.EditAnnouncement(ann.ID, EditRequest{Subject: &subj}); !errors.Is(err, ErrWrongType) {
		t.Fatalf("subject on announcement: err = %v, want ErrWrongType", err)
	}
	body := "x"
	if _, err := s.EditTask(ann.ID, EditRequest{Body: &body}); !errors.Is(err, ErrWrongType) {
		t.Fatalf("task edit on announcement id: err = %v, want ErrWrongType", err)
	}
	if _, err := s.EditTask("deadbeef", EditRequest{Body: &body}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: err = %v, want ErrNotFound", err)
	}
}

func TestSaveSkipsUnchangedState(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	ctx := context.Background()

	if _, err := s.AddTask("zadanie", "jutro", "matematyka", 1); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	wrote, err := s.Save(ctx)
	if err != nil || !wrote {
		t.Fatalf("first Save = (%v, %v), want (true, nil)", wrote, err)
	}
	wrote, err = s.Save(ctx)
	if err != nil || wrote {
		t.Fatalf("second Save = (%v, %v), want (false, nil)", wrote, err)
	}

	if _, err := s.AddAnnouncement("nowe", "jutro", 2); err != nil {
		t.Fatalf("AddAnnouncement: %v", err)
	}
	wrote, err = s.Save(ctx)
	if err != nil || !wrote {
		t.Fatalf("Save after change = (%v, %v), want (true, nil)", wrote, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a := newTestStore(t, dir)
	task, err := a.AddTask("przeczytać rozdział", "piątek 16:30", "polski", 10)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	ann, err := a.AddAnnouncement("zebranie rodziców", "20.04", 11)
	if err != nil {
		t.Fatalf("AddAnnouncement: %v", err)
	}
	a.SetStyle(10, StylePrefs{DateStyle: "short", ShowID: true})
	a.BumpListViews()
	a.SetEditorScope(-100123)

	if _, err := a.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b := newTestStore(t, dir)
	restored, err := b.Load(ctx)
	if err != nil || !restored {
		t.Fatalf("Load = (%v, %v), want (true, nil)", restored, err)
	}

	got := b.List()
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	gt := b.List()[0]
	if gt.ID != task.ID || gt.Body != task.Body || !gt.DueAt.Equal(task.DueAt) || gt.Subject.Code != task.Subject.Code {
		t.Fatalf("task did not round-trip: %+v vs %+v", gt, task)
	}
	ga := b.List()[1]
	if ga.ID != ann.ID || !ga.RemoveAt.Equal(ann.RemoveAt) {
		t.Fatalf("announcement did not round-trip: %+v vs %+v", ga, ann)
	}
	if p := b.Style(10); p.DateStyle != "short" || !p.ShowID {
		t.Fatalf("styles did not round-trip: %+v", p)
	}
	if b.EditorScope() != -100123 {
		t.Fatalf("editor scope did not round-trip: %d", b.EditorScope())
	}
	st := b.Stats()
	if st.ListViews != 1 {
		t.Fatalf("list views = %d, want 1", st.ListViews)
	}
	if st.ArmedTimers != 2 {
		t.Fatalf("armed timers = %d, want 2", st.ArmedTimers)
	}

	// A load right after a save is a no-op for the hash: nothing to write.
	wrote, err := b.Save(ctx)
	if err != nil || wrote {
		t.Fatalf("Save after Load = (%v, %v), want (false, nil)", wrote, err)
	}
}

func TestLoadPrunesExpiredEntries(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a := newTestStore(t, dir)
	if _, err := a.AddTask("krótki termin", "jutro", "matematyka", 1); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	keep, err := a.AddTask("długi termin", "20 maja", "historia", 1)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := a.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Restore ten days later: the short deadline has passed.
	b := newTestStoreAt(t, dir, testNow.AddDate(0, 0, 10))
	restored, err := b.Load(ctx)
	if err != nil || !restored {
		t.Fatalf("Load = (%v, %v), want (true, nil)", restored, err)
	}
	got := b.List()
	if len(got) != 1 || got[0].ID != keep.ID {
		t.Fatalf("expected only the long-deadline entry to survive, got %d", len(got))
	}
}

func TestLoadCorruptSnapshotStartsFresh(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	sink, err := blob.Open(config.BlobConfig{Driver: "file", Path: dir}, nil, logx.Nop())
	if err != nil {
		t.Fatalf("blob.Open: %v", err)
	}
	if err := sink.Put(ctx, "spis_backup_1.bin", []byte("not a snapshot")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	s := newTestStore(t, dir)
	if _, err := s.AddTask("zostanie wyrzucone", "jutro", "fizyka", 1); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	restored, err := s.Load(ctx)
	if restored || err == nil {
		t.Fatalf("Load = (%v, %v), want (false, error)", restored, err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("corrupt load must leave an empty list, got %d entries", len(s.List()))
	}
	// The fresh empty state is saveable again.
	if _, err := s.Save(ctx); err != nil {
		t.Fatalf("Save after corrupt load: %v", err)
	}
}

func TestLoadWithoutSnapshotKeepsState(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	if _, err := s.AddTask("nie znika", "jutro", "chemia", 1); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	restored, err := s.Load(context.Background())
	if restored || err == nil {
		t.Fatalf("Load = (%v, %v), want (false, error)", restored, err)
	}
	if len(s.List()) != 1 {
		t.Fatalf("fetch failure must keep current state, got %d entries", len(s.List()))
	}
}
