package spis

import (
	"hash/fnv"
	"regexp"
	"strconv"
	"time"
)

type Kind uint8

const (
	KindTask Kind = iota
	KindAnnouncement
)

func (k Kind) String() string {
	if k == KindTask {
		return "zadanie"
	}
	return "ogloszenie"
}

// linkRe finds bare URLs in entry bodies. Wrapping a link in angle
// brackets suppresses chat-client preview expansion.
var linkRe = regexp.MustCompile(`https?://[a-zA-Z0-9\-._~:/?#\[\]@!$&'()*+,;=%]*[a-zA-Z0-9\-_~:/?#\[\]@!$&'()*+;=%]`)

// WrapLinks rewrites every bare http(s) URL in text to <url>.
// Applied once at creation/edit time, never at display time.
func WrapLinks(text string) string {
	return linkRe.ReplaceAllString(text, "<$0>")
}

// Entry is one scheduled item: a homework task or an announcement.
// Tasks carry a subject and a user-facing deadline; for announcements
// those fields stay zero. The live expiry timer is not part of the
// record; the scheduler tracks it by ID.
type Entry struct {
	Kind      Kind
	ID        string
	RemoveAt  time.Time // auto-removal deadline
	Body      string
	AuthorID  int64
	CreatedAt time.Time

	// task-only fields
	Subject Subject
	DueAt   time.Time // deadline shown to users, usually before RemoveAt
}

func NewAnnouncement(body string, authorID int64, removeAt, createdAt time.Time) *Entry {
	e := &Entry{
		Kind:      KindAnnouncement,
		RemoveAt:  removeAt,
		Body:      WrapLinks(body),
		AuthorID:  authorID,
		CreatedAt: createdAt,
	}
	e.ID = deriveID(e)
	return e
}

func NewTask(body string, authorID int64, subject Subject, dueAt, removeAt, createdAt time.Time) *Entry {
	e := &Entry{
		Kind:      KindTask,
		RemoveAt:  removeAt,
		Body:      WrapLinks(body),
		AuthorID:  authorID,
		CreatedAt: createdAt,
		Subject:   subject,
		DueAt:     dueAt,
	}
	e.ID = deriveID(e)
	return e
}

// deriveID hashes the entry's persistent fields into a short hex handle.
// It runs exactly once at creation: edits keep the original ID so the
// handle users reference stays stable. Identical content collides;
// last writer wins and callers accept that.
func deriveID(e *Entry) string {
	h := fnv.New64a()
	h.Write([]byte{byte(e.Kind)})
	writeInt := func(v int64) {
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
		h.Write(b[:])
	}
	writeInt(e.RemoveAt.UnixNano())
	h.Write([]byte(e.Body))
	writeInt(e.AuthorID)
	writeInt(e.CreatedAt.UnixNano())
	if e.Kind == KindTask {
		h.Write([]byte(e.Subject.Code))
		writeInt(e.DueAt.UnixNano())
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Less is the single global sort key: all tasks before all
// announcements, then persistent fields ascending. It is total as long
// as IDs differ, and stable enough for duplicates.
func (e *Entry) Less(o *Entry) bool {
	if e.Kind != o.Kind {
		return e.Kind == KindTask
	}
	if !e.RemoveAt.Equal(o.RemoveAt) {
		return e.RemoveAt.Before(o.RemoveAt)
	}
	if e.Body != o.Body {
		return e.Body < o.Body
	}
	if e.AuthorID != o.AuthorID {
		return e.AuthorID < o.AuthorID
	}
	if !e.CreatedAt.Equal(o.CreatedAt) {
		return e.CreatedAt.Before(o.CreatedAt)
	}
	if e.Kind == KindTask {
		if e.Subject.Name != o.Subject.Name {
			return e.Subject.Name < o.Subject.Name
		}
		if !e.DueAt.Equal(o.DueAt) {
			return e.DueAt.Before(o.DueAt)
		}
	}
	return e.ID < o.ID
}

// HasTime reports whether the user supplied a time of day for a task.
// The formatter hides midnight deadlines' clock part.
func (e *Entry) HasTime() bool {
	return e.Kind == KindTask && !(e.DueAt.Hour() == 0 && e.DueAt.Minute() == 0)
}
