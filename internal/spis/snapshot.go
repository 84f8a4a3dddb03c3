package spis

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// StylePrefs is one user's display configuration for the list view.
// Persisted alongside the entries; zero values mean defaults.
type StylePrefs struct {
	DateStyle   string `cbor:"1,keyasint,omitempty"` // "plain", "short", "none"
	TimeStyle   string `cbor:"2,keyasint,omitempty"` // "plain", "none"
	ShowID      bool   `cbor:"3,keyasint,omitempty"`
	HideSubject bool   `cbor:"4,keyasint,omitempty"`
	EmojiStyle  string `cbor:"5,keyasint,omitempty"` // "default", "random", "none"
	CreditStyle string `cbor:"6,keyasint,omitempty"` // "footer", "inline", "inline-date"
}

const snapshotVersion = 1

// snapshot is the wire form of the aggregate. Times travel as Unix
// microseconds; live timer handles never leave process memory.
type snapshot struct {
	Version     int                  `cbor:"1,keyasint"`
	Entries     []entryRecord        `cbor:"2,keyasint,omitempty"`
	Styles      map[int64]StylePrefs `cbor:"3,keyasint,omitempty"`
	LastSaved   int64                `cbor:"4,keyasint"`
	ListViews   int64                `cbor:"5,keyasint,omitempty"`
	EditorScope int64                `cbor:"6,keyasint,omitempty"`
}

type entryRecord struct {
	Kind      uint8  `cbor:"1,keyasint"`
	ID        string `cbor:"2,keyasint"`
	RemoveAt  int64  `cbor:"3,keyasint"`
	Body      string `cbor:"4,keyasint"`
	AuthorID  int64  `cbor:"5,keyasint"`
	CreatedAt int64  `cbor:"6,keyasint"`
	Subject   string `cbor:"7,keyasint,omitempty"`
	DueAt     int64  `cbor:"8,keyasint,omitempty"`
}

// Canonical encoding keeps the byte stream deterministic, which the
// state hash depends on.
var snapEnc, snapDec = func() (cbor.EncMode, cbor.DecMode) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return em, dm
}()

func encodeSnapshot(s snapshot) ([]byte, error) {
	return snapEnc.Marshal(s)
}

func decodeSnapshot(data []byte) (snapshot, error) {
	var s snapshot
	if err := snapDec.Unmarshal(data, &s); err != nil {
		return snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return snapshot{}, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	return s, nil
}

func entryToRecord(e *Entry) entryRecord {
	r := entryRecord{
		Kind:      uint8(e.Kind),
		ID:        e.ID,
		RemoveAt:  e.RemoveAt.UnixMicro(),
		Body:      e.Body,
		AuthorID:  e.AuthorID,
		CreatedAt: e.CreatedAt.UnixMicro(),
	}
	if e.Kind == KindTask {
		r.Subject = e.Subject.Code
		r.DueAt = e.DueAt.UnixMicro()
	}
	return r
}

func recordToEntry(r entryRecord, loc *time.Location) (*Entry, error) {
	e := &Entry{
		Kind:      Kind(r.Kind),
		ID:        r.ID,
		RemoveAt:  time.UnixMicro(r.RemoveAt).In(loc),
		Body:      r.Body,
		AuthorID:  r.AuthorID,
		CreatedAt: time.UnixMicro(r.CreatedAt).In(loc),
	}
	if e.Kind == KindTask {
		subj, ok := SubjectByCode(r.Subject)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, r.Subject)
		}
		e.Subject = subj
		e.DueAt = time.UnixMicro(r.DueAt).In(loc)
	}
	return e, nil
}
