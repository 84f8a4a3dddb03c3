package spis

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
	"unicode/utf8"

	"spisbot/internal/blob"
	"spisbot/internal/dates"
	"spisbot/pkg/logx"
)

const DefaultBodyLimit = 400

// Store is the mutable aggregate: the sorted entry collection, per-user
// style preferences and usage counters, plus the snapshot protocol
// against the blob sink. All mutation goes through its mutex; the
// expiry scheduler's fire callbacks take the same lock.
type Store struct {
	mu sync.Mutex

	entries     *Collection
	styles      map[int64]StylePrefs
	lastSaved   time.Time
	listViews   int64
	editorScope int64

	// hash of the state at the last successful save/load; 0 until then.
	hash uint64

	resolver  *dates.Resolver
	sched     *ExpiryScheduler
	sink      blob.Sink
	loc       *time.Location
	now       func() time.Time
	log       logx.Logger
	bodyLimit int
	startedAt time.Time
}

type StoreOptions struct {
	Resolver  *dates.Resolver
	Scheduler *ExpiryScheduler
	Sink      blob.Sink
	Location  *time.Location
	Logger    logx.Logger
	BodyLimit int
	Now       func() time.Time
}

func NewStore(opt StoreOptions) *Store {
	if opt.Location == nil {
		opt.Location = time.Local
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Resolver == nil {
		opt.Resolver = dates.NewResolver(opt.Location)
	}
	if opt.Scheduler == nil {
		opt.Scheduler = NewExpiryScheduler(WithClock(opt.Now))
	}
	if opt.BodyLimit <= 0 {
		opt.BodyLimit = DefaultBodyLimit
	}
	if opt.Logger.IsZero() {
		opt.Logger = logx.Nop()
	}
	return &Store{
		entries:   NewCollection(),
		styles:    map[int64]StylePrefs{},
		lastSaved: opt.Now(),
		resolver:  opt.Resolver,
		sched:     opt.Scheduler,
		sink:      opt.Sink,
		loc:       opt.Location,
		now:       opt.Now,
		log:       opt.Logger,
		bodyLimit: opt.BodyLimit,
		startedAt: opt.Now(),
	}
}

// Close cancels all outstanding expiry timers.
func (s *Store) Close() {
	s.sched.Stop()
}

// checkBody runs before any date parsing so an oversized body is
// rejected cheaply.
func (s *Store) checkBody(body string) error {
	if utf8.RuneCountInString(body) > s.bodyLimit {
		return fmt.Errorf("%w (limit %d znaków)", ErrTooLong, s.bodyLimit)
	}
	return nil
}

// AddTask parses dateText, validates and inserts a new task entry,
// arming its expiry timer. Returns the created entry.
func (s *Store) AddTask(body, dateText, subjectName string, authorID int64) (*Entry, error) {
	if err := s.checkBody(body); err != nil {
		return nil, err
	}
	subj, ok := SubjectByName(subjectName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, subjectName)
	}
	res, err := s.resolver.Resolve(dateText)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if res.At.Before(now) {
		return nil, fmt.Errorf("%w: %s", ErrPastDate, res.At.Format("02.01.2006 15:04"))
	}

	e := NewTask(body, authorID, subj, res.At, res.RemoveAt, now)

	s.mu.Lock()
	// Identical content collides on ID; last writer wins.
	if old := s.entries.FindByID(e.ID); old != nil {
		s.entries.RemoveID(old.ID)
	}
	s.entries.Add(e)
	s.mu.Unlock()

	s.arm(e)
	s.log.Info("task added", logx.String("id", e.ID), logx.String("subject", subj.Name), logx.Time("due", e.DueAt), logx.Int64("author", authorID))
	return e, nil
}

// AddAnnouncement inserts a new announcement entry.
func (s *Store) AddAnnouncement(body, dateText string, authorID int64) (*Entry, error) {
	if err := s.checkBody(body); err != nil {
		return nil, err
	}
	res, err := s.resolver.Resolve(dateText)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if res.At.Before(now) {
		return nil, fmt.Errorf("%w: %s", ErrPastDate, res.At.Format("02.01.2006 15:04"))
	}

	e := NewAnnouncement(body, authorID, res.RemoveAt, now)

	s.mu.Lock()
	if old := s.entries.FindByID(e.ID); old != nil {
		s.entries.RemoveID(old.ID)
	}
	s.entries.Add(e)
	s.mu.Unlock()

	s.arm(e)
	s.log.Info("announcement added", logx.String("id", e.ID), logx.Time("remove_at", e.RemoveAt), logx.Int64("author", authorID))
	return e, nil
}

// Delete removes the entry by id and cancels its timer.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	e := s.entries.FindByID(id)
	if e == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.entries.RemoveID(id)
	s.mu.Unlock()

	s.sched.Cancel(id)
	s.log.Info("entry deleted", logx.String("id", id), logx.String("kind", e.Kind.String()))
	return nil
}

// EditRequest carries the optional fields of an edit; nil means keep.
type EditRequest struct {
	Body     *string
	DateText *string
	Subject  *string
}

func (r EditRequest) empty() bool {
	return r.Body == nil && r.DateText == nil && r.Subject == nil
}

// EditTask mutates a task in place. The id never changes; a new
// deadline cancels the old timer and arms a fresh one.
func (s *Store) EditTask(id string, req EditRequest) (*Entry, error) {
	return s.edit(id, KindTask, req)
}

// EditAnnouncement mutates an announcement in place. Subject edits are
// rejected as a wrong-type request.
func (s *Store) EditAnnouncement(id string, req EditRequest) (*Entry, error) {
	if req.Subject != nil {
		return nil, ErrWrongType
	}
	return s.edit(id, KindAnnouncement, req)
}

func (s *Store) edit(id string, kind Kind, req EditRequest) (*Entry, error) {
	if req.empty() {
		return nil, ErrNoChanges
	}
	if req.Body != nil {
		if err := s.checkBody(*req.Body); err != nil {
			return nil, err
		}
	}
	var subj Subject
	if req.Subject != nil {
		var ok bool
		if subj, ok = SubjectByName(*req.Subject); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, *req.Subject)
		}
	}
	var res dates.Resolution
	if req.DateText != nil {
		var err error
		if res, err = s.resolver.Resolve(*req.DateText); err != nil {
			return nil, err
		}
		if res.At.Before(s.now()) {
			return nil, fmt.Errorf("%w: %s", ErrPastDate, res.At.Format("02.01.2006 15:04"))
		}
	}

	s.mu.Lock()
	e := s.entries.FindByID(id)
	if e == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.Kind != kind {
		s.mu.Unlock()
		return nil, ErrWrongType
	}
	if req.Body != nil {
		e.Body = WrapLinks(*req.Body)
	}
	if req.Subject != nil {
		e.Subject = subj
	}
	rearm := false
	if req.DateText != nil {
		if e.Kind == KindTask {
			e.DueAt = res.At
		}
		if !e.RemoveAt.Equal(res.RemoveAt) {
			e.RemoveAt = res.RemoveAt
			rearm = true
		}
	}
	s.entries.Resort()
	s.mu.Unlock()

	if rearm {
		s.sched.Cancel(id)
		s.arm(e)
	}
	s.log.Info("entry edited", logx.String("id", id), logx.String("kind", kind.String()))
	return e, nil
}

// List returns the entries in display order.
func (s *Store) List() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.All()
}

// BumpListViews records one use of the list command.
func (s *Store) BumpListViews() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listViews++
	return s.listViews
}

func (s *Store) Style(userID int64) StylePrefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styles[userID]
}

func (s *Store) SetStyle(userID int64, p StylePrefs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[userID] = p
}

func (s *Store) EditorScope() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editorScope
}

func (s *Store) SetEditorScope(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editorScope = chatID
}

// Stats is a read-only summary for the dev info command.
type Stats struct {
	Entries     int
	Tasks       int
	LastSaved   time.Time
	ListViews   int64
	ArmedTimers int
	StartedAt   time.Time
	StyledUsers int
	EditorScope int64
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := 0
	for _, e := range s.entries.All() {
		if e.Kind == KindTask {
			tasks++
		}
	}
	return Stats{
		Entries:     s.entries.Len(),
		Tasks:       tasks,
		LastSaved:   s.lastSaved,
		ListViews:   s.listViews,
		ArmedTimers: s.sched.Pending(),
		StartedAt:   s.startedAt,
		StyledUsers: len(s.styles),
		EditorScope: s.editorScope,
	}
}

// arm schedules the auto-removal of e. The fire callback re-checks the
// deadline so an edit that pushed it out after arming stays harmless.
func (s *Store) arm(e *Entry) {
	id := e.ID
	s.sched.Arm(id, e.RemoveAt, func() {
		s.mu.Lock()
		cur := s.entries.FindByID(id)
		if cur == nil || cur.RemoveAt.After(s.now()) {
			s.mu.Unlock()
			return
		}
		s.entries.RemoveID(id)
		s.mu.Unlock()
		s.log.Info("entry expired", logx.String("id", id), logx.String("kind", cur.Kind.String()))
	})
}

func (s *Store) snapshotLocked() snapshot {
	ents := s.entries.All()
	recs := make([]entryRecord, 0, len(ents))
	for _, e := range ents {
		recs = append(recs, entryToRecord(e))
	}
	var styles map[int64]StylePrefs
	if len(s.styles) > 0 {
		styles = make(map[int64]StylePrefs, len(s.styles))
		for k, v := range s.styles {
			styles[k] = v
		}
	}
	return snapshot{
		Version:     snapshotVersion,
		Entries:     recs,
		Styles:      styles,
		LastSaved:   s.lastSaved.UnixMicro(),
		ListViews:   s.listViews,
		EditorScope: s.editorScope,
	}
}

// hashLocked fingerprints the aggregate through its canonical encoding.
func (s *Store) hashLocked() uint64 {
	data, err := encodeSnapshot(s.snapshotLocked())
	if err != nil {
		// Encoding plain structs does not fail in practice; make the
		// hash unusable rather than silently "unchanged".
		return ^uint64(0)
	}
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// Save snapshots the aggregate to the sink. Returns false with a nil
// error when the state hash matches the last save and no I/O is needed.
func (s *Store) Save(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.hashLocked() == s.hash {
		s.mu.Unlock()
		s.log.Info("save skipped, state unchanged")
		return false, nil
	}

	prevSaved := s.lastSaved
	s.lastSaved = s.now()
	name := fmt.Sprintf("spis_backup_%d.cbor", s.lastSaved.Unix())
	data, err := encodeSnapshot(s.snapshotLocked())
	if err != nil {
		s.lastSaved = prevSaved
		s.hash = s.hashLocked()
		s.mu.Unlock()
		return false, fmt.Errorf("encode snapshot: %w", err)
	}
	s.mu.Unlock()

	putErr := s.sink.Put(ctx, name, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if putErr != nil {
		s.lastSaved = prevSaved
		// Recompute regardless of failure, so a later unrelated failed
		// save does not spuriously look "unchanged".
		s.hash = s.hashLocked()
		return false, fmt.Errorf("write snapshot: %w", putErr)
	}
	s.hash = s.hashLocked()
	s.log.Info("state saved", logx.String("name", name), logx.Int("bytes", len(data)))
	return true, nil
}

// Load replaces the aggregate with the most recent snapshot from the
// sink. Entries whose removal deadline already passed are pruned before
// timers are re-armed. A decode failure falls back to a fresh empty
// aggregate and reports the error; a transport failure leaves the
// current state in place.
func (s *Store) Load(ctx context.Context) (bool, error) {
	name, data, err := s.sink.Latest(ctx)
	if err != nil {
		s.mu.Lock()
		s.hash = s.hashLocked()
		s.mu.Unlock()
		return false, fmt.Errorf("fetch snapshot: %w", err)
	}

	snap, decErr := decodeSnapshot(data)

	s.sched.Stop()

	s.mu.Lock()
	defer func() {
		s.hash = s.hashLocked()
		s.mu.Unlock()
	}()

	if decErr == nil {
		now := s.now()
		fresh := NewCollection()
		pruned := 0
		var toArm []*Entry
		for _, r := range snap.Entries {
			e, err := recordToEntry(r, s.loc)
			if err != nil {
				decErr = err
				break
			}
			if e.RemoveAt.Before(now) {
				pruned++
				continue
			}
			fresh.Add(e)
			toArm = append(toArm, e)
		}
		if decErr == nil {
			s.entries = fresh
			s.styles = map[int64]StylePrefs{}
			for k, v := range snap.Styles {
				s.styles[k] = v
			}
			s.lastSaved = time.UnixMicro(snap.LastSaved).In(s.loc)
			s.listViews = snap.ListViews
			s.editorScope = snap.EditorScope
			for _, e := range toArm {
				s.arm(e)
			}
			s.log.Info("state loaded", logx.String("name", name), logx.Int("entries", fresh.Len()), logx.Int("pruned", pruned), logx.Time("saved_at", s.lastSaved))
			return true, nil
		}
	}

	// Corrupt snapshot: start over empty rather than crash.
	s.entries = NewCollection()
	s.styles = map[int64]StylePrefs{}
	s.lastSaved = s.now()
	s.listViews = 0
	s.editorScope = 0
	s.log.Warn("snapshot unreadable, starting fresh", logx.String("name", name), logx.Err(decErr))
	return false, decErr
}
