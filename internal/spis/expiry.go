package spis

import (
	"sync"
	"time"

	"spisbot/pkg/logx"
)

// ExpiryScheduler arms one deferred one-shot action per entry ID.
// Every armed timer carries a sequence number drawn from a scheduler-wide
// counter; a fire whose number no longer matches ver[id] is stale and
// ignored, even if Stop lost the race with AfterFunc. ver keys live only
// while a timer is armed, so the maps stay bounded by the armed set.
type ExpiryScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	ver    map[string]uint64
	seq    uint64
	now    func() time.Time
	log    logx.Logger
}

type SchedulerOption func(*ExpiryScheduler)

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *ExpiryScheduler) { s.now = now }
}

func WithSchedulerLogger(log logx.Logger) SchedulerOption {
	return func(s *ExpiryScheduler) { s.log = log }
}

func NewExpiryScheduler(opts ...SchedulerOption) *ExpiryScheduler {
	s := &ExpiryScheduler{
		timers: map[string]*time.Timer{},
		ver:    map[string]uint64{},
		now:    time.Now,
		log:    logx.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Arm schedules fire to run once when at passes. A deadline already in
// the past does not arm anything; load-time pruning is the safety net
// for those. Arming an already-armed ID replaces the previous timer.
func (s *ExpiryScheduler) Arm(id string, at time.Time, fire func()) {
	d := at.Sub(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	if d <= 0 {
		delete(s.ver, id)
		s.log.Debug("expiry not armed, deadline already past", logx.String("id", id), logx.Time("at", at))
		return
	}
	s.seq++
	myVer := s.seq
	s.ver[id] = myVer

	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.ver[id] != myVer {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		delete(s.ver, id)
		s.mu.Unlock()
		fire()
	})
	s.log.Debug("expiry armed", logx.String("id", id), logx.Time("at", at), logx.Duration("in", d))
}

// Cancel stops the outstanding timer for id. Canceling an already-fired
// or never-armed timer is a no-op.
func (s *ExpiryScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	// An in-flight AfterFunc that already fired reads the zero version
	// and sees its own number as stale.
	delete(s.ver, id)
}

// Stop cancels every outstanding timer.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		delete(s.ver, id)
	}
}

// Pending reports how many timers are currently armed.
func (s *ExpiryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
