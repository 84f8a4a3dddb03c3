package spis

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFired(t *testing.T, fired *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fired.Load() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("fired = %d, want %d", fired.Load(), want)
}

func TestExpiryArmFires(t *testing.T) {
	s := NewExpiryScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Arm("a", time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })
	if s.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", s.Pending())
	}
	waitFired(t, &fired, 1)
	if s.Pending() != 0 {
		t.Fatalf("Pending after fire = %d, want 0", s.Pending())
	}
}

func TestExpiryCancelPreventsFire(t *testing.T) {
	s := NewExpiryScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Arm("a", time.Now().Add(30*time.Millisecond), func() { fired.Add(1) })
	s.Cancel("a")
	if s.Pending() != 0 {
		t.Fatalf("Pending after cancel = %d, want 0", s.Pending())
	}
	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("canceled timer fired")
	}
	// Canceling again, or an unknown id, is a no-op.
	s.Cancel("a")
	s.Cancel("missing")
}

func TestExpiryRearmReplacesTimer(t *testing.T) {
	s := NewExpiryScheduler()
	defer s.Stop()

	var old, fresh atomic.Int32
	s.Arm("a", time.Now().Add(20*time.Millisecond), func() { old.Add(1) })
	s.Arm("a", time.Now().Add(50*time.Millisecond), func() { fresh.Add(1) })
	if s.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", s.Pending())
	}

	waitFired(t, &fresh, 1)
	if old.Load() != 0 {
		t.Fatalf("replaced timer fired")
	}
}

func TestExpiryPastDeadlineNotArmed(t *testing.T) {
	s := NewExpiryScheduler()
	defer s.Stop()

	s.Arm("a", time.Now().Add(-time.Minute), func() { t.Error("past deadline fired") })
	if s.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", s.Pending())
	}
}

func TestExpiryStopCancelsAll(t *testing.T) {
	s := NewExpiryScheduler()

	var fired atomic.Int32
	for _, id := range []string{"a", "b", "c"} {
		s.Arm(id, time.Now().Add(30*time.Millisecond), func() { fired.Add(1) })
	}
	s.Stop()
	if s.Pending() != 0 {
		t.Fatalf("Pending after Stop = %d, want 0", s.Pending())
	}
	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("timers fired after Stop")
	}
}

// A timer firing after its entry was removed by hand must leave the
// store untouched.
func TestExpiryFireAfterManualDelete(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	e, err := s.AddTask("wyścig", "jutro", "matematyka", 1)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := s.Delete(e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// The timer is gone with the entry; a second removal attempt through
	// the collection is a silent no-op.
	if s.Stats().ArmedTimers != 0 {
		t.Fatalf("timer survived delete")
	}
	if err := s.Delete(e.ID); err == nil {
		t.Fatalf("second delete should report not found")
	}
}

func (s *ExpiryScheduler) versions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ver)
}

// Version bookkeeping must not outlive its timer, whatever path took
// the timer down.
func TestExpiryVersionMapBounded(t *testing.T) {
	s := NewExpiryScheduler()
	defer s.Stop()

	var fired atomic.Int32
	for i := 0; i < 50; i++ {
		id := string(rune('a'+i%26)) + "x"
		s.Arm(id, time.Now().Add(time.Minute), func() {})
		s.Cancel(id)
	}
	s.Arm("past", time.Now().Add(-time.Minute), func() {})
	s.Arm("fires", time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })
	waitFired(t, &fired, 1)

	if n := s.versions(); n != 0 {
		t.Fatalf("version entries after churn = %d, want 0", n)
	}

	s.Arm("held", time.Now().Add(time.Minute), func() {})
	if n := s.versions(); n != 1 {
		t.Fatalf("version entries with one armed timer = %d, want 1", n)
	}
	s.Stop()
	if n := s.versions(); n != 0 {
		t.Fatalf("version entries after Stop = %d, want 0", n)
	}
}

func TestExpiryRearmAfterCancelFiresOnce(t *testing.T) {
	s := NewExpiryScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Arm("a", time.Now().Add(30*time.Millisecond), func() { fired.Add(1) })
	s.Cancel("a")
	s.Arm("a", time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })

	waitFired(t, &fired, 1)
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want exactly 1", fired.Load())
	}
}
