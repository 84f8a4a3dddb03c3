package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"spisbot/pkg/logx"
)

func TestNewRejectsBadTimezone(t *testing.T) {
	if _, err := New(Config{Timezone: "Mars/Olympus"}, logx.Nop()); err == nil {
		t.Fatalf("bad timezone should fail")
	}
}

func TestNewLoadsTimezone(t *testing.T) {
	s, err := New(Config{Timezone: "Europe/Warsaw"}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Location().String() != "Europe/Warsaw" {
		t.Fatalf("Location = %s", s.Location())
	}
}

func TestAddEveryValidation(t *testing.T) {
	s, err := New(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.AddEvery("x", 0, func(context.Context) error { return nil }); err == nil {
		t.Fatalf("zero interval should fail")
	}
	if err := s.AddEvery("x", time.Minute, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("AddEvery: %v", err)
	}
}

func TestAddCronValidation(t *testing.T) {
	s, err := New(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.AddCron("x", "not a spec", func(context.Context) error { return nil }); err == nil {
		t.Fatalf("bad cron spec should fail")
	}
	if err := s.AddCron("x", "0 16 * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("AddCron: %v", err)
	}
}

func TestJobRuns(t *testing.T) {
	s, err := New(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var runs atomic.Int32
	if err := s.AddEvery("tick", 50*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("AddEvery: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer cancel()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	s.Stop(stopCtx)

	if runs.Load() == 0 {
		t.Fatalf("job never ran")
	}
}
