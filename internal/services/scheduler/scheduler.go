// Package scheduler runs the bot's periodic jobs (state autosave,
// changelog refresh) on a shared cron instance.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"spisbot/pkg/logx"
)

type Config struct {
	Timezone string // IANA TZ, e.g. "Europe/Warsaw"
}

type Service struct {
	mu  sync.Mutex
	log logx.Logger
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron

	ctx     context.Context
	running bool
}

func New(cfg Config, log logx.Logger) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("scheduler timezone: %w", err)
		}
		loc = l
	}
	s := &Service{
		log:    log,
		loc:    loc,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	return s, nil
}

// AddEvery registers a fixed-interval job. The job receives the service
// context and its errors are logged, never propagated.
func (s *Service) AddEvery(name string, every time.Duration, job func(ctx context.Context) error) error {
	if every <= 0 {
		return fmt.Errorf("job %q: interval must be positive", name)
	}
	return s.addSpec(name, fmt.Sprintf("@every %s", every), job)
}

// AddCron registers a job with a standard five-field cron spec.
func (s *Service) AddCron(name, spec string, job func(ctx context.Context) error) error {
	return s.addSpec(name, spec, job)
}

func (s *Service) addSpec(name, spec string, job func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.c.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Warn("scheduled job failed", logx.String("job", name), logx.Duration("dur", time.Since(start)), logx.Err(err))
			return
		}
		s.log.Debug("scheduled job done", logx.String("job", name), logx.Duration("dur", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("job %q: %w", name, err)
	}
	return nil
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx = ctx
	s.running = true
	s.c.Start()
	s.log.Info("scheduler started", logx.Int("jobs", len(s.c.Entries())), logx.String("tz", s.loc.String()))
}

// Stop halts scheduling and waits for running jobs up to the context
// deadline.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.c.Stop().Done()
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func (s *Service) Location() *time.Location { return s.loc }
