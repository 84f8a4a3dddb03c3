// Package app wires the bot together: config, transport, the entry
// store, periodic jobs and the command set.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"spisbot/internal/blob"
	"spisbot/internal/changelog"
	"spisbot/internal/config"
	"spisbot/internal/runtime/supervisor"
	"spisbot/internal/services/scheduler"
	"spisbot/internal/spis"
	"spisbot/internal/storage"
	kit "spisbot/internal/transport"
	telegram "spisbot/internal/transport/telegram/adapter"
	"spisbot/internal/transport/telegram/router"
	logx "spisbot/pkg/logx"
)

const defaultTimezone = "Europe/Warsaw"

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter *telegram.Adapter
	updates chan kit.Update

	sink  blob.Sink
	store *spis.Store
	audit storage.Store
	clog  *changelog.Client

	router *router.Router
	jobs   *scheduler.Service

	loc      *time.Location
	autosave bool

	editorMu    sync.Mutex
	editorCache map[int64]editorCacheEntry
}

// editorCacheEntry caches a chat-membership probe so each sender costs
// at most one getChatMember call per TTL.
type editorCacheEntry struct {
	allowed bool
	until   time.Time
}

const (
	editorCacheHit  = 5 * time.Minute
	editorCacheMiss = 30 * time.Second
)

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// Bootstrap logging with the Telegram mirror disabled, set the
	// target, then apply the real config so Apply() never warns about a
	// missing target.
	baseLogCfg := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    false,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))

	if cfg.Telegram.GroupLog != 0 {
		logSvc.SetTelegramTarget(cfg.Telegram.GroupLog)
	}
	finalLogCfg := baseLogCfg
	finalLogCfg.Telegram.Enabled = cfg.Logging.Telegram.Enabled
	logSvc.Apply(finalLogCfg)

	tz := strings.TrimSpace(cfg.Spis.Timezone)
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("spis.timezone: invalid %q: %w", tz, err)
	}

	sink, err := blob.Open(cfg.Blob, ad, log.With(logx.String("comp", "blob")))
	if err != nil {
		return nil, err
	}

	store := spis.NewStore(spis.StoreOptions{
		Sink:      sink,
		Location:  loc,
		Logger:    log.With(logx.String("comp", "spis")),
		BodyLimit: cfg.Spis.BodyLimit,
	})
	if cfg.Spis.EditorChatID != 0 {
		store.SetEditorScope(cfg.Spis.EditorChatID)
	}

	var audit storage.Store
	if cfg.Storage != nil {
		st, err := storage.Open(*cfg.Storage, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		if st != nil {
			audit = st
			log.Info("audit storage enabled", logx.String("driver", cfg.Storage.Driver))
		}
	}

	var clog *changelog.Client
	if cfg.Changelog != nil && cfg.Changelog.Enabled {
		owner, repo, err := splitRepo(cfg.Changelog.Repo)
		if err != nil {
			return nil, err
		}
		clog = changelog.New(owner, repo, log.With(logx.String("comp", "changelog")))
	}

	jobs, err := scheduler.New(scheduler.Config{Timezone: tz}, log.With(logx.String("comp", "scheduler")))
	if err != nil {
		return nil, err
	}

	rt := router.New(log.With(logx.String("comp", "commands")), ad, cfg.Telegram.OwnerUserIDs)

	return &App{
		cfgPath:     cfgPath,
		cfgm:        cfgm,
		log:         log,
		logs:        logSvc,
		adapter:     ad,
		updates:     make(chan kit.Update, 256),
		sink:        sink,
		store:       store,
		audit:       audit,
		clog:        clog,
		router:      rt,
		jobs:        jobs,
		loc:         loc,
		autosave:    cfg.Spis.Autosave,
		editorCache: map[int64]editorCacheEntry{},
	}, nil
}

func splitRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("changelog.repo: want owner/name, got %q", s)
	}
	return owner, repo, nil
}

// Done is closed when the app supervisor context is canceled (fatal
// error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// Transactional config reload: validate before commit/publish so a
	// bad edit never takes down a running bot.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
			return err
		}
		if _, err := config.ParseDurationField("spis.autosave_every", cfg.Spis.AutosaveEvery); err != nil {
			return err
		}
		if tz := strings.TrimSpace(cfg.Spis.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("spis.timezone: invalid %q: %w", tz, err)
			}
		}
		if cfg.Changelog != nil && cfg.Changelog.Enabled {
			if _, _, err := splitRepo(cfg.Changelog.Repo); err != nil {
				return err
			}
			if _, err := config.ParseDurationField("changelog.refresh", cfg.Changelog.Refresh); err != nil {
				return err
			}
		}
		return nil
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	a.router.SetEditorChecker(a.checkEditor)

	if a.autosave {
		loadCtx, cancel := context.WithTimeout(a.sup.Context(), 30*time.Second)
		restored, err := a.store.Load(loadCtx)
		cancel()
		a.appendAudit("load", 0, 0, "", "", err)
		switch {
		case err != nil:
			a.log.Warn("state restore failed, starting empty", logx.Err(err))
		case restored:
			a.log.Info("state restored from snapshot")
		default:
			a.log.Info("no snapshot found, starting empty")
		}
	}

	a.router.Register(a.sup.Context(), a.commands())

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})

	cfg := a.cfgm.Get()
	if a.autosave {
		every, err := config.ParseDurationOrDefault("spis.autosave_every", cfg.Spis.AutosaveEvery, 0)
		if err != nil {
			return err
		}
		if every > 0 {
			if err := a.jobs.AddEvery("autosave", every, func(c context.Context) error {
				_, err := a.saveState(c, 0)
				return err
			}); err != nil {
				return err
			}
		}
	}
	if a.clog != nil {
		refresh, err := config.ParseDurationOrDefault("changelog.refresh", cfg.Changelog.Refresh, time.Hour)
		if err != nil {
			return err
		}
		if err := a.jobs.AddEvery("changelog.refresh", refresh, a.clog.Refresh); err != nil {
			return err
		}
		a.sup.Go0("changelog.warmup", func(c context.Context) {
			warmCtx, cancel := context.WithTimeout(c, 15*time.Second)
			defer cancel()
			if err := a.clog.Refresh(warmCtx); err != nil {
				a.log.Debug("changelog warmup failed", logx.Err(err))
			}
		})
	}
	a.jobs.Start(a.sup.Context())

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyConfig handles a hot-reloaded config. Logging, owners and the
// editor scope apply live; transport, blob and storage need a restart.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.Telegram.GroupLog != 0 {
		a.logs.SetTelegramTarget(cfg.Telegram.GroupLog)
	} else {
		a.logs.SetTelegramTarget(0)
	}
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	})

	a.router.SetOwners(cfg.Telegram.OwnerUserIDs)

	if cfg.Spis.EditorChatID != 0 && cfg.Spis.EditorChatID != a.store.EditorScope() {
		a.store.SetEditorScope(cfg.Spis.EditorChatID)
		a.resetEditorCache()
	}

	a.log.Info("config reloaded")
}

// checkEditor answers the router's AccessEditors gate: the sender must
// be a member of the editor chat. Results are cached per user.
func (a *App) checkEditor(userID int64) bool {
	scope := a.store.EditorScope()
	if scope == 0 {
		return false
	}
	now := time.Now()

	a.editorMu.Lock()
	if e, ok := a.editorCache[userID]; ok && now.Before(e.until) {
		a.editorMu.Unlock()
		return e.allowed
	}
	a.editorMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	allowed, err := a.adapter.IsChatMember(ctx, scope, userID)
	cancel()
	if err != nil {
		a.log.Warn("editor membership check failed", logx.Int64("user_id", userID), logx.Err(err))
		return false
	}

	ttl := editorCacheHit
	if !allowed {
		ttl = editorCacheMiss
	}
	a.editorMu.Lock()
	a.editorCache[userID] = editorCacheEntry{allowed: allowed, until: now.Add(ttl)}
	a.editorMu.Unlock()
	return allowed
}

func (a *App) resetEditorCache() {
	a.editorMu.Lock()
	a.editorCache = map[int64]editorCacheEntry{}
	a.editorMu.Unlock()
}

// saveState snapshots the store to the blob sink and audits the result.
// Returns whether a snapshot was actually written.
func (a *App) saveState(ctx context.Context, actorID int64) (bool, error) {
	start := time.Now()
	wrote, err := a.store.Save(ctx)
	a.appendAuditTook("save", actorID, 0, "", "", err, time.Since(start))
	if err != nil {
		a.log.Error("state save failed", logx.Err(err))
		return false, err
	}
	if wrote {
		a.log.Info("state saved", logx.Duration("took", time.Since(start)))
	}
	return wrote, nil
}

func (a *App) appendAudit(action string, actorID, chatID int64, entryID, kind string, err error) {
	a.appendAuditTook(action, actorID, chatID, entryID, kind, err, 0)
}

func (a *App) appendAuditTook(action string, actorID, chatID int64, entryID, kind string, err error, took time.Duration) {
	if a.audit == nil {
		return
	}
	e := storage.AuditEntry{
		At:      time.Now(),
		ActorID: actorID,
		ChatID:  chatID,
		Action:  action,
		EntryID: entryID,
		Kind:    kind,
		OK:      err == nil,
		TookMS:  took.Milliseconds(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if aerr := a.audit.AppendAudit(ctx, e); aerr != nil {
		a.log.Warn("audit append failed", logx.String("action", action), logx.Err(aerr))
	}
}

type StopReason string

const (
	StopSIGINT     StopReason = "sigint"
	StopSIGTERM    StopReason = "sigterm"
	StopFatalError StopReason = "fatal_error"
	StopAppStop    StopReason = "app_stop"
)

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Final snapshot first, while transport is still usable (the
	// telegram blob driver needs it to upload the document).
	if a.autosave {
		saveCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		_, _ = a.saveState(saveCtx, 0)
		cancel()
	}

	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			} else {
				a.log.Debug("stop step done", logx.String("name", name), logx.Duration("took", time.Since(start)))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("jobs", 3*time.Second, func(c context.Context) error { a.jobs.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("store", 1*time.Second, func(context.Context) error { a.store.Close(); return nil })
	step("blob", 1*time.Second, func(context.Context) error { return a.sink.Close() })
	step("storage", 1*time.Second, func(context.Context) error {
		if a.audit != nil {
			return a.audit.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
