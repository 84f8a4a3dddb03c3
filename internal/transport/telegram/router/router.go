package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	rtsup "spisbot/internal/runtime/supervisor"
	kit "spisbot/internal/transport"
	"spisbot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessEditors   // members of the configured editor chat
	AccessOwnerOnly // bot owners (dev commands)
)

type Command struct {
	// Route is a space-separated command path, e.g.:
	//   "spis"
	//   "dodaj zadanie"
	Route       string
	Aliases     []string // root-level aliases
	Description string
	Usage       string
	Access      Access

	Timeout time.Duration // optional per-command override
	Handle  HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Path    []string // matched command path tokens
	Command string   // matched route
	Args    []string // positional args (flags stripped)
	Rest    string   // raw text after the matched path, newlines preserved

	Flags     map[string]string
	BoolFlags map[string]bool
	ReqID     string

	Adapter kit.Adapter
	Logger  logx.Logger
}

// EditorChecker answers whether a user may run AccessEditors commands.
// The app wires this to its editor-chat membership cache.
type EditorChecker func(userID int64) bool

type Router struct {
	mu    sync.RWMutex
	root  *cmdNode
	alias map[string]*cmdNode // alias -> leaf node

	owners   []int64
	isEditor EditorChecker

	log     logx.Logger
	adapter kit.Adapter

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor

	jobs chan func()
}

func New(log logx.Logger, adapter kit.Adapter, owners []int64) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		root:    newRoot(),
		alias:   map[string]*cmdNode{},
		log:     log,
		adapter: adapter,
		owners:  append([]int64(nil), owners...),
		jobs:    make(chan func(), 256),
	}
}

// SetOwners updates the owner list used for AccessOwnerOnly checks.
// Safe to call during hot-reload.
func (m *Router) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	m.mu.Lock()
	m.owners = cp
	m.mu.Unlock()
}

func (m *Router) SetEditorChecker(fn EditorChecker) {
	m.mu.Lock()
	m.isEditor = fn
	m.mu.Unlock()
}

func (m *Router) ownersSnapshot() ([]int64, EditorChecker) {
	m.mu.RLock()
	cp := append([]int64(nil), m.owners...)
	fn := m.isEditor
	m.mu.RUnlock()
	return cp, fn
}

// Register installs the command set, replacing any previous registry.
// A /help command is always injected.
func (m *Router) Register(ctx context.Context, cmds []Command) {
	helper := Command{
		Route:       "help",
		Aliases:     []string{"pomoc", "start"},
		Description: "pokaż dostępne polecenia",
		Usage:       "/help [polecenie]",
		Access:      AccessEveryone,
		Handle: func(ctx context.Context, req *Request) error {
			text := m.helpText(req.Args)
			_, err := req.Adapter.SendText(ctx, req.Chat, text, &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
			return err
		},
	}
	cmds = append(cmds, helper)

	root := newRoot()
	alias := map[string]*cmdNode{}
	for _, c := range cmds {
		route := splitRoute(c.Route)
		if len(route) == 0 || c.Handle == nil {
			continue
		}
		cc := c
		root.add(route, cc)
		leaf := root.find(route)
		for _, a := range c.Aliases {
			a = strings.TrimSpace(a)
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			alias[a] = leaf
		}
	}

	m.mu.Lock()
	m.root = root
	m.alias = alias
	m.mu.Unlock()

	// Best-effort Telegram /menu autocomplete update.
	if up, ok := m.adapter.(kit.CommandMenuUpdater); ok {
		menu := make([]kit.BotCommand, 0, len(cmds))
		for _, c := range cmds {
			route := splitRoute(c.Route)
			if len(route) != 1 || c.Access == AccessOwnerOnly {
				continue
			}
			menu = append(menu, kit.BotCommand{Command: route[0], Description: c.Description})
		}
		go func() {
			c, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(c, menu); err != nil {
				m.log.Debug("menu update failed", logx.Err(err))
			}
		}()
	}
}

// tryEnqueue is a panic-safe enqueue helper (handles the jobs channel being closed).
func (m *Router) tryEnqueue(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// DispatchLoop consumes updates and runs matched commands on a bounded
// worker pool. It blocks until ctx is done or the channel closes.
func (m *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}

	sup := rtsup.New(ctx,
		rtsup.WithLogger(m.log.With(logx.String("comp", "telegram.router"))),
		rtsup.WithCancelOnError(false),
	)
	m.runMu.Lock()
	m.sup = sup
	m.running = true
	m.runMu.Unlock()

	m.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(m.jobs)))

	var closeOnce sync.Once
	closeJobs := func() {
		closeOnce.Do(func() {
			m.runMu.Lock()
			m.running = false
			m.runMu.Unlock()
			close(m.jobs)
		})
	}

	for i := 0; i < workers; i++ {
		idx := i
		sup.Go0("command.worker."+strconv.Itoa(idx), func(c context.Context) {
			for {
				select {
				case <-c.Done():
					return
				case job, ok := <-m.jobs:
					if !ok {
						return
					}
					if job == nil {
						continue
					}
					// Middleware already catches panics; this keeps the
					// worker alive if something slips past.
					func() {
						defer func() {
							if r := recover(); r != nil {
								m.log.Error("panic in command job", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		})
	}

	defer func() {
		closeJobs()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.runMu.Lock()
		m.sup = nil
		m.runMu.Unlock()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				m.log.Info("updates channel closed")
				return nil
			}
			if up.Message != nil {
				m.routeMessage(ctx, up)
			}
		}
	}
}

func (m *Router) routeMessage(root context.Context, up kit.Update) {
	msg := up.Message
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	parts := tokenizeCommandLine(text)
	if len(parts) == 0 {
		return
	}
	word := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	args := parts[1:]

	m.mu.RLock()
	rootNode := m.root
	aliasMap := m.alias
	m.mu.RUnlock()

	// alias as root-level shortcut
	if leaf, ok := aliasMap[word]; ok && leaf != nil && leaf.cmd != nil {
		cmd := *leaf.cmd
		pos, flags, bools := parseFlags(args)
		m.enqueue(root, up, cmd, splitRoute(cmd.Route), pos, flags, bools, restAfterFields(msg.Text, 1))
		return
	}

	cur, ok := rootNode.child(word)
	if !ok {
		// Plain text or an unknown command in a group chat: stay quiet
		// unless someone clearly tried to talk to us in private.
		if !msg.IsGroup {
			_, _ = m.adapter.SendText(root, kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, "Nie znam tego polecenia. Spróbuj /help.", nil)
		}
		return
	}
	path := []string{word}
	for len(args) > 0 {
		nxt := args[0]
		if strings.HasPrefix(nxt, "-") {
			break
		}
		child, ok := cur.child(nxt)
		if !ok {
			break
		}
		cur = child
		path = append(path, nxt)
		args = args[1:]
	}

	// Container node without handler: show help for that path.
	if cur.cmd == nil {
		txt := m.helpText(path)
		_, _ = m.adapter.SendText(root, kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, txt, &kit.SendOptions{DisablePreview: true, ParseMode: "HTML"})
		return
	}

	cmd := *cur.cmd
	pos, flags, bools := parseFlags(args)
	m.enqueue(root, up, cmd, path, pos, flags, bools, restAfterFields(msg.Text, len(path)))
}

func (m *Router) enqueue(root context.Context, up kit.Update, cmd Command, path []string, args []string, flags map[string]string, bools map[string]bool, rest string) {
	msg := up.Message

	owners, isEditor := m.ownersSnapshot()
	switch cmd.Access {
	case AccessOwnerOnly:
		if !isOwner(msg.FromID, owners) {
			_, _ = m.adapter.SendText(root, kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, "To polecenie jest dostępne tylko dla administratora.", nil)
			return
		}
	case AccessEditors:
		allowed := isOwner(msg.FromID, owners)
		if !allowed && isEditor != nil {
			allowed = isEditor(msg.FromID)
		}
		if !allowed {
			_, _ = m.adapter.SendText(root, kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, "Nie masz uprawnień do edycji spisu.", nil)
			return
		}
	}

	rid := newReqID()
	reqLog := m.log.With(
		logx.String("rid", rid),
		logx.Int64("chat_id", msg.ChatID),
		logx.Int64("from_id", msg.FromID),
		logx.String("cmd", cmd.Route),
	)

	req := &Request{
		Update:    up,
		Chat:      kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID},
		FromID:    msg.FromID,
		Path:      path,
		Command:   cmd.Route,
		Args:      args,
		Rest:      rest,
		Flags:     flags,
		BoolFlags: bools,
		ReqID:     rid,
		Adapter:   m.adapter,
		Logger:    reqLog,
	}

	final := Chain(
		cmd.Handle,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(cmd.Timeout),
	)

	if !m.tryEnqueue(func() { _ = final(root, req) }) {
		_, _ = m.adapter.SendText(root, req.Chat, "Bot jest zajęty, spróbuj za chwilę.", nil)
	}
}

func isOwner(id int64, owners []int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}

// restAfterFields returns the raw remainder of s after skipping n
// whitespace-delimited fields, with newlines preserved. Handlers use it
// for free-text arguments (entry bodies) that the tokenizer would mangle.
func restAfterFields(s string, n int) string {
	i := 0
	for f := 0; f < n; f++ {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
			i++
		}
		for i < len(s) && s[i] != ' ' && s[i] != '\t' && s[i] != '\n' && s[i] != '\r' {
			i++
		}
	}
	return strings.TrimSpace(s[i:])
}
