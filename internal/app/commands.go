package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spisbot/internal/dates"
	"spisbot/internal/spis"
	"spisbot/internal/styles"
	kit "spisbot/internal/transport"
	"spisbot/internal/transport/telegram/router"
	logx "spisbot/pkg/logx"
)

// commands builds the full command set. Mutating commands take their
// free-form fields separated by ";" so deadlines like "na poniedziałek
// 16:30" survive tokenization.
func (a *App) commands() []router.Command {
	return []router.Command{
		{
			Route:       "spis",
			Aliases:     []string{"lista"},
			Description: "pokaż aktualny spis zadań i ogłoszeń",
			Usage:       "/spis [-id]",
			Access:      router.AccessEveryone,
			Handle:      a.cmdShowList,
		},
		{
			Route:       "dodaj zadanie",
			Description: "dodaj zadanie domowe do spisu",
			Usage:       "/dodaj zadanie <termin> ; <przedmiot> ; <treść>",
			Access:      router.AccessEditors,
			Handle:      a.cmdAddTask,
		},
		{
			Route:       "dodaj ogloszenie",
			Description: "dodaj ogłoszenie do spisu",
			Usage:       "/dodaj ogloszenie <termin> ; <treść>",
			Access:      router.AccessEditors,
			Handle:      a.cmdAddAnnouncement,
		},
		{
			Route:       "usun",
			Description: "usuń wpis o podanym ID",
			Usage:       "/usun <id>",
			Access:      router.AccessEditors,
			Handle:      a.cmdDelete,
		},
		{
			Route:       "edytuj zadanie",
			Description: "zmień termin, przedmiot lub treść zadania",
			Usage:       "/edytuj zadanie <id> ; [termin] ; [przedmiot] ; [treść]",
			Access:      router.AccessEditors,
			Handle:      a.cmdEditTask,
		},
		{
			Route:       "edytuj ogloszenie",
			Description: "zmień termin lub treść ogłoszenia",
			Usage:       "/edytuj ogloszenie <id> ; [termin] ; [treść]",
			Access:      router.AccessEditors,
			Handle:      a.cmdEditAnnouncement,
		},
		{
			Route:       "styl",
			Description: "ustaw swój styl wyświetlania spisu",
			Usage:       "/styl [pole wartość]",
			Access:      router.AccessEveryone,
			Handle:      a.cmdStyle,
		},
		{
			Route:       "dev zapisz",
			Description: "wymuś zapis stanu",
			Usage:       "/dev zapisz",
			Access:      router.AccessOwnerOnly,
			Handle:      a.cmdDevSave,
		},
		{
			Route:       "dev wczytaj",
			Description: "wczytaj stan z ostatniej kopii",
			Usage:       "/dev wczytaj",
			Access:      router.AccessOwnerOnly,
			Handle:      a.cmdDevLoad,
		},
		{
			Route:       "dev info",
			Description: "statystyki i stan bota",
			Usage:       "/dev info",
			Access:      router.AccessOwnerOnly,
			Handle:      a.cmdDevInfo,
		},
		{
			Route:       "dev edytor",
			Description: "ustaw czat edytorów spisu",
			Usage:       "/dev edytor <chat_id>",
			Access:      router.AccessOwnerOnly,
			Handle:      a.cmdDevEditor,
		},
	}
}

func reply(ctx context.Context, req *router.Request, text string) error {
	_, err := req.Adapter.SendText(ctx, req.Chat, text, nil)
	return err
}

// userMessage translates a store or parser error into a reply. The
// domain errors already carry Polish text.
func userMessage(err error) string {
	switch {
	case errors.Is(err, dates.ErrParse),
		errors.Is(err, spis.ErrPastDate),
		errors.Is(err, spis.ErrTooLong),
		errors.Is(err, spis.ErrNotFound),
		errors.Is(err, spis.ErrWrongType),
		errors.Is(err, spis.ErrNoChanges),
		errors.Is(err, spis.ErrUnknownSubject):
		return "Błąd: " + err.Error()
	}
	return "Coś poszło nie tak, spróbuj ponownie."
}

// splitFields splits a ";"-separated argument string into at most n
// trimmed parts. Missing parts come back empty.
func splitFields(s string, n int) []string {
	parts := strings.SplitN(s, ";", n)
	out := make([]string, n)
	for i := range parts {
		out[i] = strings.TrimSpace(parts[i])
	}
	return out
}

// saveAfterMutation persists the list after a successful change when
// autosave is on. Best-effort: the mutation already happened.
func (a *App) saveAfterMutation(ctx context.Context, actorID int64) {
	if !a.autosave {
		return
	}
	saveCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	_, _ = a.saveState(saveCtx, actorID)
}

func (a *App) cmdShowList(ctx context.Context, req *router.Request) error {
	a.store.BumpListViews()
	prefs := listPrefs(a.store.Style(req.FromID), req.BoolFlags)
	text := styles.Render(a.store.List(), prefs, time.Now().In(a.loc))
	_, err := req.Adapter.SendText(ctx, req.Chat, text, &kit.SendOptions{ParseMode: "Markdown", DisablePreview: true})
	return err
}

// listPrefs applies one-shot listing flags on top of the user's saved
// style. "-id" forces IDs on so editors can grab them for /usun and
// /edytuj without switching their style.
func listPrefs(p spis.StylePrefs, flags map[string]bool) spis.StylePrefs {
	if flags["id"] {
		p.ShowID = true
	}
	return p
}

func (a *App) cmdAddTask(ctx context.Context, req *router.Request) error {
	f := splitFields(req.Rest, 3)
	if f[0] == "" || f[1] == "" || f[2] == "" {
		return reply(ctx, req, "Użycie: /dodaj zadanie <termin> ; <przedmiot> ; <treść>")
	}
	e, err := a.store.AddTask(f[2], f[0], f[1], req.FromID)
	a.appendAudit("add_task", req.FromID, req.Chat.ChatID, entryID(e), "zadanie", err)
	if err != nil {
		return reply(ctx, req, userMessage(err))
	}
	a.saveAfterMutation(ctx, req.FromID)
	return reply(ctx, req, fmt.Sprintf("Dodano zadanie z %s na %s (ID: %s).",
		e.Subject.Name, e.DueAt.Format("02.01.2006 15:04"), e.ID))
}

func (a *App) cmdAddAnnouncement(ctx context.Context, req *router.Request) error {
	f := splitFields(req.Rest, 2)
	if f[0] == "" || f[1] == "" {
		return reply(ctx, req, "Użycie: /dodaj ogloszenie <termin> ; <treść>")
	}
	e, err := a.store.AddAnnouncement(f[1], f[0], req.FromID)
	a.appendAudit("add_announcement", req.FromID, req.Chat.ChatID, entryID(e), "ogloszenie", err)
	if err != nil {
		return reply(ctx, req, userMessage(err))
	}
	a.saveAfterMutation(ctx, req.FromID)
	return reply(ctx, req, fmt.Sprintf("Dodano ogłoszenie, zniknie %s (ID: %s).",
		e.RemoveAt.Format("02.01.2006 15:04"), e.ID))
}

func (a *App) cmdDelete(ctx context.Context, req *router.Request) error {
	if len(req.Args) != 1 {
		return reply(ctx, req, "Użycie: /usun <id>")
	}
	id := req.Args[0]
	err := a.store.Delete(id)
	a.appendAudit("delete", req.FromID, req.Chat.ChatID, id, "", err)
	if err != nil {
		return reply(ctx, req, userMessage(err))
	}
	a.saveAfterMutation(ctx, req.FromID)
	return reply(ctx, req, "Usunięto wpis "+id+".")
}

func (a *App) cmdEditTask(ctx context.Context, req *router.Request) error {
	id, rest, _ := strings.Cut(strings.TrimSpace(req.Rest), ";")
	id = strings.TrimSpace(id)
	if id == "" {
		return reply(ctx, req, "Użycie: /edytuj zadanie <id> ; [termin] ; [przedmiot] ; [treść]")
	}
	f := splitFields(rest, 3)
	edit := spis.EditRequest{DateText: optField(f[0]), Subject: optField(f[1]), Body: optField(f[2])}
	e, err := a.store.EditTask(id, edit)
	a.appendAudit("edit", req.FromID, req.Chat.ChatID, id, "zadanie", err)
	if err != nil {
		return reply(ctx, req, userMessage(err))
	}
	a.saveAfterMutation(ctx, req.FromID)
	return reply(ctx, req, fmt.Sprintf("Zmieniono zadanie %s, termin %s.", e.ID, e.DueAt.Format("02.01.2006 15:04")))
}

func (a *App) cmdEditAnnouncement(ctx context.Context, req *router.Request) error {
	id, rest, _ := strings.Cut(strings.TrimSpace(req.Rest), ";")
	id = strings.TrimSpace(id)
	if id == "" {
		return reply(ctx, req, "Użycie: /edytuj ogloszenie <id> ; [termin] ; [treść]")
	}
	f := splitFields(rest, 2)
	e, err := a.store.EditAnnouncement(id, spis.EditRequest{DateText: optField(f[0]), Body: optField(f[1])})
	a.appendAudit("edit", req.FromID, req.Chat.ChatID, id, "ogloszenie", err)
	if err != nil {
		return reply(ctx, req, userMessage(err))
	}
	a.saveAfterMutation(ctx, req.FromID)
	return reply(ctx, req, fmt.Sprintf("Zmieniono ogłoszenie %s, zniknie %s.", e.ID, e.RemoveAt.Format("02.01.2006 15:04")))
}

const styleHelp = `Pola stylu:
data: plain | short | none
zegar: plain | none
id: on | off
przedmiot: on | off
emoji: default | random | none
podpis: footer | inline | inline-data | none`

func (a *App) cmdStyle(ctx context.Context, req *router.Request) error {
	p := a.store.Style(req.FromID)
	if len(req.Args) == 0 {
		return reply(ctx, req, describeStyle(p)+"\n\n"+styleHelp)
	}
	if len(req.Args) != 2 {
		return reply(ctx, req, "Użycie: /styl <pole> <wartość>\n\n"+styleHelp)
	}
	field := strings.ToLower(req.Args[0])
	value := strings.ToLower(req.Args[1])
	switch field {
	case "data":
		if value != "plain" && value != "short" && value != "none" {
			return reply(ctx, req, "Wartości pola data: plain, short, none")
		}
		p.DateStyle = value
	case "zegar":
		if value != "plain" && value != "none" {
			return reply(ctx, req, "Wartości pola zegar: plain, none")
		}
		p.TimeStyle = value
	case "id":
		p.ShowID = value == "on"
	case "przedmiot":
		p.HideSubject = value == "off"
	case "emoji":
		if value != "default" && value != "random" && value != "none" {
			return reply(ctx, req, "Wartości pola emoji: default, random, none")
		}
		p.EmojiStyle = value
	case "podpis":
		if value != "footer" && value != "inline" && value != "inline-data" && value != "none" {
			return reply(ctx, req, "Wartości pola podpis: footer, inline, inline-data, none")
		}
		if value == "inline-data" {
			value = "inline-date"
		}
		p.CreditStyle = value
	default:
		return reply(ctx, req, "Nieznane pole stylu: "+field+"\n\n"+styleHelp)
	}
	a.store.SetStyle(req.FromID, p)
	a.saveAfterMutation(ctx, req.FromID)
	return reply(ctx, req, "Zapisano styl.\n"+describeStyle(p))
}

func describeStyle(p spis.StylePrefs) string {
	orDefault := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	return fmt.Sprintf("Twój styl:\ndata: %s\nzegar: %s\nid: %s\nprzedmiot: %s\nemoji: %s\npodpis: %s",
		orDefault(p.DateStyle, "plain"),
		orDefault(p.TimeStyle, "plain"),
		onOff(p.ShowID),
		onOff(!p.HideSubject),
		orDefault(p.EmojiStyle, "default"),
		orDefault(p.CreditStyle, "footer"))
}

func (a *App) cmdDevSave(ctx context.Context, req *router.Request) error {
	wrote, err := a.saveState(ctx, req.FromID)
	if err != nil {
		return reply(ctx, req, "Zapis nie powiódł się: "+err.Error())
	}
	if !wrote {
		return reply(ctx, req, "Stan bez zmian od ostatniego zapisu, pominięto.")
	}
	return reply(ctx, req, "Zapisano stan.")
}

func (a *App) cmdDevLoad(ctx context.Context, req *router.Request) error {
	restored, err := a.store.Load(ctx)
	a.appendAudit("load", req.FromID, req.Chat.ChatID, "", "", err)
	if err != nil {
		return reply(ctx, req, "Wczytywanie nie powiodło się: "+err.Error())
	}
	if !restored {
		return reply(ctx, req, "Brak kopii do wczytania.")
	}
	st := a.store.Stats()
	return reply(ctx, req, fmt.Sprintf("Wczytano stan: %d wpisów.", st.Entries))
}

func (a *App) cmdDevInfo(ctx context.Context, req *router.Request) error {
	st := a.store.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "Wpisy: %d (zadania: %d, ogłoszenia: %d)\n", st.Entries, st.Tasks, st.Entries-st.Tasks)
	fmt.Fprintf(&b, "Aktywne timery: %d\n", st.ArmedTimers)
	fmt.Fprintf(&b, "Wyświetlenia spisu: %d\n", st.ListViews)
	fmt.Fprintf(&b, "Style użytkowników: %d\n", st.StyledUsers)
	fmt.Fprintf(&b, "Ostatni zapis: %s\n", st.LastSaved.In(a.loc).Format("02.01.2006 15:04:05"))
	fmt.Fprintf(&b, "Uptime: %s\n", time.Since(st.StartedAt).Round(time.Second))
	if st.EditorScope != 0 {
		fmt.Fprintf(&b, "Czat edytorów: %d\n", st.EditorScope)
	}
	if a.clog != nil {
		if line := a.clog.Latest(); line != "" {
			fmt.Fprintf(&b, "Ostatnia zmiana: %s\n", line)
		}
	}
	return reply(ctx, req, strings.TrimRight(b.String(), "\n"))
}

func (a *App) cmdDevEditor(ctx context.Context, req *router.Request) error {
	if len(req.Args) != 1 {
		return reply(ctx, req, "Użycie: /dev edytor <chat_id>")
	}
	var chatID int64
	if _, err := fmt.Sscanf(req.Args[0], "%d", &chatID); err != nil {
		return reply(ctx, req, "Nieprawidłowy identyfikator czatu.")
	}
	a.store.SetEditorScope(chatID)
	a.resetEditorCache()
	a.saveAfterMutation(ctx, req.FromID)
	req.Logger.Info("editor scope changed", logx.Int64("chat_id", chatID))
	if chatID == 0 {
		return reply(ctx, req, "Edycja spisu ograniczona do administratorów.")
	}
	return reply(ctx, req, fmt.Sprintf("Czat edytorów ustawiony na %d.", chatID))
}

// optField turns an empty edit field into "keep as is".
func optField(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func entryID(e *spis.Entry) string {
	if e == nil {
		return ""
	}
	return e.ID
}
