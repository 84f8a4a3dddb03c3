package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// AuditEntry records one mutation of the homework list.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At      time.Time
	ActorID int64
	ChatID  int64
	Action  string // add_task, add_announcement, delete, edit, expire, save, load
	EntryID string
	Kind    string // zadanie / ogloszenie, empty for save/load
	OK      bool
	Error   string
	TookMS  int64
}
