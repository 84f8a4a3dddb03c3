package config

// Config is the full bot configuration.
//
// JSON and YAML files are both accepted; YAML is coerced to JSON and decoded
// strictly (unknown fields are rejected).
type Config struct {
	Telegram  TelegramConfig   `json:"telegram"`
	Logging   LoggingConfig    `json:"logging"`
	Spis      SpisConfig       `json:"spis"`
	Blob      BlobConfig       `json:"blob"`
	Storage   *StorageConfig   `json:"storage,omitempty"`
	Changelog *ChangelogConfig `json:"changelog,omitempty"`
}

type TelegramConfig struct {
	Token       string  `json:"token"`
	PollTimeout string  `json:"poll_timeout,omitempty"` // Go duration string
	OwnerUserIDs []int64 `json:"owner_user_ids"`

	// GroupLog is an optional chat id that receives mirrored log lines.
	GroupLog int64 `json:"group_log,omitempty"`
}

type LoggingConfig struct {
	Level    string            `json:"level"`
	Console  bool              `json:"console"`
	File     LogFileConfig     `json:"file"`
	Telegram LogTelegramConfig `json:"telegram"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LogTelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// SpisConfig controls the entry tracker itself.
//
// Durations are Go duration strings (e.g. "30m", "1h").
type SpisConfig struct {
	// BodyLimit caps entry body length in characters. Default 400.
	BodyLimit int `json:"body_limit,omitempty"`

	// EditorChatID restricts mutating commands to members of this chat.
	// 0 means owner-only.
	EditorChatID int64 `json:"editor_chat_id,omitempty"`

	// Autosave enables load-on-start, save-on-change and save-on-shutdown.
	Autosave bool `json:"autosave"`

	// AutosaveEvery adds a periodic snapshot on top of change-driven saves.
	// Empty disables the periodic job.
	AutosaveEvery string `json:"autosave_every,omitempty"`

	// Timezone used for date resolution and periodic jobs (IANA name).
	Timezone string `json:"timezone,omitempty"`
}

// BlobConfig selects the snapshot sink.
//
// Driver values:
//   - "file": snapshots in a local directory
//   - "telegram": snapshots as pinned documents in a private chat
type BlobConfig struct {
	Driver string `json:"driver"`
	Path   string `json:"path,omitempty"`    // file driver: directory
	ChatID int64  `json:"chat_id,omitempty"` // telegram driver: backup chat
}

// StorageConfig controls the optional audit log.
//
// Driver values: "none"/"", "file" (JSONL), "sqlite" (build with -tags sqlite).
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// ChangelogConfig controls the upstream-commit info shown by /dev info.
type ChangelogConfig struct {
	Enabled bool   `json:"enabled"`
	Repo    string `json:"repo,omitempty"`    // owner/name
	Refresh string `json:"refresh,omitempty"` // Go duration string
}
