package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const yamlConfig = `
telegram:
  token: "123:abc"
  poll_timeout: "15s"
  owner_user_ids: [1, 2]
  group_log: -100500
logging:
  level: "debug"
  console: true
  file:
    enabled: false
  telegram:
    enabled: true
    min_level: "warn"
    rate_per_sec: 1
spis:
  body_limit: 300
  editor_chat_id: -100123
  autosave: true
  autosave_every: "30m"
  timezone: "Europe/Warsaw"
blob:
  driver: "file"
  path: "./snapshots"
storage:
  driver: "file"
  path: "./audit.jsonl"
changelog:
  enabled: true
  repo: "example/spisbot"
  refresh: "1h"
`

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", yamlConfig)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("Token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.OwnerUserIDs) != 2 || cfg.Telegram.OwnerUserIDs[1] != 2 {
		t.Fatalf("OwnerUserIDs = %v", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.Telegram.GroupLog != -100500 {
		t.Fatalf("GroupLog = %d", cfg.Telegram.GroupLog)
	}
	if cfg.Spis.BodyLimit != 300 || !cfg.Spis.Autosave || cfg.Spis.Timezone != "Europe/Warsaw" {
		t.Fatalf("Spis = %+v", cfg.Spis)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("Storage = %+v", cfg.Storage)
	}
	if cfg.Changelog == nil || cfg.Changelog.Repo != "example/spisbot" {
		t.Fatalf("Changelog = %+v", cfg.Changelog)
	}

	if got := m.Get(); got != cfg {
		t.Fatalf("Get should return the committed config")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"telegram":{"token":"t","owner_user_ids":[7]},"logging":{"level":"info","console":true,"file":{},"telegram":{}},"spis":{"autosave":false},"blob":{"driver":"file"}}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "t" || cfg.Telegram.OwnerUserIDs[0] != 7 {
		t.Fatalf("cfg = %+v", cfg.Telegram)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.yaml", "telegram:\n  token: x\n  bogus_field: 1\n")
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatalf("unknown field should be rejected")
	}
}

func TestLoadMissingFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := m.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", "30m"); err != nil || d != 30*time.Minute {
		t.Fatalf("got (%v, %v)", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: got (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "banan"); err == nil {
		t.Fatalf("invalid duration should fail")
	}

	if d, err := ParseDurationOrDefault("x", "", 5*time.Second); err != nil || d != 5*time.Second {
		t.Fatalf("default: got (%v, %v)", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "2h", 5*time.Second); err != nil || d != 2*time.Hour {
		t.Fatalf("override: got (%v, %v)", d, err)
	}
}
