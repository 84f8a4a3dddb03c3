// Package blob abstracts the append-only sink that state snapshots are
// written to. Two drivers exist: a local directory and a Telegram chat
// where each snapshot is uploaded as a document and pinned.
package blob

import (
	"context"
	"fmt"
	"strings"

	"spisbot/internal/config"
	kit "spisbot/internal/transport"
	"spisbot/pkg/logx"
)

type Sink interface {
	// Put appends a named blob. The name encodes the snapshot timestamp.
	Put(ctx context.Context, name string, data []byte) error
	// Latest returns the most recent blob or an error when there is none.
	Latest(ctx context.Context) (name string, data []byte, err error)
	Close() error
}

// Open builds a Sink from configuration.
func Open(cfg config.BlobConfig, docs kit.DocumentSender, log logx.Logger) (Sink, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return newFileSink(cfg.Path, log)
	case "telegram":
		if docs == nil {
			return nil, fmt.Errorf("blob driver %q requires a document-capable adapter", cfg.Driver)
		}
		if cfg.ChatID == 0 {
			return nil, fmt.Errorf("blob driver %q requires chat_id", cfg.Driver)
		}
		return &telegramSink{docs: docs, chatID: cfg.ChatID, log: log}, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
