package transport

import "context"

type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Document is an outgoing file attachment.
type Document struct {
	Name    string
	Caption string
	Data    []byte
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
}

// DocumentSender is implemented by adapters that can exchange file
// attachments with a chat. The pinned-document pair is what the snapshot
// backend uses: PinMessage after upload, FetchPinnedDocument on restore.
type DocumentSender interface {
	SendDocument(ctx context.Context, to ChatTarget, doc Document) (MessageRef, error)
	PinMessage(ctx context.Context, ref MessageRef) error
	// FetchPinnedDocument downloads the single document attached to the
	// chat's pinned message. It fails when the pinned message carries
	// anything other than exactly one document.
	FetchPinnedDocument(ctx context.Context, chatID int64) (name string, data []byte, err error)
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific bot command menus (e.g. Telegram /menu list).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
