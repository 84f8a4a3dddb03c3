package blob

import (
	"context"

	kit "spisbot/internal/transport"
	"spisbot/pkg/logx"
)

// telegramSink stores snapshots as pinned documents in a private chat.
// Put uploads the blob and repins the chat to the new message; Latest
// downloads whatever the pinned message carries. The adapter rejects
// pinned messages that do not hold exactly one document, which guards
// against someone pinning an unrelated message by hand.
type telegramSink struct {
	docs   kit.DocumentSender
	chatID int64
	log    logx.Logger
}

func (s *telegramSink) Put(ctx context.Context, name string, data []byte) error {
	ref, err := s.docs.SendDocument(ctx, kit.ChatTarget{ChatID: s.chatID}, kit.Document{
		Name: name,
		Data: data,
	})
	if err != nil {
		return err
	}
	if err := s.docs.PinMessage(ctx, ref); err != nil {
		// The upload survives unpinned; the next Latest would miss it,
		// so surface the error to the caller.
		return err
	}
	s.log.Debug("snapshot uploaded", logx.String("name", name), logx.Int("bytes", len(data)), logx.Int("message_id", ref.MessageID))
	return nil
}

func (s *telegramSink) Latest(ctx context.Context) (string, []byte, error) {
	return s.docs.FetchPinnedDocument(ctx, s.chatID)
}

func (s *telegramSink) Close() error { return nil }
