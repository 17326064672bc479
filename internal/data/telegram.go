package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
	"github.com/Artemka1806/ai-telegram-userbot/internal/infra/telegram"
)

// TelegramClient is the part of the MTProto client the chat repository uses
type TelegramClient interface {
	Self() *telegram.User
	ChatInfo(chatID int64) (telegram.ChatType, string)
	GetHistory(ctx context.Context, chatID int64, offsetID, limit int) ([]*telegram.Message, error)
	GetMessage(ctx context.Context, chatID int64, msgID int) (*telegram.Message, error)
	Download(ctx context.Context, msg *telegram.Message, path string) error
	SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error)
	SendPhoto(ctx context.Context, chatID int64, replyTo int, path, caption string) (int, error)
	EditText(ctx context.Context, chatID int64, msgID int, text string) error
	Delete(ctx context.Context, chatID int64, msgIDs ...int) error
	SetTyping(ctx context.Context, chatID int64) error
	React(ctx context.Context, chatID int64, msgID int, emoji string) error
}

// telegramRepo implements the chat repository on top of the MTProto client
type telegramRepo struct {
	client TelegramClient
}

// NewTelegramRepo creates a Telegram chat repository
func NewTelegramRepo(client TelegramClient) repo.ChatRepo {
	return &telegramRepo{client: client}
}

func (r *telegramRepo) Self(ctx context.Context) (*domain.Author, error) {
	u := r.client.Self()
	if u == nil {
		return nil, fmt.Errorf("telegram client is not logged in")
	}
	return toAuthor(u), nil
}

func (r *telegramRepo) GetChat(ctx context.Context, chatID int64) (*domain.Chat, error) {
	kind, title := r.client.ChatInfo(chatID)
	return &domain.Chat{ID: chatID, Title: title, Kind: chatKind(kind)}, nil
}

func (r *telegramRepo) GetMessage(ctx context.Context, chatID int64, msgID int) (*domain.ContextMessage, error) {
	msg, err := r.client.GetMessage(ctx, chatID, msgID)
	if err != nil {
		return nil, err
	}
	cm := ToContextMessage(msg)
	return &cm, nil
}

func (r *telegramRepo) GetHistory(ctx context.Context, chatID int64, beforeID int, limit int) ([]domain.ContextMessage, error) {
	msgs, err := r.client.GetHistory(ctx, chatID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ContextMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ToContextMessage(m))
	}
	return out, nil
}

// DownloadMedia refetches the message so the file reference is fresh
func (r *telegramRepo) DownloadMedia(ctx context.Context, msg *domain.ContextMessage, dir string) (string, error) {
	tm, err := r.client.GetMessage(ctx, msg.Chat.ID, msg.ID)
	if err != nil {
		return "", err
	}
	if tm.Media == telegram.MediaNone {
		return "", fmt.Errorf("message %d has no media", msg.ID)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	name := filepath.Base(tm.FileName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "media"
	}
	path := filepath.Join(dir, fmt.Sprintf("%d_%s_%s", msg.ID, uuid.NewString()[:8], name))
	if err := r.client.Download(ctx, tm, path); err != nil {
		return "", err
	}
	return path, nil
}

func (r *telegramRepo) SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	return r.client.SendText(ctx, chatID, replyTo, text)
}

func (r *telegramRepo) SendPhoto(ctx context.Context, chatID int64, replyTo int, path, caption string) (int, error) {
	return r.client.SendPhoto(ctx, chatID, replyTo, path, caption)
}

func (r *telegramRepo) EditText(ctx context.Context, chatID int64, msgID int, text string) error {
	return r.client.EditText(ctx, chatID, msgID, text)
}

func (r *telegramRepo) Delete(ctx context.Context, chatID int64, msgIDs ...int) error {
	return r.client.Delete(ctx, chatID, msgIDs...)
}

func (r *telegramRepo) SetTyping(ctx context.Context, chatID int64) error {
	return r.client.SetTyping(ctx, chatID)
}

func (r *telegramRepo) React(ctx context.Context, chatID int64, msgID int, emoji string) error {
	return r.client.React(ctx, chatID, msgID, emoji)
}

// ToContextMessage normalizes a transport message
func ToContextMessage(m *telegram.Message) domain.ContextMessage {
	cm := domain.ContextMessage{
		ID:        m.MsgID,
		ReplyToID: m.ReplyToID,
		Date:      m.Date,
		Text:      m.Text,
		Chat:      domain.Chat{ID: m.ChatID, Title: m.ChatTitle, Kind: chatKind(m.ChatType)},
		Media:     mediaType(m),
		Outgoing:  m.Out,
		Mentioned: m.Mentioned,
	}
	if m.Sender != nil {
		cm.Author = toAuthor(m.Sender)
	}
	if m.Media != telegram.MediaNone {
		cm.MediaInfo = &domain.MediaInfo{FileName: m.FileName, MIMEType: m.MIMEType, Size: m.FileSize}
	}
	if m.Forward != nil {
		cm.Forward = &domain.Forward{
			SenderID:   m.Forward.FromID,
			SenderName: m.Forward.FromName,
			Date:       m.Forward.Date,
		}
	}
	return cm
}

func toAuthor(u *telegram.User) *domain.Author {
	return &domain.Author{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username}
}

func chatKind(t telegram.ChatType) domain.ChatKind {
	switch t {
	case telegram.ChatGroup:
		return domain.ChatKindGroup
	case telegram.ChatChannel:
		return domain.ChatKindChannel
	default:
		return domain.ChatKindPrivate
	}
}

func mediaType(m *telegram.Message) domain.MediaType {
	switch m.Media {
	case telegram.MediaPhoto:
		return domain.MediaPhoto
	case telegram.MediaDocument:
		return domain.MediaDocument
	case telegram.MediaVoice:
		return domain.MediaVoice
	case telegram.MediaSticker:
		return domain.MediaSticker
	case telegram.MediaOther:
		// attachments the bot cannot read still count as media for placeholders
		return domain.MediaDocument
	}
	if m.Text != "" {
		return domain.MediaText
	}
	return domain.MediaNone
}
