package repo

import (
	"context"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

// ChatRepo is the chat transport interface
// Messages are normalized to domain.ContextMessage at this boundary
type ChatRepo interface {
	// Self returns the account the process is logged in as
	Self(ctx context.Context) (*domain.Author, error)

	// GetChat returns chat information
	GetChat(ctx context.Context, chatID int64) (*domain.Chat, error)

	// GetMessage fetches a single message by id
	GetMessage(ctx context.Context, chatID int64, msgID int) (*domain.ContextMessage, error)

	// GetHistory fetches up to limit messages older than beforeID.
	// Results are in the backend's native order (newest first).
	GetHistory(ctx context.Context, chatID int64, beforeID int, limit int) ([]domain.ContextMessage, error)

	// DownloadMedia saves the message attachment under dir and returns its path
	DownloadMedia(ctx context.Context, msg *domain.ContextMessage, dir string) (string, error)

	// SendText sends a markdown message, replying to replyTo when non-zero
	SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error)

	// SendPhoto sends an image file with an optional caption
	SendPhoto(ctx context.Context, chatID int64, replyTo int, path, caption string) (int, error)

	// EditText replaces the text of one of our messages
	EditText(ctx context.Context, chatID int64, msgID int, text string) error

	// Delete deletes messages for everyone
	Delete(ctx context.Context, chatID int64, msgIDs ...int) error

	// SetTyping shows the typing indicator
	SetTyping(ctx context.Context, chatID int64) error

	// React sets an emoji reaction on a message
	React(ctx context.Context, chatID int64, msgID int, emoji string) error
}
