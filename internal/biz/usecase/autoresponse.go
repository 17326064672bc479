package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

// AutoResponseUsecase decides on unsolicited replies and toggles chats
type AutoResponseUsecase struct {
	registry repo.RegistryRepo
	logger   *zap.Logger

	// serializes load-modify-save in Toggle
	mu sync.Mutex
}

// NewAutoResponseUsecase creates a new auto-response usecase
func NewAutoResponseUsecase(registry repo.RegistryRepo, logger *zap.Logger) *AutoResponseUsecase {
	return &AutoResponseUsecase{registry: registry, logger: logger.Named("autoresponse")}
}

// ShouldRespond determines whether an incoming message gets an auto-reply.
// reply is the message msg replies to, nil when it is not a reply.
// Private chats need only the chat to be enabled; groups additionally need a
// mention of self or a reply to one of self's messages.
func (uc *AutoResponseUsecase) ShouldRespond(
	ctx context.Context,
	msg *domain.ContextMessage,
	self *domain.Author,
	reply *domain.ContextMessage,
) bool {
	if msg == nil || self == nil || msg.Outgoing || msg.IsFrom(self.ID) {
		return false
	}

	enabled, err := uc.registry.Load(ctx)
	if err != nil {
		uc.logger.Error("Load auto-response registry failed", zap.Error(err))
		return false
	}
	if !enabled.Enabled(msg.Chat.ID) {
		return false
	}

	if msg.Chat.IsPrivate() {
		return true
	}

	return Mentions(msg, self) || (reply != nil && reply.IsFrom(self.ID))
}

// Toggle flips auto-response for a chat and persists the result
func (uc *AutoResponseUsecase) Toggle(ctx context.Context, chatID int64) (bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	enabled, err := uc.registry.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load registry: %w", err)
	}
	state := enabled.Toggle(chatID)
	if err := uc.registry.Save(ctx, enabled); err != nil {
		return false, fmt.Errorf("save registry: %w", err)
	}

	uc.logger.Info("Auto-response toggled", zap.Int64("chat_id", chatID), zap.Bool("enabled", state))
	return state, nil
}

// ToggleNotice is the acknowledgement for a toggle
func ToggleNotice(enabled bool) string {
	if enabled {
		return "✅ Автовідповідь увімкнено"
	}
	return "❌ Автовідповідь вимкнено"
}

// Mentions reports whether msg mentions self by flag or by handle
func Mentions(msg *domain.ContextMessage, self *domain.Author) bool {
	if msg.Mentioned {
		return true
	}
	if self.Username == "" {
		return false
	}
	return containsHandle(strings.ToLower(msg.Text), "@"+strings.ToLower(self.Username))
}

// containsHandle matches handle only where it is not part of a longer username
func containsHandle(text, handle string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], handle)
		if j < 0 {
			return false
		}
		end := i + j + len(handle)
		next, _ := utf8.DecodeRuneInString(text[end:])
		if end == len(text) || !isUsernameRune(next) {
			return true
		}
		i = end
	}
}

func isUsernameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
