package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

// Reactions Telegram accepts as standard emoji reactions
var allowedReactions = []string{
	"👍", "👎", "❤", "🔥", "🥰", "👏", "😁", "🤔", "🤯", "😱", "🤬", "😢", "🎉", "🤩",
	"🤮", "💩", "🙏", "👌", "🕊", "🤡", "🥱", "🥴", "😍", "🐳", "❤‍🔥", "🌚", "🌭", "💯",
	"🤣", "⚡", "🍌", "🏆", "💔", "🤨", "😐", "🍓", "🍾", "💋", "😈", "😴", "😭", "🤓",
	"👻", "👨‍💻", "👀", "🎃", "🙈", "😇", "😨", "🤝", "✍", "🤗", "🫡", "🎅", "🎄", "☃",
	"💅", "🤪", "🗿", "🆒", "💘", "🙉", "🦄", "😘", "💊", "🙊", "😎", "👾", "🤷", "😡",
}

// ReactionUsecase suggests emoji reactions for incoming messages
type ReactionUsecase struct {
	reactionRepo repo.ReactionRepo
	allowed      map[string]bool
	logger       *zap.Logger
}

// NewReactionUsecase creates a new reaction usecase.
// A nil repo disables suggestions.
func NewReactionUsecase(reactionRepo repo.ReactionRepo, logger *zap.Logger) *ReactionUsecase {
	allowed := make(map[string]bool, len(allowedReactions))
	for _, r := range allowedReactions {
		allowed[r] = true
	}
	return &ReactionUsecase{reactionRepo: reactionRepo, allowed: allowed, logger: logger.Named("reaction")}
}

// IsEnabled returns whether suggestions are enabled
func (uc *ReactionUsecase) IsEnabled() bool {
	return uc.reactionRepo != nil
}

// Suggest returns an allowed emoji for msg, or empty for none
func (uc *ReactionUsecase) Suggest(ctx context.Context, msg *domain.ContextMessage, history []domain.ContextMessage) string {
	if uc.reactionRepo == nil || msg == nil {
		return ""
	}

	var sb strings.Builder
	for i := range history {
		sb.WriteString(history[i].Format())
		sb.WriteString("\n")
	}

	emoji, err := uc.reactionRepo.SuggestReaction(ctx, msg.Format(), sb.String())
	if err != nil {
		uc.logger.Warn("Suggest reaction failed", zap.Error(err))
		return ""
	}
	return uc.Normalize(emoji)
}

// Normalize maps a model answer to an allowed reaction or empty
func (uc *ReactionUsecase) Normalize(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return ""
	}
	// variation selectors are not part of Telegram's reaction keys
	answer = strings.ReplaceAll(answer, "\ufe0f", "")
	if fields := strings.Fields(answer); len(fields) > 0 {
		answer = fields[0]
	}
	if uc.allowed[answer] {
		return answer
	}
	return ""
}
