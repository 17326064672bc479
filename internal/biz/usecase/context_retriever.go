package usecase

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

// replyContextDistance is how far (in message ids) a replied-to message must be
// from the command before its own surroundings are fetched
const replyContextDistance = 5

// ContextRetrieverUsecase fetches conversation history around a message
type ContextRetrieverUsecase struct {
	chatRepo repo.ChatRepo
	logger   *zap.Logger
}

// NewContextRetrieverUsecase creates a new context retriever usecase
func NewContextRetrieverUsecase(chatRepo repo.ChatRepo, logger *zap.Logger) *ContextRetrieverUsecase {
	return &ContextRetrieverUsecase{chatRepo: chatRepo, logger: logger.Named("context")}
}

// Fetch returns up to limit messages preceding anchor, oldest first.
// The anchor itself is never included. Backend errors are logged and
// yield an empty result.
func (uc *ContextRetrieverUsecase) Fetch(ctx context.Context, anchor *domain.ContextMessage, limit int) []domain.ContextMessage {
	if anchor == nil || limit < 1 {
		return nil
	}

	// one extra in case the backend includes the anchor
	native, err := uc.chatRepo.GetHistory(ctx, anchor.Chat.ID, anchor.ID, limit+1)
	if err != nil {
		uc.logger.Error("Get chat history failed",
			zap.Int64("chat_id", anchor.Chat.ID),
			zap.Int("anchor", anchor.ID),
			zap.Error(err))
		return nil
	}

	result := make([]domain.ContextMessage, 0, limit)
	for _, m := range native {
		if m.ID == anchor.ID {
			continue
		}
		result = append(result, m)
		if len(result) >= limit {
			break
		}
	}

	// native order is newest first
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.Before(result[j].Date)
	})

	uc.logger.Debug("Retrieved context",
		zap.Int64("chat_id", anchor.Chat.ID),
		zap.Int("requested", limit),
		zap.Int("got", len(result)))
	return result
}

// FetchAround fetches the command's history and, when the replied-to message
// is far enough from the command, the reply's own surroundings. Both fetches
// run concurrently.
func (uc *ContextRetrieverUsecase) FetchAround(
	ctx context.Context,
	command *domain.ContextMessage,
	reply *domain.ContextMessage,
	limit int,
) (history, replyHistory []domain.ContextMessage) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		history = uc.Fetch(gctx, command, limit)
		return nil
	})

	if NeedsReplyContext(command, reply) {
		g.Go(func() error {
			replyHistory = uc.Fetch(gctx, reply, limit)
			return nil
		})
	}

	_ = g.Wait()
	return history, replyHistory
}

// NeedsReplyContext reports whether the reply is far enough from the command
// that the ambient history does not cover it
func NeedsReplyContext(command, reply *domain.ContextMessage) bool {
	if command == nil || reply == nil || command.ID == reply.ID {
		return false
	}
	d := command.ID - reply.ID
	if d < 0 {
		d = -d
	}
	return d >= replyContextDistance
}
