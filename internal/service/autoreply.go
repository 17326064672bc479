package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/usecase"
)

// AutoReplyService answers incoming messages in chats with auto-response enabled
type AutoReplyService struct {
	chatRepo     repo.ChatRepo
	autoUC       *usecase.AutoResponseUsecase
	reactionUC   *usecase.ReactionUsecase
	dispatcher   *usecase.DispatcherUsecase
	delivery     *usecase.DeliveryUsecase
	contextLimit int
	logger       *zap.Logger
}

// NewAutoReplyService creates a new auto-reply service.
// contextLimit is the amount of history given to the model.
func NewAutoReplyService(
	chatRepo repo.ChatRepo,
	autoUC *usecase.AutoResponseUsecase,
	reactionUC *usecase.ReactionUsecase,
	dispatcher *usecase.DispatcherUsecase,
	delivery *usecase.DeliveryUsecase,
	contextLimit int,
	logger *zap.Logger,
) *AutoReplyService {
	return &AutoReplyService{
		chatRepo:     chatRepo,
		autoUC:       autoUC,
		reactionUC:   reactionUC,
		dispatcher:   dispatcher,
		delivery:     delivery,
		contextLimit: contextLimit,
		logger:       logger.Named("autoreply"),
	}
}

// HandleIncoming answers msg when the chat has auto-response enabled.
// It reports whether a reply was attempted.
func (s *AutoReplyService) HandleIncoming(ctx context.Context, msg *domain.ContextMessage) bool {
	if msg.Outgoing {
		return false
	}
	self, err := s.chatRepo.Self(ctx)
	if err != nil {
		s.logger.Error("Get self failed", zap.Error(err))
		return false
	}

	// groups are gated on replies to us, so the replied-to message is needed
	var reply *domain.ContextMessage
	if !msg.Chat.IsPrivate() {
		reply = fetchReply(ctx, s.chatRepo, s.logger, msg)
	}
	if !s.autoUC.ShouldRespond(ctx, msg, self, reply) {
		return false
	}

	logger := s.logger.With(zap.Int64("chat_id", msg.Chat.ID), zap.Int("msg_id", msg.ID))
	logger.Info("Auto-replying")

	// the incoming message is both the trigger and the message answered
	job := s.dispatcher.Prepare(ctx, &usecase.DispatchRequest{
		Command: &domain.Command{Mode: domain.ModeDefault, ContextLimit: s.contextLimit},
		Message: msg,
		Reply:   msg,
		Self:    self,
	})

	target := usecase.Target{ChatID: msg.Chat.ID}
	if !msg.Chat.IsPrivate() {
		target.ReplyTo = msg.ID
	}

	if err := s.chatRepo.SetTyping(ctx, msg.Chat.ID); err != nil {
		logger.Debug("Set typing failed", zap.Error(err))
	}

	var (
		outcome *domain.Outcome
		emoji   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		outcome, err = s.dispatcher.Run(gctx, job)
		return err
	})
	if s.reactionUC.IsEnabled() {
		g.Go(func() error {
			emoji = s.reactionUC.Suggest(gctx, msg, job.History)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// other people never see our error notices
		logger.Error("Auto-reply failed", zap.Error(err))
		return true
	}

	if emoji != "" {
		if err := s.chatRepo.React(ctx, msg.Chat.ID, msg.ID, emoji); err != nil {
			logger.Warn("Set reaction failed", zap.String("emoji", emoji), zap.Error(err))
		}
	}

	if outcome.Kind != domain.OutcomeReply {
		logger.Info("No auto-reply produced", zap.String("notice", outcome.Text))
		return true
	}
	if err := s.delivery.Deliver(ctx, target, outcome); err != nil {
		logger.Error("Deliver auto-reply failed", zap.Error(err))
	}
	return true
}
