package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/usecase"
)

// CommandService handles commands typed by the account owner
type CommandService struct {
	chatRepo   repo.ChatRepo
	parser     *usecase.CommandParser
	dispatcher *usecase.DispatcherUsecase
	delivery   *usecase.DeliveryUsecase
	logger     *zap.Logger
}

// NewCommandService creates a new command service
func NewCommandService(
	chatRepo repo.ChatRepo,
	parser *usecase.CommandParser,
	dispatcher *usecase.DispatcherUsecase,
	delivery *usecase.DeliveryUsecase,
	logger *zap.Logger,
) *CommandService {
	return &CommandService{
		chatRepo:   chatRepo,
		parser:     parser,
		dispatcher: dispatcher,
		delivery:   delivery,
		logger:     logger.Named("command"),
	}
}

// HandleOutgoing processes one of our own messages. It reports whether the
// message was a command.
func (s *CommandService) HandleOutgoing(ctx context.Context, msg *domain.ContextMessage) bool {
	// our own responses echo back as outgoing messages
	if s.delivery.SentByUs(msg.Chat.ID, msg.ID) {
		return false
	}

	self, err := s.chatRepo.Self(ctx)
	if err != nil {
		s.logger.Error("Get self failed", zap.Error(err))
		return false
	}
	if msg.IsSelfForward(self.ID) {
		return false
	}

	cmd, ok := s.parser.Parse(msg.Text)
	if !ok {
		return false
	}

	logger := s.logger.With(
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Int("msg_id", msg.ID),
		zap.String("mode", cmd.Mode.String()))
	logger.Debug("Command received", zap.Int("context_limit", cmd.ContextLimit))

	reply := fetchReply(ctx, s.chatRepo, s.logger, msg)
	target := usecase.Target{ChatID: msg.Chat.ID, ReplyTo: msg.ID}
	if reply != nil {
		target.ReplyTo = reply.ID
	}

	job := s.dispatcher.Prepare(ctx, &usecase.DispatchRequest{
		Command: cmd,
		Message: msg,
		Reply:   reply,
		Self:    self,
	})

	// help and toggle answer by editing the command itself
	if cmd.Mode.IsLocal() {
		target.PlaceholderID = msg.ID
		outcome, err := s.dispatcher.Run(ctx, job)
		s.finish(ctx, logger, target, outcome, err)
		return true
	}

	if job.Noop() {
		logger.Debug("Nothing to act on, discarding command")
		s.deleteMessage(ctx, logger, msg)
		return true
	}

	// a bare trigger is replaced by the answer
	if !cmd.HasText() {
		s.deleteMessage(ctx, logger, msg)
		if reply == nil {
			target.ReplyTo = 0
		}
	}

	placeholderID, err := s.delivery.SendPlaceholder(ctx, target.ChatID, target.ReplyTo)
	if err != nil {
		logger.Error("Send placeholder failed", zap.Error(err))
	}
	target.PlaceholderID = placeholderID

	if err := s.chatRepo.SetTyping(ctx, target.ChatID); err != nil {
		logger.Debug("Set typing failed", zap.Error(err))
	}

	outcome, err := s.dispatcher.Run(ctx, job)
	s.finish(ctx, logger, target, outcome, err)
	return true
}

// finish delivers the outcome, or the error notice when the command failed
func (s *CommandService) finish(ctx context.Context, logger *zap.Logger, target usecase.Target, outcome *domain.Outcome, err error) {
	if err != nil {
		if domain.IsInputError(err) {
			logger.Info("Command rejected", zap.Error(err))
		} else {
			logger.Error("Command failed", zap.Error(err))
		}
		if nerr := s.delivery.Notify(ctx, target, domain.UserMessage(err)); nerr != nil {
			logger.Error("Send error notice failed", zap.Error(nerr))
		}
		return
	}

	if err := s.delivery.Deliver(ctx, target, outcome); err != nil {
		logger.Error("Deliver response failed", zap.Error(err))
		if nerr := s.delivery.Notify(ctx, target, domain.ErrorNotice); nerr != nil {
			logger.Error("Send error notice failed", zap.Error(nerr))
		}
		return
	}
	logger.Info("Command completed", zap.String("model", outcome.Model))
}

func (s *CommandService) deleteMessage(ctx context.Context, logger *zap.Logger, msg *domain.ContextMessage) {
	if err := s.chatRepo.Delete(ctx, msg.Chat.ID, msg.ID); err != nil {
		logger.Warn("Delete command message failed", zap.Error(err))
	}
}

// fetchReply returns the replied-to message, nil when there is none or it is gone
func fetchReply(ctx context.Context, chatRepo repo.ChatRepo, logger *zap.Logger, msg *domain.ContextMessage) *domain.ContextMessage {
	if !msg.IsReply() {
		return nil
	}
	reply, err := chatRepo.GetMessage(ctx, msg.Chat.ID, msg.ReplyToID)
	if err != nil {
		logger.Warn("Get replied-to message failed",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("reply_to", msg.ReplyToID),
			zap.Error(err))
		return nil
	}
	return reply
}
