package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/data"
	"github.com/Artemka1806/ai-telegram-userbot/internal/infra/telegram"
)

// seenTTL is how long a message id is remembered for deduplication
const seenTTL = 5 * time.Minute

// Source delivers new messages from the account's update stream
type Source interface {
	OnMessage(handler telegram.MessageHandler)
	Run(ctx context.Context, ready func(self *telegram.User)) error
}

// CommandHandler handles messages written by the account owner
type CommandHandler interface {
	HandleOutgoing(ctx context.Context, msg *domain.ContextMessage) bool
}

// IncomingHandler handles messages written by other people
type IncomingHandler interface {
	HandleIncoming(ctx context.Context, msg *domain.ContextMessage) bool
}

type msgKey struct {
	chatID int64
	msgID  int
}

// TelegramServer routes account updates to the services
type TelegramServer struct {
	source    Source
	commands  CommandHandler
	autoReply IncomingHandler
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Message deduplication cache
	seenMsgsMu sync.Mutex
	seenMsgs   map[msgKey]time.Time
}

// NewTelegramServer creates a new Telegram server
func NewTelegramServer(source Source, commands CommandHandler, autoReply IncomingHandler, logger *zap.Logger) *TelegramServer {
	return &TelegramServer{
		source:    source,
		commands:  commands,
		autoReply: autoReply,
		logger:    logger.Named("server"),
		seenMsgs:  make(map[msgKey]time.Time),
	}
}

// Start runs the update loop until ctx is done or Stop is called, then waits
// for in-flight messages to finish
func (s *TelegramServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx, s.cancel = ctx, cancel

	s.source.OnMessage(s.handleMessage)
	err := s.source.Run(ctx, func(self *telegram.User) {
		s.logger.Info("Listening for messages",
			zap.Int64("user_id", self.ID),
			zap.String("username", self.Username))
	})

	s.wg.Wait()
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		return nil
	}
	return err
}

// Stop stops the update loop
func (s *TelegramServer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// handleMessage runs on the update loop; work is moved to its own goroutine
// so a slow model call never stalls other chats
func (s *TelegramServer) handleMessage(_ context.Context, msg *telegram.Message) {
	key := msgKey{chatID: msg.ChatID, msgID: msg.MsgID}
	if !s.markMessageSeen(key) {
		s.logger.Debug("Duplicate message ignored", zap.Int64("chat_id", key.chatID), zap.Int("msg_id", key.msgID))
		return
	}

	cm := data.ToContextMessage(msg)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Message handler panicked",
					zap.Int64("chat_id", cm.Chat.ID),
					zap.Int("msg_id", cm.ID),
					zap.Error(fmt.Errorf("panic: %v", r)),
					zap.Stack("stack"))
			}
		}()
		s.route(s.ctx, &cm)
	}()
}

func (s *TelegramServer) route(ctx context.Context, msg *domain.ContextMessage) {
	if msg.Outgoing {
		s.commands.HandleOutgoing(ctx, msg)
		return
	}
	if s.autoReply != nil {
		s.autoReply.HandleIncoming(ctx, msg)
	}
}

// markMessageSeen marks a message as processed and forgets expired ones.
// It returns false when the message was already seen.
func (s *TelegramServer) markMessageSeen(key msgKey) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	if _, exists := s.seenMsgs[key]; exists {
		return false
	}
	now := time.Now()
	s.seenMsgs[key] = now

	cutoff := now.Add(-seenTTL)
	for k, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, k)
		}
	}
	return true
}
