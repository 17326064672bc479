package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

// Placeholder is sent while a command is processed
const Placeholder = "⏳"

// maxCaptionLength is Telegram's photo caption limit
const maxCaptionLength = 1024

// sentTTL is how long sent message ids are remembered
const sentTTL = 10 * time.Minute

type sentKey struct {
	chatID int64
	msgID  int
}

// Target is where a response goes
type Target struct {
	ChatID        int64
	ReplyTo       int // message the response replies to, 0 for none
	PlaceholderID int // placeholder to replace, 0 when none was sent
}

// DeliveryUsecase sends outcomes back to the chat
type DeliveryUsecase struct {
	chatRepo repo.ChatRepo
	maxLen   int
	delay    time.Duration
	logger   *zap.Logger

	sentMu sync.Mutex
	sent   map[sentKey]time.Time
}

// NewDeliveryUsecase creates a new delivery usecase.
// delay is the pause between consecutive chunks of one response.
func NewDeliveryUsecase(chatRepo repo.ChatRepo, maxLen int, delay time.Duration, logger *zap.Logger) *DeliveryUsecase {
	if maxLen < 1 {
		maxLen = DefaultMaxMessageLength
	}
	return &DeliveryUsecase{
		chatRepo: chatRepo,
		maxLen:   maxLen,
		delay:    delay,
		logger:   logger.Named("delivery"),
		sent:     make(map[sentKey]time.Time),
	}
}

// SendPlaceholder posts the pending indicator and returns its id
func (uc *DeliveryUsecase) SendPlaceholder(ctx context.Context, chatID int64, replyTo int) (int, error) {
	id, err := uc.sendText(ctx, chatID, replyTo, Placeholder)
	if err != nil {
		return 0, fmt.Errorf("send placeholder: %w", err)
	}
	return id, nil
}

// SentByUs reports whether the message was posted by this usecase.
// Those messages come back as outgoing updates and must not be taken for commands.
func (uc *DeliveryUsecase) SentByUs(chatID int64, msgID int) bool {
	uc.sentMu.Lock()
	defer uc.sentMu.Unlock()
	_, ok := uc.sent[sentKey{chatID: chatID, msgID: msgID}]
	return ok
}

func (uc *DeliveryUsecase) remember(chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	now := time.Now()
	uc.sentMu.Lock()
	defer uc.sentMu.Unlock()
	for k, at := range uc.sent {
		if now.Sub(at) > sentTTL {
			delete(uc.sent, k)
		}
	}
	uc.sent[sentKey{chatID: chatID, msgID: msgID}] = now
}

func (uc *DeliveryUsecase) sendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	id, err := uc.chatRepo.SendText(ctx, chatID, replyTo, text)
	if err != nil {
		return 0, err
	}
	uc.remember(chatID, id)
	return id, nil
}

// Deliver sends an outcome: text is chunked with the first chunk replacing
// the placeholder, images are sent as photos and the placeholder removed.
func (uc *DeliveryUsecase) Deliver(ctx context.Context, t Target, outcome *domain.Outcome) error {
	switch outcome.Kind {
	case domain.OutcomeNoop:
		return nil
	case domain.OutcomeFailure:
		return uc.Notify(ctx, t, outcome.Text)
	}

	if outcome.HasImages() {
		return uc.deliverImages(ctx, t, outcome)
	}
	return uc.deliverText(ctx, t, Header(outcome.Model), outcome.Text)
}

// Notify replaces the placeholder with a short notice, or replies with it
// when there is no placeholder
func (uc *DeliveryUsecase) Notify(ctx context.Context, t Target, text string) error {
	if t.PlaceholderID != 0 {
		if err := uc.chatRepo.EditText(ctx, t.ChatID, t.PlaceholderID, text); err != nil {
			return fmt.Errorf("edit placeholder: %w", err)
		}
		return nil
	}
	if _, err := uc.sendText(ctx, t.ChatID, t.ReplyTo, text); err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	return nil
}

// deliverText chunks the body alone; the header goes on top of the first
// chunk and the page marker below each one, both outside the length limit.
func (uc *DeliveryUsecase) deliverText(ctx context.Context, t Target, header, body string) error {
	chunks := Chunk(body, uc.maxLen)
	limiter := uc.limiter()

	for _, c := range chunks {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		text := c.Render()
		if c.IsFirst() {
			text = header + text
		}

		if c.IsFirst() && t.PlaceholderID != 0 {
			if err := uc.chatRepo.EditText(ctx, t.ChatID, t.PlaceholderID, text); err != nil {
				return fmt.Errorf("edit chunk %d/%d: %w", c.Index, c.Total, err)
			}
			continue
		}

		if _, err := uc.sendText(ctx, t.ChatID, t.ReplyTo, text); err != nil {
			return fmt.Errorf("send chunk %d/%d: %w", c.Index, c.Total, err)
		}
	}

	if len(chunks) > 1 {
		uc.logger.Debug("Response split", zap.Int64("chat_id", t.ChatID), zap.Int("chunks", len(chunks)))
	}
	return nil
}

func (uc *DeliveryUsecase) deliverImages(ctx context.Context, t Target, outcome *domain.Outcome) error {
	defer RemoveFiles(uc.logger, outcome.Images...)

	caption := Header(outcome.Model) + outcome.Text
	if r := []rune(caption); len(r) > maxCaptionLength {
		caption = string(r[:maxCaptionLength-3]) + "..."
	}

	for i, path := range outcome.Images {
		c := ""
		if i == 0 {
			c = caption
		}
		id, err := uc.chatRepo.SendPhoto(ctx, t.ChatID, t.ReplyTo, path, c)
		if err != nil {
			return fmt.Errorf("send image: %w", err)
		}
		uc.remember(t.ChatID, id)
	}

	if t.PlaceholderID != 0 {
		if err := uc.chatRepo.Delete(ctx, t.ChatID, t.PlaceholderID); err != nil {
			uc.logger.Warn("Delete placeholder failed", zap.Int("msg_id", t.PlaceholderID), zap.Error(err))
		}
	}
	return nil
}

func (uc *DeliveryUsecase) limiter() *rate.Limiter {
	if uc.delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(uc.delay), 1)
}

// Header is the model banner prepended to responses
func Header(model string) string {
	if model == "" {
		return ""
	}
	return fmt.Sprintf("**🤖 %s**\n", model)
}
