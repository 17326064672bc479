package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/usecase"
)

// Mock implementations

type sentMessage struct {
	ChatID  int64
	ReplyTo int
	Text    string
}

type editedMessage struct {
	MsgID int
	Text  string
}

type mockChatRepo struct {
	mu sync.Mutex

	self     *domain.Author
	messages map[int]domain.ContextMessage // by id, single chat
	nextID   int
	sendErr  error

	sent    []sentMessage
	edited  []editedMessage
	deleted []int
	typing  int
	reacted map[int]string
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{
		self:     &domain.Author{ID: 1, FirstName: "Артем", Username: "artem"},
		messages: make(map[int]domain.ContextMessage),
		reacted:  make(map[int]string),
		nextID:   1000,
	}
}

func (m *mockChatRepo) add(msg domain.ContextMessage) {
	m.messages[msg.ID] = msg
}

func (m *mockChatRepo) Self(ctx context.Context) (*domain.Author, error) {
	return m.self, nil
}

func (m *mockChatRepo) GetChat(ctx context.Context, chatID int64) (*domain.Chat, error) {
	return &domain.Chat{ID: chatID}, nil
}

func (m *mockChatRepo) GetMessage(ctx context.Context, chatID int64, msgID int) (*domain.ContextMessage, error) {
	msg, ok := m.messages[msgID]
	if !ok {
		return nil, errors.New("message not found")
	}
	return &msg, nil
}

func (m *mockChatRepo) GetHistory(ctx context.Context, chatID int64, beforeID int, limit int) ([]domain.ContextMessage, error) {
	var result []domain.ContextMessage
	for id := beforeID; id > 0 && len(result) < limit; id-- {
		if msg, ok := m.messages[id]; ok {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *mockChatRepo) DownloadMedia(ctx context.Context, msg *domain.ContextMessage, dir string) (string, error) {
	return "", errors.New("no media")
}

func (m *mockChatRepo) SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return m.nextID, nil
}

func (m *mockChatRepo) SendPhoto(ctx context.Context, chatID int64, replyTo int, path, caption string) (int, error) {
	return m.SendText(ctx, chatID, replyTo, caption)
}

func (m *mockChatRepo) EditText(ctx context.Context, chatID int64, msgID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edited = append(m.edited, editedMessage{MsgID: msgID, Text: text})
	return nil
}

func (m *mockChatRepo) Delete(ctx context.Context, chatID int64, msgIDs ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, msgIDs...)
	return nil
}

func (m *mockChatRepo) SetTyping(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing++
	return nil
}

func (m *mockChatRepo) React(ctx context.Context, chatID int64, msgID int, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reacted[msgID] = emoji
	return nil
}

type mockModelRepo struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []*repo.TextRequest
}

func (m *mockModelRepo) GenerateText(ctx context.Context, req *repo.TextRequest) (*domain.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Generation{Text: m.text}, nil
}

func (m *mockModelRepo) GenerateImage(ctx context.Context, req *repo.ImageRequest) (*domain.ImageGeneration, error) {
	return &domain.ImageGeneration{}, nil
}

func (m *mockModelRepo) UploadFile(ctx context.Context, path, mimeType string) (*domain.UploadedFile, error) {
	return nil, errors.New("upload not expected")
}

func (m *mockModelRepo) TextModel() string  { return "gemini-test" }
func (m *mockModelRepo) ImageModel() string { return "gemini-image-test" }

func (m *mockModelRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type mockRegistryRepo struct {
	mu    sync.Mutex
	set   domain.AutoResponseSet
	saves int
}

func (m *mockRegistryRepo) Load(ctx context.Context) (domain.AutoResponseSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.NewAutoResponseSet(m.set.IDs()), nil
}

func (m *mockRegistryRepo) Save(ctx context.Context, set domain.AutoResponseSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set = set
	m.saves++
	return nil
}

type mockConverter struct{}

func (mockConverter) ToPDF(ctx context.Context, path string) (string, error) {
	return path, nil
}

type mockReactionRepo struct {
	answer string
}

func (m *mockReactionRepo) SuggestReaction(ctx context.Context, message, history string) (string, error) {
	return m.answer, nil
}

// fixture wires real usecases around the mocks

type fixture struct {
	chat     *mockChatRepo
	model    *mockModelRepo
	registry *mockRegistryRepo
	reaction *mockReactionRepo

	commands  *CommandService
	autoReply *AutoReplyService
}

func newFixture(t *testing.T, reaction *mockReactionRepo) *fixture {
	t.Helper()
	f := &fixture{
		chat:     newMockChatRepo(),
		model:    &mockModelRepo{text: "Привіт!"},
		registry: &mockRegistryRepo{},
		reaction: reaction,
	}
	logger := zap.NewNop()

	parser, err := usecase.NewCommandParser(usecase.DefaultCommandConfig)
	require.NoError(t, err)

	autoUC := usecase.NewAutoResponseUsecase(f.registry, logger)
	dispatcher := usecase.NewDispatcherUsecase(
		f.chat,
		f.model,
		mockConverter{},
		usecase.NewContextRetrieverUsecase(f.chat, logger),
		usecase.NewPromptAssembler(usecase.DefaultPromptConfig),
		parser,
		autoUC,
		t.TempDir(),
		logger,
	)
	delivery := usecase.NewDeliveryUsecase(f.chat, usecase.DefaultMaxMessageLength, 0, logger)

	var reactionRepo repo.ReactionRepo
	if reaction != nil {
		reactionRepo = reaction
	}

	f.commands = NewCommandService(f.chat, parser, dispatcher, delivery, logger)
	f.autoReply = NewAutoReplyService(
		f.chat,
		autoUC,
		usecase.NewReactionUsecase(reactionRepo, logger),
		dispatcher,
		delivery,
		usecase.DefaultCommandConfig.DefaultLimit,
		logger,
	)
	return f
}
