package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

// Mock implementations

type sentMessage struct {
	ChatID  int64
	ReplyTo int
	Text    string
	Photo   string
}

type editedMessage struct {
	ChatID int64
	MsgID  int
	Text   string
}

type mockChatRepo struct {
	mu sync.Mutex

	self       *domain.Author
	history    map[int64][]domain.ContextMessage // newest first
	historyErr error
	media      map[int]string // msg id -> file content
	downloads  []string

	nextID   int
	photoErr error
	sent     []sentMessage
	edited  []editedMessage
	deleted []int
	reacted map[int]string
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{
		self:    &domain.Author{ID: 1, FirstName: "Артем", Username: "artem"},
		history: make(map[int64][]domain.ContextMessage),
		media:   make(map[int]string),
		reacted: make(map[int]string),
		nextID:  1000,
	}
}

func (m *mockChatRepo) Self(ctx context.Context) (*domain.Author, error) {
	return m.self, nil
}

func (m *mockChatRepo) GetChat(ctx context.Context, chatID int64) (*domain.Chat, error) {
	return &domain.Chat{ID: chatID, Kind: domain.ChatKindGroup}, nil
}

func (m *mockChatRepo) GetMessage(ctx context.Context, chatID int64, msgID int) (*domain.ContextMessage, error) {
	for _, msg := range m.history[chatID] {
		if msg.ID == msgID {
			msg := msg
			return &msg, nil
		}
	}
	return nil, errors.New("message not found")
}

func (m *mockChatRepo) GetHistory(ctx context.Context, chatID int64, beforeID int, limit int) ([]domain.ContextMessage, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	var result []domain.ContextMessage
	for _, msg := range m.history[chatID] {
		if msg.ID > beforeID {
			continue
		}
		result = append(result, msg)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockChatRepo) DownloadMedia(ctx context.Context, msg *domain.ContextMessage, dir string) (string, error) {
	content, ok := m.media[msg.ID]
	if !ok {
		return "", errors.New("no media")
	}
	name := "media"
	if msg.MediaInfo != nil && msg.MediaInfo.FileName != "" {
		name = msg.MediaInfo.FileName
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.downloads = append(m.downloads, path)
	m.mu.Unlock()
	return path, nil
}

func (m *mockChatRepo) SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return m.nextID, nil
}

func (m *mockChatRepo) SendPhoto(ctx context.Context, chatID int64, replyTo int, path, caption string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.photoErr != nil {
		return 0, m.photoErr
	}
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, ReplyTo: replyTo, Text: caption, Photo: path})
	return m.nextID, nil
}

func (m *mockChatRepo) EditText(ctx context.Context, chatID int64, msgID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edited = append(m.edited, editedMessage{ChatID: chatID, MsgID: msgID, Text: text})
	return nil
}

func (m *mockChatRepo) Delete(ctx context.Context, chatID int64, msgIDs ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, msgIDs...)
	return nil
}

func (m *mockChatRepo) SetTyping(ctx context.Context, chatID int64) error {
	return nil
}

func (m *mockChatRepo) React(ctx context.Context, chatID int64, msgID int, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reacted[msgID] = emoji
	return nil
}

type mockModelRepo struct {
	mu sync.Mutex

	text      *domain.Generation
	textErr   error
	refined   string
	image     *domain.ImageGeneration
	imageErr  error
	uploadErr error

	textRequests  []*repo.TextRequest
	imageRequests []*repo.ImageRequest
	uploads       []string
}

func (m *mockModelRepo) GenerateText(ctx context.Context, req *repo.TextRequest) (*domain.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textRequests = append(m.textRequests, req)
	if m.textErr != nil {
		return nil, m.textErr
	}
	// refinement calls carry no system instruction
	if req.SystemInstruction == "" && m.refined != "" {
		return &domain.Generation{Text: m.refined}, nil
	}
	if m.text == nil {
		return &domain.Generation{}, nil
	}
	return m.text, nil
}

func (m *mockModelRepo) GenerateImage(ctx context.Context, req *repo.ImageRequest) (*domain.ImageGeneration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageRequests = append(m.imageRequests, req)
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	if m.image == nil {
		return &domain.ImageGeneration{}, nil
	}
	return m.image, nil
}

func (m *mockModelRepo) UploadFile(ctx context.Context, path, mimeType string) (*domain.UploadedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.uploads = append(m.uploads, path)
	return &domain.UploadedFile{Name: "files/1", URI: "https://files/" + filepath.Base(path), MIMEType: mimeType}, nil
}

func (m *mockModelRepo) TextModel() string  { return "gemini-2.0-flash" }
func (m *mockModelRepo) ImageModel() string { return "gemini-2.0-flash-image" }

type mockRegistryRepo struct {
	set     domain.AutoResponseSet
	loadErr error
	saves   int
}

func (m *mockRegistryRepo) Load(ctx context.Context) (domain.AutoResponseSet, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return domain.NewAutoResponseSet(m.set.IDs()), nil
}

func (m *mockRegistryRepo) Save(ctx context.Context, set domain.AutoResponseSet) error {
	m.set = set
	m.saves++
	return nil
}

type mockConverter struct {
	err   error
	calls []string
}

func (m *mockConverter) ToPDF(ctx context.Context, path string) (string, error) {
	m.calls = append(m.calls, path)
	if m.err != nil {
		return "", m.err
	}
	if filepath.Ext(path) == ".pdf" {
		return path, nil
	}
	out := path + ".pdf"
	if err := os.WriteFile(out, []byte("%PDF-1.4"), 0644); err != nil {
		return "", err
	}
	return out, nil
}

type mockReactionRepo struct {
	answer  string
	err     error
	message string
	history string
}

func (m *mockReactionRepo) SuggestReaction(ctx context.Context, message, history string) (string, error) {
	m.message = message
	m.history = history
	return m.answer, m.err
}
