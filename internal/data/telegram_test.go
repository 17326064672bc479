package data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/infra/telegram"
)

// fakeTelegramClient serves canned messages; Download writes the file name
type fakeTelegramClient struct {
	self       *telegram.User
	messages   map[int]*telegram.Message
	downloaded []string
}

func (f *fakeTelegramClient) Self() *telegram.User { return f.self }

func (f *fakeTelegramClient) ChatInfo(chatID int64) (telegram.ChatType, string) {
	return telegram.ChatGroup, "Team"
}

func (f *fakeTelegramClient) GetHistory(ctx context.Context, chatID int64, offsetID, limit int) ([]*telegram.Message, error) {
	var out []*telegram.Message
	for id := offsetID - 1; id > 0 && len(out) < limit; id-- {
		if m, ok := f.messages[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeTelegramClient) GetMessage(ctx context.Context, chatID int64, msgID int) (*telegram.Message, error) {
	m, ok := f.messages[msgID]
	if !ok {
		return nil, telegram.ErrMessageNotFound
	}
	return m, nil
}

func (f *fakeTelegramClient) Download(ctx context.Context, msg *telegram.Message, path string) error {
	f.downloaded = append(f.downloaded, path)
	return os.WriteFile(path, []byte(msg.FileName), 0644)
}

func (f *fakeTelegramClient) SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	return 100, nil
}

func (f *fakeTelegramClient) SendPhoto(ctx context.Context, chatID int64, replyTo int, path, caption string) (int, error) {
	return 101, nil
}

func (f *fakeTelegramClient) EditText(ctx context.Context, chatID int64, msgID int, text string) error {
	return nil
}

func (f *fakeTelegramClient) Delete(ctx context.Context, chatID int64, msgIDs ...int) error {
	return nil
}

func (f *fakeTelegramClient) SetTyping(ctx context.Context, chatID int64) error { return nil }

func (f *fakeTelegramClient) React(ctx context.Context, chatID int64, msgID int, emoji string) error {
	return nil
}

func TestToContextMessage(t *testing.T) {
	date := time.Unix(1700000000, 0)
	m := &telegram.Message{
		ChatID:    -1000000000555,
		ChatType:  telegram.ChatGroup,
		ChatTitle: "Team",
		MsgID:     12,
		ReplyToID: 5,
		Date:      date,
		Text:      "look",
		Sender:    &telegram.User{ID: 42, FirstName: "Олена", Username: "olena"},
		Mentioned: true,
		Media:     telegram.MediaPhoto,
		FileName:  "photo.jpg",
		MIMEType:  "image/jpeg",
		Forward:   &telegram.Forward{FromID: 1, Date: date},
	}

	cm := ToContextMessage(m)
	assert.Equal(t, 12, cm.ID)
	assert.Equal(t, 5, cm.ReplyToID)
	assert.True(t, cm.IsReply())
	assert.Equal(t, domain.Chat{ID: -1000000000555, Title: "Team", Kind: domain.ChatKindGroup}, cm.Chat)
	assert.Equal(t, domain.MediaPhoto, cm.Media)
	assert.Equal(t, "image/jpeg", cm.MediaInfo.MIMEType)
	assert.Equal(t, "Олена (юзернейм: @olena)", cm.Author.Info())
	assert.True(t, cm.Mentioned)
	assert.True(t, cm.IsSelfForward(1))
}

func TestToContextMessage_MediaTypes(t *testing.T) {
	tests := []struct {
		media telegram.MediaKind
		text  string
		want  domain.MediaType
	}{
		{telegram.MediaNone, "hi", domain.MediaText},
		{telegram.MediaNone, "", domain.MediaNone},
		{telegram.MediaVoice, "", domain.MediaVoice},
		{telegram.MediaSticker, "", domain.MediaSticker},
		{telegram.MediaDocument, "caption", domain.MediaDocument},
		{telegram.MediaOther, "", domain.MediaDocument},
	}
	for _, tt := range tests {
		cm := ToContextMessage(&telegram.Message{Media: tt.media, Text: tt.text})
		assert.Equal(t, tt.want, cm.Media, "%s/%q", tt.media, tt.text)
	}

	// anonymous senders stay nil so the unknown-user placeholder is used
	cm := ToContextMessage(&telegram.Message{Text: "x"})
	assert.Nil(t, cm.Author)
	assert.Equal(t, domain.UnknownUser+": x", cm.Format())
}

func TestTelegramRepo_DownloadMedia(t *testing.T) {
	client := &fakeTelegramClient{messages: map[int]*telegram.Message{
		7: {ChatID: -7, MsgID: 7, Media: telegram.MediaDocument, FileName: "../report.docx"},
		8: {ChatID: -7, MsgID: 8, Text: "plain"},
	}}
	r := NewTelegramRepo(client)
	dir := filepath.Join(t.TempDir(), "dl")

	path, err := r.DownloadMedia(context.Background(), &domain.ContextMessage{ID: 7, Chat: domain.Chat{ID: -7}}, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "7_"))
	assert.True(t, strings.HasSuffix(path, "_report.docx"))
	assert.FileExists(t, path)

	_, err = r.DownloadMedia(context.Background(), &domain.ContextMessage{ID: 8, Chat: domain.Chat{ID: -7}}, dir)
	assert.Error(t, err)
}

func TestTelegramRepo_HistoryAndSelf(t *testing.T) {
	client := &fakeTelegramClient{messages: map[int]*telegram.Message{
		1: {MsgID: 1, Text: "one"},
		2: {MsgID: 2, Text: "two"},
		3: {MsgID: 3, Text: "three"},
	}}
	r := NewTelegramRepo(client)

	_, err := r.Self(context.Background())
	assert.Error(t, err)

	client.self = &telegram.User{ID: 1, FirstName: "Артем"}
	self, err := r.Self(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Артем", self.FirstName)

	history, err := r.GetHistory(context.Background(), -7, 4, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[0].ID)
	assert.Equal(t, 2, history[1].ID)

	chat, err := r.GetChat(context.Background(), -7)
	require.NoError(t, err)
	assert.Equal(t, "Чат: Team", chat.Info())
}
