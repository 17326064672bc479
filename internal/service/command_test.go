package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/usecase"
)

const testChatID int64 = -100500

func outgoing(f *fixture, id int, text string) *domain.ContextMessage {
	return &domain.ContextMessage{
		ID:       id,
		Date:     time.Unix(int64(1700000000+id), 0),
		Text:     text,
		Author:   f.chat.self,
		Chat:     domain.Chat{ID: testChatID, Kind: domain.ChatKindGroup, Title: "Команда"},
		Media:    domain.MediaText,
		Outgoing: true,
	}
}

func incoming(id int, text string) domain.ContextMessage {
	return domain.ContextMessage{
		ID:     id,
		Date:   time.Unix(int64(1700000000+id), 0),
		Text:   text,
		Author: &domain.Author{ID: 42, FirstName: "Олена", Username: "olena"},
		Chat:   domain.Chat{ID: testChatID, Kind: domain.ChatKindGroup, Title: "Команда"},
		Media:  domain.MediaText,
	}
}

func TestCommandService_NotACommand(t *testing.T) {
	f := newFixture(t, nil)

	handled := f.commands.HandleOutgoing(context.Background(), outgoing(f, 10, "просто текст"))

	assert.False(t, handled)
	assert.Empty(t, f.chat.sent)
	assert.Zero(t, f.model.calls())
}

func TestCommandService_TextCommand(t *testing.T) {
	f := newFixture(t, nil)
	f.chat.add(incoming(9, "як там звіт?"))

	handled := f.commands.HandleOutgoing(context.Background(), outgoing(f, 10, ". як справи?"))
	require.True(t, handled)

	// placeholder replies to the command, the command stays
	require.Len(t, f.chat.sent, 1)
	assert.Equal(t, sentMessage{ChatID: testChatID, ReplyTo: 10, Text: usecase.Placeholder}, f.chat.sent[0])
	assert.Empty(t, f.chat.deleted)
	assert.Equal(t, 1, f.chat.typing)

	require.Len(t, f.chat.edited, 1)
	assert.Equal(t, editedMessage{MsgID: 1001, Text: "**🤖 gemini-test**\nПривіт!"}, f.chat.edited[0])

	require.Len(t, f.model.requests, 1)
	prompt := f.model.requests[0].Parts[0].Text
	assert.Contains(t, prompt, "як справи?")
	assert.Contains(t, prompt, "як там звіт?")
}

func TestCommandService_BareTriggerOnReply(t *testing.T) {
	f := newFixture(t, nil)
	f.chat.add(incoming(5, "Коли дедлайн?"))

	msg := outgoing(f, 10, ".")
	msg.ReplyToID = 5
	require.True(t, f.commands.HandleOutgoing(context.Background(), msg))

	assert.Equal(t, []int{10}, f.chat.deleted)
	require.Len(t, f.chat.sent, 1)
	assert.Equal(t, 5, f.chat.sent[0].ReplyTo)
	assert.Contains(t, f.model.requests[0].Parts[0].Text, "Коли дедлайн?")
}

func TestCommandService_NothingToActOn(t *testing.T) {
	f := newFixture(t, nil)

	require.True(t, f.commands.HandleOutgoing(context.Background(), outgoing(f, 10, ".")))

	assert.Equal(t, []int{10}, f.chat.deleted)
	assert.Empty(t, f.chat.sent)
	assert.Zero(t, f.model.calls())
}

func TestCommandService_HelpEditsCommand(t *testing.T) {
	f := newFixture(t, nil)

	require.True(t, f.commands.HandleOutgoing(context.Background(), outgoing(f, 10, ".?")))

	assert.Empty(t, f.chat.sent)
	assert.Empty(t, f.chat.deleted)
	require.Len(t, f.chat.edited, 1)
	assert.Equal(t, 10, f.chat.edited[0].MsgID)
	assert.True(t, strings.HasPrefix(f.chat.edited[0].Text, "**Команди:**"))
}

func TestCommandService_Toggle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.True(t, f.commands.HandleOutgoing(ctx, outgoing(f, 10, ".auto")))
	require.True(t, f.commands.HandleOutgoing(ctx, outgoing(f, 11, ".auto")))

	require.Len(t, f.chat.edited, 2)
	assert.Equal(t, editedMessage{MsgID: 10, Text: usecase.ToggleNotice(true)}, f.chat.edited[0])
	assert.Equal(t, editedMessage{MsgID: 11, Text: usecase.ToggleNotice(false)}, f.chat.edited[1])
	assert.Equal(t, 2, f.registry.saves)
	assert.False(t, f.registry.set.Enabled(testChatID))
}

func TestCommandService_ModelFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.model.err = errors.New("quota exceeded")

	require.True(t, f.commands.HandleOutgoing(context.Background(), outgoing(f, 10, ". текст")))

	require.Len(t, f.chat.edited, 1)
	assert.Equal(t, editedMessage{MsgID: 1001, Text: domain.ErrorNotice}, f.chat.edited[0])
}

func TestCommandService_InputError(t *testing.T) {
	f := newFixture(t, nil)

	require.True(t, f.commands.HandleOutgoing(context.Background(), outgoing(f, 10, ".f")))

	require.Len(t, f.chat.edited, 1)
	assert.Equal(t, domain.UserMessage(domain.ErrNoDocument), f.chat.edited[0].Text)
	assert.Zero(t, f.model.calls())
}

func TestCommandService_PlaceholderFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.chat.sendErr = errors.New("flood wait")

	require.True(t, f.commands.HandleOutgoing(context.Background(), outgoing(f, 10, ". текст")))

	// the answer still goes out, but there is nothing to edit
	assert.Empty(t, f.chat.edited)
	assert.Equal(t, 1, f.model.calls())
}

func TestCommandService_SelfForwardIgnored(t *testing.T) {
	f := newFixture(t, nil)
	msg := outgoing(f, 10, ". переслано")
	msg.Forward = &domain.Forward{SenderID: f.chat.self.ID}

	assert.False(t, f.commands.HandleOutgoing(context.Background(), msg))
	assert.Zero(t, f.model.calls())
}

func TestCommandService_SingleMessageNearLimit(t *testing.T) {
	f := newFixture(t, nil)
	f.model.text = strings.Repeat("я", 3990)

	require.True(t, f.commands.HandleOutgoing(context.Background(), outgoing(f, 10, ".h Поясни теорію відносності")))

	// only the placeholder was sent, the answer fits into its edit
	require.Len(t, f.chat.sent, 1)
	require.Len(t, f.chat.edited, 1)
	assert.Equal(t, "**🤖 gemini-test**\n"+f.model.text, f.chat.edited[0].Text)
}

func TestCommandService_OwnChunksAreNotCommands(t *testing.T) {
	f := newFixture(t, nil)
	f.model.text = strings.Repeat("a", 3000) + "\n\n...і ще одне: " + strings.Repeat("b", 2000)
	ctx := context.Background()

	require.True(t, f.commands.HandleOutgoing(ctx, outgoing(f, 10, ". розкажи")))
	require.Len(t, f.chat.sent, 2)
	follow := f.chat.sent[1]
	require.True(t, strings.HasPrefix(follow.Text, "..."), "chunk starts with %q", follow.Text[:10])

	// the follow-up chunk comes back as an outgoing update
	assert.False(t, f.commands.HandleOutgoing(ctx, outgoing(f, 1002, follow.Text)))
	assert.False(t, f.commands.HandleOutgoing(ctx, outgoing(f, 1001, f.chat.edited[0].Text)))
	assert.Equal(t, 1, f.model.calls())
	assert.Len(t, f.chat.sent, 2)
}
