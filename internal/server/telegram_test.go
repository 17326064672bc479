package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/infra/telegram"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource replays queued messages, then blocks until cancelled
type fakeSource struct {
	handler  telegram.MessageHandler
	messages []*telegram.Message
	runErr   error
}

func (f *fakeSource) OnMessage(handler telegram.MessageHandler) {
	f.handler = handler
}

func (f *fakeSource) Run(ctx context.Context, ready func(self *telegram.User)) error {
	if f.runErr != nil {
		return f.runErr
	}
	ready(&telegram.User{ID: 1, Username: "artem"})
	for _, m := range f.messages {
		f.handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

type recorder struct {
	mu       sync.Mutex
	outgoing []int
	incoming []int
	block    chan struct{}
	panicOn  int
	done     chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 16)}
}

func (r *recorder) HandleOutgoing(ctx context.Context, msg *domain.ContextMessage) bool {
	defer func() { r.done <- struct{}{} }()
	if msg.ID == r.panicOn {
		panic("boom")
	}
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outgoing = append(r.outgoing, msg.ID)
	return true
}

func (r *recorder) HandleIncoming(ctx context.Context, msg *domain.ContextMessage) bool {
	defer func() { r.done <- struct{}{} }()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incoming = append(r.incoming, msg.ID)
	return true
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("handled %d of %d messages", i, n)
		}
	}
}

func message(chatID int64, id int, out bool) *telegram.Message {
	return &telegram.Message{
		ChatID:   chatID,
		ChatType: telegram.ChatPrivate,
		MsgID:    id,
		Text:     "text",
		Out:      out,
		Sender:   &telegram.User{ID: 42, FirstName: "Олена"},
	}
}

func startServer(t *testing.T, src *fakeSource, rec *recorder) (*TelegramServer, chan error) {
	t.Helper()
	srv := NewTelegramServer(src, rec, rec, zap.NewNop())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(context.Background()) }()
	return srv, errCh
}

func TestTelegramServer_RoutesByDirection(t *testing.T) {
	src := &fakeSource{messages: []*telegram.Message{
		message(42, 1, true),
		message(42, 2, false),
		message(43, 1, false),
	}}
	rec := newRecorder()
	srv, errCh := startServer(t, src, rec)

	rec.wait(t, 3)
	srv.Stop()
	require.NoError(t, <-errCh)

	assert.Equal(t, []int{1}, rec.outgoing)
	assert.ElementsMatch(t, []int{2, 1}, rec.incoming)
}

func TestTelegramServer_Dedupe(t *testing.T) {
	src := &fakeSource{messages: []*telegram.Message{
		message(42, 7, true),
		message(42, 7, true),
		message(42, 8, true),
	}}
	rec := newRecorder()
	srv, errCh := startServer(t, src, rec)

	rec.wait(t, 2)
	srv.Stop()
	require.NoError(t, <-errCh)

	assert.ElementsMatch(t, []int{7, 8}, rec.outgoing)
}

func TestTelegramServer_RecoversFromPanic(t *testing.T) {
	src := &fakeSource{messages: []*telegram.Message{
		message(42, 1, true),
		message(42, 2, true),
	}}
	rec := newRecorder()
	rec.panicOn = 1
	srv, errCh := startServer(t, src, rec)

	rec.wait(t, 2)
	srv.Stop()
	require.NoError(t, <-errCh)

	assert.Equal(t, []int{2}, rec.outgoing)
}

func TestTelegramServer_StopWaitsForInFlight(t *testing.T) {
	src := &fakeSource{messages: []*telegram.Message{message(42, 1, true)}}
	rec := newRecorder()
	rec.block = make(chan struct{})
	srv, errCh := startServer(t, src, rec)

	// let the update loop reach the handler before stopping
	require.Eventually(t, func() bool {
		srv.seenMsgsMu.Lock()
		defer srv.seenMsgsMu.Unlock()
		return len(srv.seenMsgs) == 1
	}, time.Second, 5*time.Millisecond)
	srv.Stop()

	select {
	case <-errCh:
		t.Fatal("Start returned while a message was still being handled")
	case <-time.After(50 * time.Millisecond):
	}

	close(rec.block)
	rec.wait(t, 1)
	require.NoError(t, <-errCh)
	assert.Equal(t, []int{1}, rec.outgoing)
}

func TestTelegramServer_RunError(t *testing.T) {
	src := &fakeSource{runErr: telegram.ErrNotAuthorized}
	srv := NewTelegramServer(src, newRecorder(), nil, zap.NewNop())

	err := srv.Start(context.Background())
	assert.True(t, errors.Is(err, telegram.ErrNotAuthorized))
}

func TestMarkMessageSeen_ForgetsExpired(t *testing.T) {
	srv := NewTelegramServer(&fakeSource{}, newRecorder(), nil, zap.NewNop())
	old := msgKey{chatID: 1, msgID: 1}
	srv.seenMsgs[old] = time.Now().Add(-2 * seenTTL)

	assert.True(t, srv.markMessageSeen(msgKey{chatID: 1, msgID: 2}))
	assert.False(t, srv.markMessageSeen(msgKey{chatID: 1, msgID: 2}))
	assert.NotContains(t, srv.seenMsgs, old)
}
