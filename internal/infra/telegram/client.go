package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/telegram/updates"
	updhook "github.com/gotd/td/telegram/updates/hook"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/session"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
)

// ErrNotAuthorized is returned when the session has no logged-in account
// and no authenticator is configured
var ErrNotAuthorized = errors.New("telegram session is not authorized, run the login command first")

// ErrMessageNotFound is returned when a message id does not resolve
var ErrMessageNotFound = errors.New("message not found")

// dialogWarmupLimit bounds the dialogs fetched to seed the peer cache
const dialogWarmupLimit = 100

// Config holds client settings
type Config struct {
	APIID   int
	APIHash string
	Storage session.Storage
	// Authenticator answers login prompts; nil means never log in interactively
	Authenticator auth.UserAuthenticator
	Logger        *zap.Logger
}

// MessageHandler is the callback for new messages
type MessageHandler func(ctx context.Context, msg *Message)

// Client is the Telegram user account client
type Client struct {
	cfg       Config
	client    *telegram.Client
	gaps      *updates.Manager
	sender    *message.Sender
	peers     *peerCache
	logger    *zap.Logger
	onMessage MessageHandler
	self      atomic.Pointer[tg.User]
}

// NewClient creates a new Telegram client
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:    cfg,
		peers:  newPeerCache(),
		logger: logger.Named("telegram"),
	}

	d := tg.NewUpdateDispatcher()
	d.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		return c.handleMessage(ctx, e, u.Message)
	})
	d.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		return c.handleMessage(ctx, e, u.Message)
	})

	c.gaps = updates.New(updates.Config{
		Handler: d,
		Logger:  c.logger.Named("updates"),
	})
	c.client = telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		Logger:         c.logger.Named("mtproto").WithOptions(zap.IncreaseLevel(zap.WarnLevel)),
		SessionStorage: cfg.Storage,
		UpdateHandler:  c.gaps,
		Middlewares: []telegram.Middleware{
			updhook.UpdateHook(c.gaps.Handle),
		},
	})
	c.sender = message.NewSender(c.client.API())
	return c
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Login connects and runs the authentication flow if needed
func (c *Client) Login(ctx context.Context) (*User, error) {
	var self *User
	err := c.client.Run(ctx, func(ctx context.Context) error {
		if err := c.authorize(ctx); err != nil {
			return err
		}
		u, err := c.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("get self: %w", err)
		}
		self = toUser(u)
		return nil
	})
	return self, err
}

// Run connects, authorizes and dispatches updates until ctx is done.
// ready is called once the account is known and updates are flowing.
func (c *Client) Run(ctx context.Context, ready func(self *User)) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		if err := c.authorize(ctx); err != nil {
			return err
		}

		self, err := c.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("get self: %w", err)
		}
		c.self.Store(self)
		c.peers.ApplyClasses([]tg.UserClass{self}, nil)

		if err := c.warmPeers(ctx); err != nil {
			c.logger.Warn("Failed to load dialogs", zap.Error(err))
		}

		c.logger.Info("Logged in",
			zap.Int64("user_id", self.ID),
			zap.String("username", self.Username),
		)
		return c.gaps.Run(ctx, c.client.API(), self.ID, updates.AuthOptions{
			OnStart: func(ctx context.Context) {
				if ready != nil {
					ready(toUser(self))
				}
			},
		})
	})
}

func (c *Client) authorize(ctx context.Context) error {
	if c.cfg.Authenticator == nil {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			return ErrNotAuthorized
		}
		return nil
	}
	flow := auth.NewFlow(c.cfg.Authenticator, auth.SendCodeOptions{})
	if err := c.client.Auth().IfNecessary(ctx, flow); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	return nil
}

// warmPeers loads recent dialogs so their access hashes are known
func (c *Client) warmPeers(ctx context.Context) error {
	res, err := c.client.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogWarmupLimit,
	})
	if err != nil {
		return err
	}
	switch v := res.(type) {
	case *tg.MessagesDialogs:
		c.peers.ApplyClasses(v.Users, v.Chats)
	case *tg.MessagesDialogsSlice:
		c.peers.ApplyClasses(v.Users, v.Chats)
	}
	return nil
}

func (c *Client) handleMessage(ctx context.Context, e tg.Entities, m tg.MessageClass) error {
	c.peers.Apply(e)
	msg, ok := m.(*tg.Message)
	if !ok || c.onMessage == nil {
		return nil
	}
	c.onMessage(ctx, c.convertMessage(msg))
	return nil
}

func (c *Client) selfID() int64 {
	if u := c.self.Load(); u != nil {
		return u.ID
	}
	return 0
}

// Self returns the logged-in account, nil before Run has authorized
func (c *Client) Self() *User {
	u := c.self.Load()
	if u == nil {
		return nil
	}
	return toUser(u)
}

// ChatInfo returns the chat type and title from the peer cache
func (c *Client) ChatInfo(chatID int64) (ChatType, string) {
	return c.chatInfo(chatID)
}

// GetHistory returns up to limit messages older than offsetID, newest first.
// offsetID 0 starts from the latest message.
func (c *Client) GetHistory(ctx context.Context, chatID int64, offsetID, limit int) ([]*Message, error) {
	peer, err := c.peers.InputPeer(chatID)
	if err != nil {
		return nil, err
	}
	res, err := c.client.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     peer,
		OffsetID: offsetID,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return c.collectMessages(res), nil
}

// GetMessage fetches a single message
func (c *Client) GetMessage(ctx context.Context, chatID int64, msgID int) (*Message, error) {
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: msgID}}

	var (
		res tg.MessagesMessagesClass
		err error
	)
	if ch, ok := c.peers.InputChannel(chatID); ok {
		res, err = c.client.API().ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: ch,
			ID:      ids,
		})
	} else {
		res, err = c.client.API().MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	for _, m := range c.collectMessages(res) {
		if m.MsgID == msgID {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrMessageNotFound, msgID)
}

func (c *Client) collectMessages(res tg.MessagesMessagesClass) []*Message {
	var raw []tg.MessageClass
	switch v := res.(type) {
	case *tg.MessagesMessages:
		c.peers.ApplyClasses(v.Users, v.Chats)
		raw = v.Messages
	case *tg.MessagesMessagesSlice:
		c.peers.ApplyClasses(v.Users, v.Chats)
		raw = v.Messages
	case *tg.MessagesChannelMessages:
		c.peers.ApplyClasses(v.Users, v.Chats)
		raw = v.Messages
	}

	out := make([]*Message, 0, len(raw))
	for _, m := range raw {
		// service messages and empty slots carry no content
		if msg, ok := m.(*tg.Message); ok {
			out = append(out, c.convertMessage(msg))
		}
	}
	return out
}

// Download saves the message attachment to path
func (c *Client) Download(ctx context.Context, msg *Message, path string) error {
	if msg.location == nil {
		return fmt.Errorf("message %d has no downloadable media", msg.MsgID)
	}
	if _, err := downloader.NewDownloader().Download(c.client.API(), msg.location).ToPath(ctx, path); err != nil {
		return fmt.Errorf("download media: %w", err)
	}
	return nil
}

func (c *Client) builder(chatID int64, replyTo int) (*message.Builder, error) {
	peer, err := c.peers.InputPeer(chatID)
	if err != nil {
		return nil, err
	}
	rb := c.sender.To(peer)
	if replyTo != 0 {
		return rb.Reply(replyTo), nil
	}
	return &rb.Builder, nil
}

// SendText sends markdown text and returns the new message id.
// Text the server rejects as formatted is resent as plain text.
func (c *Client) SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	b, err := c.builder(chatID, replyTo)
	if err != nil {
		return 0, err
	}
	upd, err := b.StyledText(ctx, Styled(text))
	if err != nil && formattingRejected(ctx, err) {
		c.logger.Debug("Formatted send rejected, sending plain text", zap.Error(err))
		upd, err = b.Text(ctx, text)
	}
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sentMessageID(upd), nil
}

// SendPhoto uploads an image and sends it with an optional markdown caption
func (c *Client) SendPhoto(ctx context.Context, chatID int64, replyTo int, path, caption string) (int, error) {
	b, err := c.builder(chatID, replyTo)
	if err != nil {
		return 0, err
	}
	file, err := uploader.NewUploader(c.client.API()).FromPath(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("upload photo: %w", err)
	}

	var opts []styling.StyledTextOption
	if caption != "" {
		opts = append(opts, Styled(caption))
	}
	upd, err := b.Media(ctx, message.UploadedPhoto(file, opts...))
	if err != nil && caption != "" && formattingRejected(ctx, err) {
		upd, err = b.Media(ctx, message.UploadedPhoto(file, styling.Plain(caption)))
	}
	if err != nil {
		return 0, fmt.Errorf("send photo: %w", err)
	}
	return sentMessageID(upd), nil
}

// EditText replaces the text of a sent message
func (c *Client) EditText(ctx context.Context, chatID int64, msgID int, text string) error {
	peer, err := c.peers.InputPeer(chatID)
	if err != nil {
		return err
	}
	eb := c.sender.To(peer).Edit(msgID)
	_, err = eb.StyledText(ctx, Styled(text))
	if err != nil && !tgerr.Is(err, "MESSAGE_NOT_MODIFIED") && formattingRejected(ctx, err) {
		_, err = eb.Text(ctx, text)
	}
	if err != nil && !tgerr.Is(err, "MESSAGE_NOT_MODIFIED") {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// Delete deletes messages for everyone
func (c *Client) Delete(ctx context.Context, chatID int64, msgIDs ...int) error {
	if len(msgIDs) == 0 {
		return nil
	}
	var err error
	if ch, ok := c.peers.InputChannel(chatID); ok {
		_, err = c.client.API().ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
			Channel: ch,
			ID:      msgIDs,
		})
	} else {
		_, err = c.client.API().MessagesDeleteMessages(ctx, &tg.MessagesDeleteMessagesRequest{
			Revoke: true,
			ID:     msgIDs,
		})
	}
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

// SetTyping shows the typing indicator in a chat
func (c *Client) SetTyping(ctx context.Context, chatID int64) error {
	peer, err := c.peers.InputPeer(chatID)
	if err != nil {
		return err
	}
	if _, err := c.client.API().MessagesSetTyping(ctx, &tg.MessagesSetTypingRequest{
		Peer:   peer,
		Action: &tg.SendMessageTypingAction{},
	}); err != nil {
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

// React sets an emoji reaction on a message
func (c *Client) React(ctx context.Context, chatID int64, msgID int, emoji string) error {
	peer, err := c.peers.InputPeer(chatID)
	if err != nil {
		return err
	}
	if _, err := c.client.API().MessagesSendReaction(ctx, &tg.MessagesSendReactionRequest{
		Peer:     peer,
		MsgID:    msgID,
		Reaction: []tg.ReactionClass{&tg.ReactionEmoji{Emoticon: emoji}},
	}); err != nil {
		return fmt.Errorf("send reaction: %w", err)
	}
	return nil
}

// formattingRejected reports whether a styled send should be retried as
// plain text: the server refused the request, or the HTML did not parse
func formattingRejected(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if rpcErr, ok := tgerr.As(err); ok {
		return rpcErr.Code == 400
	}
	var netErr interface{ Timeout() bool }
	return !errors.As(err, &netErr)
}

// sentMessageID extracts the id of the message a send call created
func sentMessageID(upd tg.UpdatesClass) int {
	switch v := upd.(type) {
	case *tg.UpdateShortSentMessage:
		return v.ID
	case *tg.Updates:
		return idFromUpdates(v.Updates)
	case *tg.UpdatesCombined:
		return idFromUpdates(v.Updates)
	}
	return 0
}

func idFromUpdates(list []tg.UpdateClass) int {
	for _, u := range list {
		switch v := u.(type) {
		case *tg.UpdateMessageID:
			return v.ID
		case *tg.UpdateNewMessage:
			return v.Message.GetID()
		case *tg.UpdateNewChannelMessage:
			return v.Message.GetID()
		}
	}
	return 0
}

func toUser(u *tg.User) *User {
	return &User{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username}
}
