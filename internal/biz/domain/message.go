package domain

import (
	"strings"
	"time"
)

// ChatKind represents the chat type
type ChatKind string

const (
	ChatKindPrivate ChatKind = "private"
	ChatKindGroup   ChatKind = "group"
	ChatKindChannel ChatKind = "channel"
)

// MediaType is the kind of attachment a message carries
type MediaType string

const (
	MediaNone     MediaType = "none"
	MediaText     MediaType = "text"
	MediaPhoto    MediaType = "photo"
	MediaDocument MediaType = "document"
	MediaVoice    MediaType = "voice"
	MediaSticker  MediaType = "sticker"
)

// Placeholders used when a message has no usable text
const (
	UnknownUser         = "Невідомий користувач"
	UnknownName         = "Невідоме ім'я"
	NoUsername          = "без юзернейму"
	MediaWithCaption    = "[Media з підписом]: "
	MediaWithoutCaption = "[Media без підпису]"
	MediaWithoutText    = "[Media без тексту]"
)

// Author identifies a message sender
type Author struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// DisplayName returns the full name or a placeholder
func (a *Author) DisplayName() string {
	var parts []string
	if a.FirstName != "" {
		parts = append(parts, a.FirstName)
	}
	if a.LastName != "" {
		parts = append(parts, a.LastName)
	}
	if len(parts) == 0 {
		return UnknownName
	}
	return strings.Join(parts, " ")
}

// Info formats the author as "Name (юзернейм: @handle)".
// A nil author yields the unknown-user placeholder.
func (a *Author) Info() string {
	if a == nil {
		return UnknownUser
	}
	handle := NoUsername
	if a.Username != "" {
		handle = "@" + a.Username
	}
	return a.DisplayName() + " (юзернейм: " + handle + ")"
}

// Chat identifies a conversation
type Chat struct {
	ID    int64
	Title string
	Kind  ChatKind
}

// Info formats the chat title, empty when the chat has none
func (c *Chat) Info() string {
	if c == nil || c.Title == "" {
		return ""
	}
	return "Чат: " + c.Title
}

// IsPrivate reports whether the chat is a one-to-one dialog
func (c *Chat) IsPrivate() bool {
	return c != nil && c.Kind == ChatKindPrivate
}

// MediaInfo carries attachment metadata needed to fetch or describe it
type MediaInfo struct {
	FileName string
	MIMEType string
	Size     int64
}

// Forward describes the origin of a forwarded message
type Forward struct {
	SenderID   int64
	SenderName string
	Date       time.Time
}

// ContextMessage is a chat message normalized at the transport boundary
type ContextMessage struct {
	ID        int
	ReplyToID int // 0 when the message is not a reply
	Date      time.Time
	Text      string // text or caption, empty when the message has neither
	Author    *Author
	Chat      Chat
	Media     MediaType
	MediaInfo *MediaInfo
	Forward   *Forward
	Outgoing  bool
	Mentioned bool // transport-level "mentioned" flag
}

// IsReply reports whether the message replies to another one
func (m *ContextMessage) IsReply() bool {
	return m.ReplyToID != 0
}

// HasMedia reports whether the message carries an attachment
func (m *ContextMessage) HasMedia() bool {
	return m.Media != MediaNone && m.Media != MediaText && m.Media != ""
}

// DisplayText returns the text, or a media placeholder when there is none
func (m *ContextMessage) DisplayText() string {
	if m.Text != "" {
		return m.Text
	}
	return MediaWithoutText
}

// IsSelfForward reports whether the message is a forward of our own message
func (m *ContextMessage) IsSelfForward(selfID int64) bool {
	return m.Forward != nil && m.Forward.SenderID != 0 && m.Forward.SenderID == selfID
}

// IsFrom reports whether the message was sent by the given user
func (m *ContextMessage) IsFrom(userID int64) bool {
	return m.Author != nil && m.Author.ID == userID
}

// Format renders the message as a history line "Author: text"
func (m *ContextMessage) Format() string {
	return m.Author.Info() + ": " + m.DisplayText()
}

// ReplyContext is the message a command replies to
type ReplyContext struct {
	MessageID  int
	Date       time.Time
	Text       string
	AuthorInfo string
	ChatInfo   string
	Media      MediaType
}

// NewReplyContext derives the reply context from a message.
// Text falls back through text, caption placeholder and media placeholder.
func NewReplyContext(m *ContextMessage) *ReplyContext {
	rc := &ReplyContext{
		MessageID:  m.ID,
		Date:       m.Date,
		AuthorInfo: m.Author.Info(),
		ChatInfo:   m.Chat.Info(),
		Media:      m.Media,
	}
	switch {
	case m.Text != "" && !m.HasMedia():
		rc.Text = m.Text
	case m.Text != "":
		rc.Text = MediaWithCaption + m.Text
	default:
		rc.Text = MediaWithoutCaption
	}
	return rc
}
