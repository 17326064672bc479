package telegram

import (
	"strings"
	"time"

	"github.com/gotd/td/tg"
)

// MediaKind classifies a message attachment
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaVoice    MediaKind = "voice"
	MediaSticker  MediaKind = "sticker"
	MediaOther    MediaKind = "other"
)

// ChatType is the kind of conversation a message belongs to
type ChatType string

const (
	ChatPrivate ChatType = "private"
	ChatGroup   ChatType = "group"
	ChatChannel ChatType = "channel"
)

// User represents a Telegram user
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// Message represents a received Telegram message
type Message struct {
	ChatID    int64 // marked id
	ChatType  ChatType
	ChatTitle string
	MsgID     int
	ReplyToID int
	Date      time.Time
	Text      string
	Sender    *User // nil for anonymous admins and unknown senders
	Out       bool
	Mentioned bool

	Media     MediaKind
	FileName  string
	MIMEType  string
	FileSize  int64
	Forward   *Forward
	location  tg.InputFileLocationClass
}

// Forward is the origin of a forwarded message
type Forward struct {
	FromID   int64 // marked id, 0 when hidden
	FromName string
	Date     time.Time
}

// HasMedia reports whether the attachment can be downloaded
func (m *Message) HasMedia() bool {
	return m.location != nil
}

// convertMessage flattens a tg message using the peer cache for names
func (c *Client) convertMessage(msg *tg.Message) *Message {
	m := &Message{
		ChatID:    MarkPeer(msg.PeerID),
		MsgID:     msg.ID,
		Date:      time.Unix(int64(msg.Date), 0),
		Text:      msg.Message,
		Out:       msg.Out,
		Mentioned: msg.Mentioned,
	}

	if hdr, ok := msg.GetReplyTo(); ok {
		if r, ok := hdr.(*tg.MessageReplyHeader); ok {
			m.ReplyToID, _ = r.GetReplyToMsgID()
		}
	}

	m.ChatType, m.ChatTitle = c.chatInfo(m.ChatID)
	m.Sender = c.senderOf(msg, m.ChatID)

	if fwd, ok := msg.GetFwdFrom(); ok {
		m.Forward = &Forward{Date: time.Unix(int64(fwd.Date), 0)}
		if from, ok := fwd.GetFromID(); ok {
			m.Forward.FromID = MarkPeer(from)
		}
		m.Forward.FromName, _ = fwd.GetFromName()
	}

	if media, ok := msg.GetMedia(); ok {
		fillMedia(m, media)
	}
	return m
}

func (c *Client) chatInfo(chatID int64) (ChatType, string) {
	kind, id := UnmarkPeer(chatID)
	switch kind {
	case PeerChat:
		if ch, ok := c.peers.Chat(id); ok {
			return ChatGroup, ch.Title
		}
		return ChatGroup, ""
	case PeerChannel:
		if ch, ok := c.peers.Channel(id); ok {
			if ch.Broadcast {
				return ChatChannel, ch.Title
			}
			return ChatGroup, ch.Title
		}
		return ChatGroup, ""
	default:
		return ChatPrivate, ""
	}
}

func (c *Client) senderOf(msg *tg.Message, chatID int64) *User {
	var userID int64
	if from, ok := msg.GetFromID(); ok {
		p, ok := from.(*tg.PeerUser)
		if !ok {
			return nil
		}
		userID = p.UserID
	} else if chatID > 0 {
		// private chats omit from_id for the other side
		userID = chatID
		if msg.Out {
			userID = c.selfID()
		}
	}
	if userID == 0 {
		return nil
	}

	u, ok := c.peers.User(userID)
	if !ok {
		return &User{ID: userID}
	}
	return &User{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username}
}

func fillMedia(m *Message, media tg.MessageMediaClass) {
	switch v := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := v.Photo.(*tg.Photo)
		if !ok {
			return
		}
		thumb, size := largestPhotoSize(photo.Sizes)
		if thumb == "" {
			return
		}
		m.Media = MediaPhoto
		m.MIMEType = "image/jpeg"
		m.FileName = "photo.jpg"
		m.FileSize = size
		m.location = &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     thumb,
		}
	case *tg.MessageMediaDocument:
		doc, ok := v.Document.(*tg.Document)
		if !ok {
			return
		}
		m.Media = MediaDocument
		m.MIMEType = doc.MimeType
		m.FileSize = doc.Size
		for _, a := range doc.Attributes {
			switch attr := a.(type) {
			case *tg.DocumentAttributeFilename:
				m.FileName = attr.FileName
			case *tg.DocumentAttributeAudio:
				// audio files and voice notes are both transcribable
				m.Media = MediaVoice
			case *tg.DocumentAttributeVideo:
				if attr.RoundMessage {
					m.Media = MediaVoice
				} else {
					m.Media = MediaOther
				}
			case *tg.DocumentAttributeSticker:
				m.Media = MediaSticker
			}
		}
		if m.FileName == "" {
			m.FileName = "file" + extensionFor(doc.MimeType)
		}
		m.location = &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}
	case *tg.MessageMediaWebPage, *tg.MessageMediaEmpty:
		// link previews belong to the text
	default:
		m.Media = MediaOther
	}
}

// largestPhotoSize returns the type letter and byte size of the biggest size
func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, int64) {
	var (
		thumb string
		best  int64
	)
	for _, s := range sizes {
		switch v := s.(type) {
		case *tg.PhotoSize:
			if int64(v.Size) >= best {
				thumb, best = v.Type, int64(v.Size)
			}
		case *tg.PhotoSizeProgressive:
			if n := len(v.Sizes); n > 0 && int64(v.Sizes[n-1]) >= best {
				thumb, best = v.Type, int64(v.Sizes[n-1])
			}
		}
	}
	return thumb, best
}

func extensionFor(mime string) string {
	switch {
	case mime == "audio/ogg":
		return ".ogg"
	case mime == "image/webp":
		return ".webp"
	case mime == "application/pdf":
		return ".pdf"
	case strings.HasPrefix(mime, "audio/"):
		return ".mp3"
	case strings.HasPrefix(mime, "video/"):
		return ".mp4"
	case strings.HasPrefix(mime, "text/"):
		return ".txt"
	}
	return ""
}
