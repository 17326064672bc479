package telegram

import (
	"fmt"
	"sync"

	"github.com/gotd/td/tg"
)

// channelIDOffset separates channel ids from basic chat ids in the marked
// (Bot API style) id space: user = id, chat = -id, channel = -(1e12 + id)
const channelIDOffset int64 = 1000000000000

// PeerKind is the kind of a Telegram peer
type PeerKind int

const (
	PeerUser PeerKind = iota
	PeerChat
	PeerChannel
)

// MarkPeer returns the marked id of a peer
func MarkPeer(p tg.PeerClass) int64 {
	switch v := p.(type) {
	case *tg.PeerUser:
		return v.UserID
	case *tg.PeerChat:
		return -v.ChatID
	case *tg.PeerChannel:
		return -(channelIDOffset + v.ChannelID)
	}
	return 0
}

// UnmarkPeer splits a marked id into kind and raw id
func UnmarkPeer(marked int64) (PeerKind, int64) {
	switch {
	case marked > 0:
		return PeerUser, marked
	case marked <= -channelIDOffset:
		return PeerChannel, -marked - channelIDOffset
	default:
		return PeerChat, -marked
	}
}

// peerCache remembers users, chats and channels seen in updates and
// responses; access hashes are needed to address them later
type peerCache struct {
	mu       sync.RWMutex
	users    map[int64]*tg.User
	chats    map[int64]*tg.Chat
	channels map[int64]*tg.Channel
}

func newPeerCache() *peerCache {
	return &peerCache{
		users:    make(map[int64]*tg.User),
		chats:    make(map[int64]*tg.Chat),
		channels: make(map[int64]*tg.Channel),
	}
}

// Apply stores the entities of an update
func (c *peerCache) Apply(e tg.Entities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, u := range e.Users {
		c.storeUser(id, u)
	}
	for id, ch := range e.Chats {
		c.chats[id] = ch
	}
	for id, ch := range e.Channels {
		c.storeChannel(id, ch)
	}
}

// ApplyClasses stores users and chats returned by an API call
func (c *peerCache) ApplyClasses(users []tg.UserClass, chats []tg.ChatClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			c.storeUser(user.ID, user)
		}
	}
	for _, ch := range chats {
		switch v := ch.(type) {
		case *tg.Chat:
			c.chats[v.ID] = v
		case *tg.Channel:
			c.storeChannel(v.ID, v)
		}
	}
}

// min constructors carry no usable access hash; keep the full one
func (c *peerCache) storeUser(id int64, u *tg.User) {
	if old, ok := c.users[id]; ok && u.Min && !old.Min {
		return
	}
	c.users[id] = u
}

func (c *peerCache) storeChannel(id int64, ch *tg.Channel) {
	if old, ok := c.channels[id]; ok && ch.Min && !old.Min {
		return
	}
	c.channels[id] = ch
}

func (c *peerCache) User(id int64) (*tg.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	return u, ok
}

func (c *peerCache) Chat(id int64) (*tg.Chat, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.chats[id]
	return ch, ok
}

func (c *peerCache) Channel(id int64) (*tg.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.channels[id]
	return ch, ok
}

// InputPeer resolves a marked id to an addressable peer
func (c *peerCache) InputPeer(marked int64) (tg.InputPeerClass, error) {
	kind, id := UnmarkPeer(marked)
	switch kind {
	case PeerUser:
		u, ok := c.User(id)
		if !ok {
			return nil, fmt.Errorf("user %d not in peer cache", id)
		}
		if u.Self {
			return &tg.InputPeerSelf{}, nil
		}
		return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}, nil
	case PeerChat:
		return &tg.InputPeerChat{ChatID: id}, nil
	default:
		ch, ok := c.Channel(id)
		if !ok {
			return nil, fmt.Errorf("channel %d not in peer cache", id)
		}
		return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
	}
}

// InputChannel resolves a marked channel id
func (c *peerCache) InputChannel(marked int64) (*tg.InputChannel, bool) {
	kind, id := UnmarkPeer(marked)
	if kind != PeerChannel {
		return nil, false
	}
	ch, ok := c.Channel(id)
	if !ok {
		return nil, false
	}
	return &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, true
}
