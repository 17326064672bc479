package domain

import "sort"

// AutoResponseSet is the set of chats with auto-response enabled
type AutoResponseSet map[int64]struct{}

// NewAutoResponseSet builds a set from a list of chat ids
func NewAutoResponseSet(ids []int64) AutoResponseSet {
	s := make(AutoResponseSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Enabled reports whether auto-response is on for the chat
func (s AutoResponseSet) Enabled(chatID int64) bool {
	_, ok := s[chatID]
	return ok
}

// Toggle flips the chat and returns the new state
func (s AutoResponseSet) Toggle(chatID int64) bool {
	if s.Enabled(chatID) {
		delete(s, chatID)
		return false
	}
	s[chatID] = struct{}{}
	return true
}

// IDs returns the enabled chat ids in ascending order
func (s AutoResponseSet) IDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
