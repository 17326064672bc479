package repo

import "context"

// ReactionRepo suggests an emoji reaction for a message
type ReactionRepo interface {
	// SuggestReaction returns a single emoji, or empty for no reaction
	SuggestReaction(ctx context.Context, message, history string) (string, error)
}
