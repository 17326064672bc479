package repo

import (
	"context"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

// RegistryRepo persists the auto-response chat set
type RegistryRepo interface {
	// Load reads the set; a missing store yields an empty set
	Load(ctx context.Context) (domain.AutoResponseSet, error)

	// Save replaces the stored set
	Save(ctx context.Context, set domain.AutoResponseSet) error
}
