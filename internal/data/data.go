package data

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

// Repositories contains all repositories
type Repositories struct {
	Chat      repo.ChatRepo
	Model     repo.ModelRepo
	Registry  repo.RegistryRepo
	Converter repo.DocumentConverter
	Reaction  repo.ReactionRepo // nil when reactions are disabled

	registry *RegistryRepo
}

// Options configures the repositories
type Options struct {
	Gemini           GeminiConfig
	OpenAI           OpenAIConfig
	ReactionsEnabled bool
	RegistryPath     string
	TempDir          string
	PDFFontPath      string
}

// NewRepositories creates all repositories
func NewRepositories(ctx context.Context, client TelegramClient, opts Options, logger *zap.Logger) (*Repositories, error) {
	modelRepo, err := NewGeminiRepo(ctx, opts.Gemini, logger)
	if err != nil {
		return nil, err
	}

	registryRepo, err := NewRegistryRepo(opts.RegistryPath, logger)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{
		Chat:      NewTelegramRepo(client),
		Model:     modelRepo,
		Registry:  registryRepo,
		Converter: NewPDFConverter(opts.TempDir, opts.PDFFontPath, logger),
		registry:  registryRepo,
	}
	if opts.ReactionsEnabled {
		repos.Reaction = NewOpenAIRepo(opts.OpenAI)
	}
	return repos, nil
}

// Close releases file watchers
func (r *Repositories) Close() error {
	var errs []error
	if r.registry != nil {
		errs = append(errs, r.registry.Close())
	}
	return errors.Join(errs...)
}
