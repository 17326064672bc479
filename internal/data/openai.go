package data

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

const (
	defaultReactionModel = "gpt-4o-mini"
	reactionTimeout      = 30 * time.Second
)

// OpenAIConfig configures the OpenAI-compatible reaction suggester
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
}

// openaiRepo implements the reaction repository
type openaiRepo struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

// NewOpenAIRepo creates a reaction repository.
// An empty API key returns nil, which disables reactions.
func NewOpenAIRepo(cfg OpenAIConfig) repo.ReactionRepo {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.Model == "" {
		cfg.Model = defaultReactionModel
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &openaiRepo{
		client:       openai.NewClientWithConfig(config),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}
}

// SuggestReaction asks the model for one emoji or NONE
func (r *openaiRepo) SuggestReaction(ctx context.Context, message, history string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, reactionTimeout)
	defer cancel()

	user := message
	if history != "" {
		user = fmt.Sprintf("Recent messages:\n%s\nMessage to react to:\n%s", history, message)
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.3,
		MaxTokens:   10,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}
