package repo

import (
	"context"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

// TextRequest is a text generation request
type TextRequest struct {
	SystemInstruction string
	Parts             []domain.Part
	// Grounded enables search grounding; sources are returned in the result
	Grounded bool
}

// ImageRequest is an image generation request
type ImageRequest struct {
	Parts []domain.Part
}

// ModelRepo is the generative backend interface
type ModelRepo interface {
	// GenerateText runs a text completion
	GenerateText(ctx context.Context, req *TextRequest) (*domain.Generation, error)

	// GenerateImage runs an image generation; zero images is not an error
	GenerateImage(ctx context.Context, req *ImageRequest) (*domain.ImageGeneration, error)

	// UploadFile uploads a local file for use in later requests
	UploadFile(ctx context.Context, path, mimeType string) (*domain.UploadedFile, error)

	// TextModel returns the text model name
	TextModel() string

	// ImageModel returns the image model name
	ImageModel() string
}
