package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

// filePollInterval is how often an uploaded file's processing state is checked
const filePollInterval = 2 * time.Second

// GeminiConfig holds model names and sampling parameters
type GeminiConfig struct {
	APIKey          string
	Model           string
	ImageModel      string
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
	TopK            int
}

// geminiRepo implements the model repository with the Gemini API
type geminiRepo struct {
	client *genai.Client
	cfg    GeminiConfig
	logger *zap.Logger
}

// NewGeminiRepo creates a Gemini model repository
func NewGeminiRepo(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (repo.ModelRepo, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &geminiRepo{client: client, cfg: cfg, logger: logger.Named("gemini")}, nil
}

func (r *geminiRepo) TextModel() string {
	return r.cfg.Model
}

func (r *geminiRepo) ImageModel() string {
	return r.cfg.ImageModel
}

// GenerateText runs a completion, optionally grounded with Google Search
func (r *geminiRepo) GenerateText(ctx context.Context, req *repo.TextRequest) (*domain.Generation, error) {
	config := r.sampling()
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.Grounded {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	start := time.Now()
	resp, err := r.client.Models.GenerateContent(ctx, r.cfg.Model, toContents(req.Parts), config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	gen := generationFromResponse(resp)
	r.logger.Debug("Text generated",
		zap.String("model", r.cfg.Model),
		zap.Bool("grounded", req.Grounded),
		zap.Int("sources", len(gen.Sources)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return gen, nil
}

// GenerateImage asks the image model for text and image parts
func (r *geminiRepo) GenerateImage(ctx context.Context, req *repo.ImageRequest) (*domain.ImageGeneration, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	resp, err := r.client.Models.GenerateContent(ctx, r.cfg.ImageModel, toContents(req.Parts), config)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	gen := imagesFromResponse(resp)
	r.logger.Debug("Image generation finished",
		zap.String("model", r.cfg.ImageModel),
		zap.Int("images", len(gen.Images)),
	)
	return gen, nil
}

// UploadFile uploads a file and waits until the backend has processed it
func (r *geminiRepo) UploadFile(ctx context.Context, path, mimeType string) (*domain.UploadedFile, error) {
	file, err := r.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	ticker := time.NewTicker(filePollInterval)
	defer ticker.Stop()
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		file, err = r.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("get file state: %w", err)
		}
	}
	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("file %s failed processing", file.Name)
	}

	mt := file.MIMEType
	if mt == "" {
		mt = mimeType
	}
	return &domain.UploadedFile{Name: file.Name, URI: file.URI, MIMEType: mt}, nil
}

func (r *geminiRepo) sampling() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		MaxOutputTokens: int32(r.cfg.MaxOutputTokens),
		Temperature:     genai.Ptr(float32(r.cfg.Temperature)),
		TopP:            genai.Ptr(float32(r.cfg.TopP)),
		TopK:            genai.Ptr(float32(r.cfg.TopK)),
	}
}

func toContents(parts []domain.Part) []*genai.Content {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.FileURI != "":
			out = append(out, genai.NewPartFromURI(p.FileURI, p.MIMEType))
		case p.Data != nil:
			out = append(out, genai.NewPartFromBytes(p.Data, p.MIMEType))
		default:
			out = append(out, genai.NewPartFromText(p.Text))
		}
	}
	return []*genai.Content{genai.NewContentFromParts(out, genai.RoleUser)}
}

// generationFromResponse collects the answer text and grounding metadata
// of the first candidate
func generationFromResponse(resp *genai.GenerateContentResponse) *domain.Generation {
	gen := &domain.Generation{}
	if resp == nil || len(resp.Candidates) == 0 {
		return gen
	}
	cand := resp.Candidates[0]
	gen.Text = candidateText(cand)

	if md := cand.GroundingMetadata; md != nil {
		for _, chunk := range md.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			gen.Sources = append(gen.Sources, domain.Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
		}
		gen.SearchQueries = append(gen.SearchQueries, md.WebSearchQueries...)
	}
	return gen
}

// imagesFromResponse splits the first candidate into text and image bytes
func imagesFromResponse(resp *genai.GenerateContentResponse) *domain.ImageGeneration {
	gen := &domain.ImageGeneration{}
	if resp == nil || len(resp.Candidates) == 0 {
		return gen
	}
	cand := resp.Candidates[0]
	gen.Text = candidateText(cand)
	if cand.Content == nil {
		return gen
	}
	for _, p := range cand.Content.Parts {
		if p == nil || p.InlineData == nil {
			continue
		}
		if strings.HasPrefix(p.InlineData.MIMEType, "image/") && len(p.InlineData.Data) > 0 {
			gen.Images = append(gen.Images, p.InlineData.Data)
		}
	}
	return gen
}

func candidateText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		// thought summaries are not part of the answer
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
