package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/repo"
)

// Notices shown instead of a model answer
const (
	EmptyHistoryNotice  = "ℹ️ Немає повідомлень для підсумку."
	EmptyResponseNotice = "❌ Модель повернула порожню відповідь."
	NoImageNotice       = "❌ Не вдалося згенерувати зображення."
)

// DispatchRequest is one command invocation
type DispatchRequest struct {
	Command *domain.Command
	Message *domain.ContextMessage // triggering message
	Reply   *domain.ContextMessage // replied-to message, nil if none
	Self    *domain.Author
}

// Job is a prepared invocation: context has been gathered, no backend call made yet
type Job struct {
	Request      *DispatchRequest
	Reply        *domain.ReplyContext
	History      []domain.ContextMessage
	ReplyHistory []domain.ContextMessage

	noop bool
}

// Noop reports whether there is nothing to act on
func (j *Job) Noop() bool {
	return j.noop
}

// Mode returns the job's mode
func (j *Job) Mode() domain.Mode {
	return j.Request.Command.Mode
}

// sources returns the messages whose media is attached: the trigger and the
// reply, once each. An auto-reply answers the trigger itself.
func (j *Job) sources() []*domain.ContextMessage {
	msg, reply := j.Request.Message, j.Request.Reply
	if reply == nil || (reply.ID == msg.ID && reply.Chat.ID == msg.Chat.ID) {
		return []*domain.ContextMessage{msg}
	}
	return []*domain.ContextMessage{msg, reply}
}

// DispatcherUsecase routes commands to the backend call their mode needs
type DispatcherUsecase struct {
	chatRepo  repo.ChatRepo
	modelRepo repo.ModelRepo
	converter repo.DocumentConverter
	retriever *ContextRetrieverUsecase
	assembler *PromptAssembler
	parser    *CommandParser
	autoUC    *AutoResponseUsecase
	tempDir   string
	logger    *zap.Logger
}

// NewDispatcherUsecase creates a new dispatcher usecase
func NewDispatcherUsecase(
	chatRepo repo.ChatRepo,
	modelRepo repo.ModelRepo,
	converter repo.DocumentConverter,
	retriever *ContextRetrieverUsecase,
	assembler *PromptAssembler,
	parser *CommandParser,
	autoUC *AutoResponseUsecase,
	tempDir string,
	logger *zap.Logger,
) *DispatcherUsecase {
	return &DispatcherUsecase{
		chatRepo:  chatRepo,
		modelRepo: modelRepo,
		converter: converter,
		retriever: retriever,
		assembler: assembler,
		parser:    parser,
		autoUC:    autoUC,
		tempDir:   tempDir,
		logger:    logger.Named("dispatcher"),
	}
}

// Prepare gathers the context a command needs and decides whether it is a no-op
func (uc *DispatcherUsecase) Prepare(ctx context.Context, req *DispatchRequest) *Job {
	job := &Job{Request: req}
	mode := req.Command.Mode
	if mode.IsLocal() {
		return job
	}

	if req.Reply != nil {
		job.Reply = domain.NewReplyContext(req.Reply)
	}

	switch {
	case mode == domain.ModeHistory:
		job.History = uc.retriever.Fetch(ctx, req.Message, req.Command.ContextLimit)
		// an empty history is answered with a notice, never discarded
		return job
	case mode.UsesHistory():
		job.History, job.ReplyHistory = uc.retriever.FetchAround(ctx, req.Message, req.Reply, req.Command.ContextLimit)
	}

	// file and image modes report a missing input instead
	if mode == domain.ModeFile || mode.IsImage() {
		return job
	}

	job.noop = !req.Command.HasText() &&
		req.Reply == nil &&
		len(job.History) == 0 &&
		!req.Message.HasMedia()
	return job
}

// Run performs the backend call for a prepared job.
// Input errors are returned as domain sentinel errors.
func (uc *DispatcherUsecase) Run(ctx context.Context, job *Job) (*domain.Outcome, error) {
	if job.noop {
		return domain.Noop(job.Mode()), nil
	}

	mode := job.Mode()
	uc.logger.Info("Dispatching command",
		zap.String("mode", mode.String()),
		zap.Int64("chat_id", job.Request.Message.Chat.ID),
		zap.Int("history", len(job.History)),
		zap.Int("reply_history", len(job.ReplyHistory)))

	switch mode {
	case domain.ModeHelp:
		return &domain.Outcome{Kind: domain.OutcomeReply, Mode: mode, Text: uc.parser.HelpText()}, nil
	case domain.ModeToggle:
		enabled, err := uc.autoUC.Toggle(ctx, job.Request.Message.Chat.ID)
		if err != nil {
			return nil, err
		}
		return &domain.Outcome{Kind: domain.OutcomeReply, Mode: mode, Text: ToggleNotice(enabled)}, nil
	case domain.ModeHistory:
		if len(job.History) == 0 {
			return &domain.Outcome{Kind: domain.OutcomeReply, Mode: mode, Text: EmptyHistoryNotice}, nil
		}
		return uc.runText(ctx, job)
	case domain.ModeImage, domain.ModeImageEnhanced:
		return uc.runImage(ctx, job)
	case domain.ModeFile:
		return uc.runFile(ctx, job)
	default:
		return uc.runText(ctx, job)
	}
}

func (uc *DispatcherUsecase) runText(ctx context.Context, job *Job) (*domain.Outcome, error) {
	media := &mediaSet{logger: uc.logger}
	defer media.cleanup()

	parts := []domain.Part{domain.TextPart(uc.buildPrompt(job))}
	attached, err := uc.collectMedia(ctx, job, media)
	if err != nil {
		return nil, err
	}
	parts = append(parts, attached...)

	mode := job.Mode()
	gen, err := uc.modelRepo.GenerateText(ctx, &repo.TextRequest{
		SystemInstruction: uc.assembler.SystemInstruction(job.Request.Self.Info()),
		Parts:             parts,
		Grounded:          mode == domain.ModeGrounding,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s response: %w", mode, err)
	}

	text := CleanResponse(gen.Text)
	if mode == domain.ModeGrounding {
		text = FormatGrounded(text, gen.Sources, gen.SearchQueries)
	}
	if text == "" {
		return &domain.Outcome{Kind: domain.OutcomeFailure, Mode: mode, Text: EmptyResponseNotice}, nil
	}

	return &domain.Outcome{
		Kind:  domain.OutcomeReply,
		Mode:  mode,
		Model: uc.modelRepo.TextModel(),
		Text:  text,
	}, nil
}

func (uc *DispatcherUsecase) runImage(ctx context.Context, job *Job) (*domain.Outcome, error) {
	media := &mediaSet{logger: uc.logger}
	defer media.cleanup()

	prompt := job.Request.Command.Text
	if prompt == "" && job.Request.Reply != nil {
		prompt = strings.TrimSpace(job.Request.Reply.Text)
	}
	if prompt == "" {
		return nil, domain.ErrNoImagePrompt
	}

	sources, err := uc.collectPhotos(ctx, job, media)
	if err != nil {
		return nil, err
	}

	original := prompt
	if job.Mode() == domain.ModeImageEnhanced {
		refined, err := uc.modelRepo.GenerateText(ctx, &repo.TextRequest{
			Parts: []domain.Part{domain.TextPart(uc.assembler.RefinePrompt(prompt))},
		})
		if err != nil {
			return nil, fmt.Errorf("refine image prompt: %w", err)
		}
		if r := CleanResponse(refined.Text); r != "" {
			prompt = r
		}
	}

	res, err := uc.modelRepo.GenerateImage(ctx, &repo.ImageRequest{
		Parts: append([]domain.Part{domain.TextPart(prompt)}, sources...),
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	if len(res.Images) == 0 {
		text := strings.TrimSpace(res.Text)
		if text == "" {
			text = NoImageNotice
		} else {
			text = NoImageNotice + "\n\n" + text
		}
		return &domain.Outcome{Kind: domain.OutcomeFailure, Mode: job.Mode(), Text: text, Original: original}, nil
	}

	paths, err := uc.saveImages(res.Images)
	if err != nil {
		return nil, err
	}

	return &domain.Outcome{
		Kind:     domain.OutcomeReply,
		Mode:     job.Mode(),
		Model:    uc.modelRepo.ImageModel(),
		Text:     imageCaption(original, prompt, res.Text),
		Images:   paths,
		Original: original,
	}, nil
}

func (uc *DispatcherUsecase) runFile(ctx context.Context, job *Job) (*domain.Outcome, error) {
	media := &mediaSet{logger: uc.logger}
	defer media.cleanup()

	doc := findDocument(job.Request.Message, job.Request.Reply)
	if doc == nil {
		return nil, domain.ErrNoDocument
	}

	path, err := uc.chatRepo.DownloadMedia(ctx, doc, uc.tempDir)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	media.add(path)

	pdfPath, err := uc.converter.ToPDF(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedDocument) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConversionFailed, err)
	}
	if pdfPath != path {
		media.add(pdfPath)
	}

	file, err := uc.modelRepo.UploadFile(ctx, pdfPath, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	parts := []domain.Part{
		domain.TextPart(uc.buildPrompt(job)),
		{FileURI: file.URI, MIMEType: file.MIMEType},
	}
	gen, err := uc.modelRepo.GenerateText(ctx, &repo.TextRequest{
		SystemInstruction: uc.assembler.SystemInstruction(job.Request.Self.Info()),
		Parts:             parts,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze document: %w", err)
	}

	text := CleanResponse(gen.Text)
	if text == "" {
		return &domain.Outcome{Kind: domain.OutcomeFailure, Mode: job.Mode(), Text: EmptyResponseNotice}, nil
	}
	return &domain.Outcome{
		Kind:  domain.OutcomeReply,
		Mode:  job.Mode(),
		Model: uc.modelRepo.TextModel(),
		Text:  text,
	}, nil
}

func (uc *DispatcherUsecase) buildPrompt(job *Job) string {
	return uc.assembler.Build(&PromptInput{
		Mode:         job.Mode(),
		Text:         job.Request.Command.Text,
		Reply:        job.Reply,
		ReplyHistory: job.ReplyHistory,
		History:      job.History,
		UserInfo:     job.Request.Self.Info(),
	})
}

// collectMedia attaches photos and stickers inline and uploads voice notes
func (uc *DispatcherUsecase) collectMedia(ctx context.Context, job *Job, media *mediaSet) ([]domain.Part, error) {
	var parts []domain.Part
	for _, msg := range job.sources() {
		if msg == nil {
			continue
		}
		switch msg.Media {
		case domain.MediaPhoto, domain.MediaSticker:
			mime := "image/jpeg"
			if msg.Media == domain.MediaSticker {
				if msg.MediaInfo == nil || msg.MediaInfo.MIMEType != "image/webp" {
					continue
				}
				mime = "image/webp"
			}
			part, err := uc.inlineMedia(ctx, msg, mime, media)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		case domain.MediaVoice:
			path, err := uc.chatRepo.DownloadMedia(ctx, msg, uc.tempDir)
			if err != nil {
				return nil, fmt.Errorf("download voice: %w", err)
			}
			media.add(path)
			mime := "audio/ogg"
			if msg.MediaInfo != nil && msg.MediaInfo.MIMEType != "" {
				mime = msg.MediaInfo.MIMEType
			}
			file, err := uc.modelRepo.UploadFile(ctx, path, mime)
			if err != nil {
				return nil, fmt.Errorf("upload voice: %w", err)
			}
			parts = append(parts, domain.Part{FileURI: file.URI, MIMEType: file.MIMEType})
		}
	}
	return parts, nil
}

// collectPhotos attaches photos as image-edit sources
func (uc *DispatcherUsecase) collectPhotos(ctx context.Context, job *Job, media *mediaSet) ([]domain.Part, error) {
	var parts []domain.Part
	for _, msg := range job.sources() {
		if msg == nil || msg.Media != domain.MediaPhoto {
			continue
		}
		part, err := uc.inlineMedia(ctx, msg, "image/jpeg", media)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func (uc *DispatcherUsecase) inlineMedia(ctx context.Context, msg *domain.ContextMessage, mime string, media *mediaSet) (domain.Part, error) {
	path, err := uc.chatRepo.DownloadMedia(ctx, msg, uc.tempDir)
	if err != nil {
		return domain.Part{}, fmt.Errorf("download %s: %w", msg.Media, err)
	}
	media.add(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Part{}, fmt.Errorf("read %s: %w", msg.Media, err)
	}
	return domain.Part{Data: data, MIMEType: mime}, nil
}

func (uc *DispatcherUsecase) saveImages(images [][]byte) ([]string, error) {
	if err := os.MkdirAll(uc.tempDir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	var paths []string
	for _, img := range images {
		path := filepath.Join(uc.tempDir, fmt.Sprintf("generated_%s.png", uuid.NewString()))
		if err := os.WriteFile(path, img, 0644); err != nil {
			RemoveFiles(uc.logger, paths...)
			return nil, fmt.Errorf("save generated image: %w", err)
		}
		uc.logger.Debug("Image generated", zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

func findDocument(msgs ...*domain.ContextMessage) *domain.ContextMessage {
	for _, m := range msgs {
		if m != nil && m.Media == domain.MediaDocument {
			return m
		}
	}
	return nil
}

func imageCaption(original, refined, modelText string) string {
	var sb strings.Builder
	sb.WriteString("🎨 **Запит:** ")
	sb.WriteString(original)
	if refined != original {
		sb.WriteString("\n✨ **Покращений запит:** ")
		sb.WriteString(refined)
	}
	if t := strings.TrimSpace(modelText); t != "" {
		sb.WriteString("\n\n")
		sb.WriteString(t)
	}
	return sb.String()
}

// CleanResponse trims the answer and drops a leading "Response:" label the
// model sometimes echoes from the prompt
func CleanResponse(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "Response:") {
		text = strings.TrimSpace(strings.TrimPrefix(text, "Response:"))
	}
	return text
}

// mediaSet tracks temp files of one invocation
type mediaSet struct {
	paths  []string
	logger *zap.Logger
}

func (m *mediaSet) add(path string) {
	if path != "" {
		m.paths = append(m.paths, path)
	}
}

func (m *mediaSet) cleanup() {
	RemoveFiles(m.logger, m.paths...)
	m.paths = nil
}

// RemoveFiles deletes temp files, logging failures
func RemoveFiles(logger *zap.Logger, paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("Remove temp file failed", zap.String("path", p), zap.Error(err))
		}
	}
}
