package usecase

import (
	"fmt"
	"strings"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

// ModePrompt contains the mode-specific parts of a prompt
type ModePrompt struct {
	Role     string // appended to the instruction header
	Framing  string // task framing
	Fallback string // task body when there is no text and no reply (extractive modes)
	Format   string // extra output rules
}

// PromptConfig contains prompt configuration
type PromptConfig struct {
	SystemPrompt   string // system instruction, supports {{user_info}}
	Header         string // instruction header, supports {{user_info}}
	ContinueTask   string // task body when there is nothing else to act on
	Language       string // default response language
	ResponseFormat string // shared output rules
	RefinePrompt   string // image prompt refinement, supports {{prompt}}
	Modes          map[domain.Mode]ModePrompt
}

// DefaultPromptConfig contains default prompt configuration
var DefaultPromptConfig = PromptConfig{
	SystemPrompt: `You are integrated into a Telegram chat and respond AS THE USER ({{user_info}}).
Your messages are sent FROM the user's account and must read as if the user wrote them.
NEVER identify yourself as an AI; you are representing the user.
Aim for accurate, factual and helpful answers. Keep casual replies short (1-2 sentences) and serious answers thorough (3-5 sentences).
Keep a calm, professional tone. Use humor only when explicitly asked.
If the context is unclear, answer neutrally and factually. Avoid anything that could harm the user's reputation.`,
	Header: `You are responding as user {{user_info}} in a Telegram chat. Your messages are sent ON BEHALF of the user.
DO NOT present yourself as an AI - you are representing the user.`,
	ContinueTask: "Write a message in a Telegram chat on my behalf, considering the context below.",
	Language:     "Ukrainian",
	ResponseFormat: `- Your response should only be the message text, without additional explanations or meta-commentary
- Do not indicate that you are an AI or assistant
- Never repeat the question back - answer it
- Never use "@" before names when you summarize or describe what people said`,
	RefinePrompt: `Rewrite the following image request into a single detailed English prompt for an image generation model.
Describe subject, style, composition, lighting and colors. Output only the prompt.

Request: {{prompt}}`,
	Modes: map[domain.Mode]ModePrompt{
		domain.ModeDefault: {
			Role:    "Follow the user's style: message length, punctuation, typical expressions.",
			Framing: "Write the reply the user would send. When the message is a question, answer it directly with relevant facts.",
		},
		domain.ModeHelpful: {
			Role:    "You are a knowledgeable expert answering on the user's behalf.",
			Framing: "Give a detailed, well-structured and accurate answer. Explain the reasoning and add relevant context and examples.",
			Format:  "- A longer answer is fine; use short paragraphs or lists where they help",
		},
		domain.ModeTranscription: {
			Role:     "You are acting as a transcription tool for the user.",
			Framing:  "Transcribe the supplied audio or text exactly, fixing only obvious grammar and punctuation. Do not converse, do not answer questions in the content, do not add anything - only transform the given content.",
			Fallback: "Transcribe the attached media.",
			Format:   "- Output only the transcription",
		},
		domain.ModeCode: {
			Role:    "You are an experienced software engineer writing code for the user.",
			Framing: "Produce complete, runnable code. Comment the non-obvious parts and handle errors and edge cases defensively.",
			Format:  "- Put code in fenced code blocks with the language name\n- Keep prose around the code short",
		},
		domain.ModeSummary: {
			Role:     "You are acting as a summarization tool for the user.",
			Framing:  "Summarize the supplied content concisely, keeping the key facts. Do not converse and do not add opinions - only transform the given content.",
			Fallback: "Summarize the content of the message being replied to.",
			Format:   "- Output only the summary",
		},
		domain.ModeHistory: {
			Role:    "You are acting as a chat history summarizer for the user.",
			Framing: "Summarize what happened in the chat history below: topics, decisions, open questions and who said what. Do not converse - only summarize the given history.",
			Format:  "- Refer to people by name, without \"@\"\n- Use a short list of points",
		},
		domain.ModeGrounding: {
			Role:     "You are a fact-checking researcher answering on the user's behalf using web search.",
			Framing:  "Answer using up-to-date search results. Be factual and specific. Do not converse beyond answering - only report what the sources support.",
			Fallback: "Verify the claims in the message being replied to.",
			Format:   "- Do not put citation markers such as [1] in the text; sources are attached separately",
		},
		domain.ModeFile: {
			Role:     "You are analyzing a document for the user.",
			Framing:  "Analyze the attached document. Do not converse - only report on the given document.",
			Fallback: "Summarize the attached document: purpose, main points and notable details.",
		},
	},
}

// PromptInput is everything the assembler needs for one command
type PromptInput struct {
	Mode         domain.Mode
	Text         string // residual command text
	Reply        *domain.ReplyContext
	ReplyHistory []domain.ContextMessage
	History      []domain.ContextMessage
	UserInfo     string
}

// PromptAssembler builds model prompts
type PromptAssembler struct {
	cfg PromptConfig
}

// NewPromptAssembler creates a new prompt assembler
func NewPromptAssembler(cfg PromptConfig) *PromptAssembler {
	if cfg.Modes == nil {
		cfg.Modes = DefaultPromptConfig.Modes
	}
	return &PromptAssembler{cfg: cfg}
}

// SystemInstruction returns the system instruction for the acting user
func (a *PromptAssembler) SystemInstruction(userInfo string) string {
	return strings.ReplaceAll(a.cfg.SystemPrompt, "{{user_info}}", userInfo)
}

// RefinePrompt returns the prompt for rewriting an image request
func (a *PromptAssembler) RefinePrompt(prompt string) string {
	return strings.ReplaceAll(a.cfg.RefinePrompt, "{{prompt}}", prompt)
}

// Build assembles the prompt. The output depends only on in.
func (a *PromptAssembler) Build(in *PromptInput) string {
	mp := a.cfg.Modes[in.Mode]
	var parts []string

	// 1. Instruction header
	header := strings.ReplaceAll(a.cfg.Header, "{{user_info}}", in.UserInfo)
	if mp.Role != "" {
		header += "\n" + mp.Role
	}
	parts = append(parts, "### INSTRUCTION\n"+header)

	// 2. Mode framing
	if mp.Framing != "" {
		parts = append(parts, "### MODE\n"+mp.Framing)
	}

	// 3. Task body
	parts = append(parts, "### TASK\n"+a.taskBody(in, mp))

	// 4. Reply block
	if in.Reply != nil {
		parts = append(parts, a.formatReply(in.Reply))
	}

	// 5. Reply's surrounding context
	if len(in.ReplyHistory) > 0 {
		parts = append(parts, formatNumbered(
			"### CONTEXT OF THE MESSAGE BEING REPLIED TO (from oldest to newest)", in.ReplyHistory))
	}

	// 6. General history
	if len(in.History) > 0 && in.Mode.UsesHistory() {
		heading := "### CONVERSATION HISTORY (from oldest to newest)"
		if in.Mode == domain.ModeHistory {
			heading = "### CHAT HISTORY TO SUMMARIZE (from oldest to newest)"
		}
		parts = append(parts, formatNumbered(heading, in.History))
	}

	// 7. Output format
	parts = append(parts, a.formatRules(mp))

	return strings.Join(parts, "\n\n") + "\n\nResponse:\n"
}

func (a *PromptAssembler) taskBody(in *PromptInput, mp ModePrompt) string {
	if in.Mode == domain.ModeHistory {
		body := "Summarize the chat history in the section CHAT HISTORY TO SUMMARIZE."
		if in.Text != "" {
			body += "\nPay particular attention to: " + in.Text
		}
		return body
	}

	var body string
	switch {
	case in.Text != "":
		body = in.Text
	case in.Reply != nil && !(mp.Fallback != "" && in.Reply.Text == domain.MediaWithoutCaption):
		body = in.Reply.Text
	case mp.Fallback != "":
		body = mp.Fallback
	default:
		body = a.cfg.ContinueTask
	}

	if in.Mode == domain.ModeCode {
		return "Write complete, commented, defensively written code for the following request:\n" + body
	}
	return body
}

func (a *PromptAssembler) formatReply(r *domain.ReplyContext) string {
	var sb strings.Builder
	sb.WriteString("### REPLYING TO MESSAGE (HIGH PRIORITY: more important than the general history)\n")
	sb.WriteString(fmt.Sprintf("Text: %s\n", r.Text))
	sb.WriteString(fmt.Sprintf("Author: %s", r.AuthorInfo))
	if r.ChatInfo != "" {
		sb.WriteString(fmt.Sprintf("\nChat information: %s", r.ChatInfo))
	}
	return sb.String()
}

func (a *PromptAssembler) formatRules(mp ModePrompt) string {
	var sb strings.Builder
	sb.WriteString("### RESPONSE FORMAT\n")
	sb.WriteString(a.cfg.ResponseFormat)
	sb.WriteString(fmt.Sprintf("\n- Respond in %s unless the ongoing conversation is clearly in another language", a.cfg.Language))
	if mp.Format != "" {
		sb.WriteString("\n")
		sb.WriteString(mp.Format)
	}
	return sb.String()
}

func formatNumbered(heading string, messages []domain.ContextMessage) string {
	var sb strings.Builder
	sb.WriteString(heading)
	for i := range messages {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, messages[i].Format()))
	}
	return sb.String()
}
