package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/usecase"
)

// PromptsConfig contains all prompt configurations loaded from YAML
type PromptsConfig struct {
	Assistant AssistantPrompts       `yaml:"assistant"`
	Modes     map[string]ModePrompts `yaml:"modes"`
	Image     ImagePrompts           `yaml:"image"`
	Reaction  ReactionPrompts        `yaml:"reaction"`

	// path the config was loaded from, empty for defaults
	Source string `yaml:"-"`
}

// AssistantPrompts contains the shared prompt parts
type AssistantPrompts struct {
	SystemPrompt   string `yaml:"system_prompt"`
	Header         string `yaml:"header"`
	ContinueTask   string `yaml:"continue_task"`
	Language       string `yaml:"language"`
	ResponseFormat string `yaml:"response_format"`
}

// ModePrompts contains the mode-specific prompt parts
type ModePrompts struct {
	Role     string `yaml:"role"`
	Framing  string `yaml:"framing"`
	Fallback string `yaml:"fallback"`
	Format   string `yaml:"format"`
}

// ImagePrompts contains image generation prompts
type ImagePrompts struct {
	RefinePrompt string `yaml:"refine_prompt"`
}

// ReactionPrompts contains the reaction suggester prompt
type ReactionPrompts struct {
	SystemPrompt string `yaml:"system_prompt"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/ai-telegram-userbot/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, fmt.Errorf("read prompts config %s: not found", configPath)
		}
		return DefaultPromptsConfig(), nil
	}

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}
	for name := range config.Modes {
		if _, ok := domain.ParseMode(name); !ok {
			return nil, &ConfigError{Field: "prompts.modes." + name, Message: "unknown mode"}
		}
	}

	// Fill in defaults for empty values
	config.fillDefaults()
	config.Source = loadedPath

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	setDefault(&c.Assistant.SystemPrompt, defaults.Assistant.SystemPrompt)
	setDefault(&c.Assistant.Header, defaults.Assistant.Header)
	setDefault(&c.Assistant.ContinueTask, defaults.Assistant.ContinueTask)
	setDefault(&c.Assistant.Language, defaults.Assistant.Language)
	setDefault(&c.Assistant.ResponseFormat, defaults.Assistant.ResponseFormat)
	setDefault(&c.Image.RefinePrompt, defaults.Image.RefinePrompt)
	setDefault(&c.Reaction.SystemPrompt, defaults.Reaction.SystemPrompt)

	if c.Modes == nil {
		c.Modes = make(map[string]ModePrompts)
	}
	for name, def := range defaults.Modes {
		mp, ok := c.Modes[name]
		if !ok {
			c.Modes[name] = def
			continue
		}
		// a mode entry overrides field by field
		setDefault(&mp.Role, def.Role)
		setDefault(&mp.Framing, def.Framing)
		setDefault(&mp.Fallback, def.Fallback)
		setDefault(&mp.Format, def.Format)
		c.Modes[name] = mp
	}
}

func setDefault(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

// ToPromptConfig converts to prompt assembler configuration
func (c *PromptsConfig) ToPromptConfig() usecase.PromptConfig {
	modes := make(map[domain.Mode]usecase.ModePrompt, len(c.Modes))
	for name, mp := range c.Modes {
		mode, ok := domain.ParseMode(name)
		if !ok {
			continue
		}
		modes[mode] = usecase.ModePrompt{
			Role:     mp.Role,
			Framing:  mp.Framing,
			Fallback: mp.Fallback,
			Format:   mp.Format,
		}
	}

	return usecase.PromptConfig{
		SystemPrompt:   c.Assistant.SystemPrompt,
		Header:         c.Assistant.Header,
		ContinueTask:   c.Assistant.ContinueTask,
		Language:       c.Assistant.Language,
		ResponseFormat: c.Assistant.ResponseFormat,
		RefinePrompt:   c.Image.RefinePrompt,
		Modes:          modes,
	}
}

// DefaultReactionPrompt asks for a single reaction emoji
const DefaultReactionPrompt = `You choose an emoji reaction for a Telegram message on behalf of the user.
Pick exactly one emoji from Telegram's standard reaction set that fits the message tone,
or answer NONE when no reaction fits. Reply with the emoji or NONE only.`

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	def := usecase.DefaultPromptConfig

	modes := make(map[string]ModePrompts, len(def.Modes))
	for mode, mp := range def.Modes {
		modes[mode.String()] = ModePrompts{
			Role:     mp.Role,
			Framing:  mp.Framing,
			Fallback: mp.Fallback,
			Format:   mp.Format,
		}
	}

	return &PromptsConfig{
		Assistant: AssistantPrompts{
			SystemPrompt:   def.SystemPrompt,
			Header:         def.Header,
			ContinueTask:   def.ContinueTask,
			Language:       def.Language,
			ResponseFormat: def.ResponseFormat,
		},
		Modes:    modes,
		Image:    ImagePrompts{RefinePrompt: def.RefinePrompt},
		Reaction: ReactionPrompts{SystemPrompt: DefaultReactionPrompt},
	}
}
