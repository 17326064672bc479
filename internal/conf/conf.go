package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/usecase"
)

// maxMessageLength caps the chunk size so the header and page marker still
// fit under Telegram's 4096 character limit
const maxMessageLength = 4000

// Config represents application configuration
type Config struct {
	// Telegram account configuration
	Telegram TelegramConfig

	// Gemini configuration
	Gemini GeminiConfig

	// OpenAI-compatible reaction suggester (optional)
	OpenAI OpenAIConfig

	// Command surface
	Command CommandConfigValues

	// Response delivery
	Delivery DeliveryConfig

	// Local files
	Storage StorageConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	ReactionsEnabled bool

	// Debug mode
	Debug bool
}

// TelegramConfig contains MTProto account configuration
type TelegramConfig struct {
	APIID       int
	APIHash     string
	SessionName string
	Phone       string
	Password    string
}

// GeminiConfig contains Gemini configuration
type GeminiConfig struct {
	APIKey          string
	Model           string
	ImageModel      string
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
	TopK            int
}

// OpenAIConfig contains OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// CommandConfigValues contains command-related configuration values
type CommandConfigValues struct {
	Trigger       string
	Aliases       []string
	ToggleCommand string
	ContextLimit  int
	ContextMax    int
}

// DeliveryConfig contains response delivery configuration
type DeliveryConfig struct {
	MaxMessageLength int
	ChunkDelay       time.Duration
}

// StorageConfig contains file locations
type StorageConfig struct {
	SessionDir       string
	AutoResponseFile string
	TempDir          string
	PDFFontPath      string
}

// SessionDBPath returns the sqlite session file for the account
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Storage.SessionDir, c.Telegram.SessionName+".db")
}

// Load reads envFile (a missing file is not an error) and then the process
// environment. Environment variables take precedence over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Field: "env file " + envFile, Message: err.Error()}
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	sessionDir := expandHome(v.GetString("TG_SESSION_DIR"))
	registryFile := v.GetString("AUTO_RESPONSE_FILE")
	if registryFile == "" {
		registryFile = filepath.Join(sessionDir, "auto_response_chats.json")
	}

	prompts, err := LoadPromptsConfig(v.GetString("PROMPTS_CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Telegram: TelegramConfig{
			APIID:       v.GetInt("TG_API_ID"),
			APIHash:     v.GetString("TG_API_HASH"),
			SessionName: v.GetString("TG_SESSION_NAME"),
			Phone:       v.GetString("TG_PHONE"),
			Password:    v.GetString("TG_PASSWORD"),
		},
		Gemini: GeminiConfig{
			APIKey:          v.GetString("GEMINI_API_KEY"),
			Model:           v.GetString("GEMINI_MODEL"),
			ImageModel:      v.GetString("GEMINI_IMAGE_MODEL"),
			MaxOutputTokens: v.GetInt("MAX_OUTPUT_TOKENS"),
			Temperature:     v.GetFloat64("TEMPERATURE"),
			TopP:            v.GetFloat64("TOP_P"),
			TopK:            v.GetInt("TOP_K"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  v.GetString("OPENAI_API_KEY"),
			BaseURL: v.GetString("OPENAI_BASE_URL"),
			Model:   v.GetString("OPENAI_MODEL"),
		},
		Command: CommandConfigValues{
			Trigger:       v.GetString("COMMAND_TRIGGER"),
			Aliases:       splitList(v.GetString("COMMAND_ALIASES")),
			ToggleCommand: v.GetString("TOGGLE_COMMAND"),
			ContextLimit:  v.GetInt("CONTEXT_MESSAGE_LIMIT"),
			ContextMax:    v.GetInt("CONTEXT_MESSAGE_MAX"),
		},
		Delivery: DeliveryConfig{
			MaxMessageLength: v.GetInt("MAX_MESSAGE_LENGTH"),
			ChunkDelay:       time.Duration(v.GetInt("CHUNK_DELAY_MS")) * time.Millisecond,
		},
		Storage: StorageConfig{
			SessionDir:       sessionDir,
			AutoResponseFile: expandHome(registryFile),
			TempDir:          expandHome(v.GetString("TEMP_DIR")),
			PDFFontPath:      v.GetString("PDF_FONT_PATH"),
		},
		Prompts:          prompts,
		ReactionsEnabled: v.GetBool("REACTIONS_ENABLED"),
		Debug:            v.GetBool("DEBUG"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("TG_SESSION_NAME", "userbot")
	v.SetDefault("TG_SESSION_DIR", "~/.ai-telegram-userbot")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-exp-image-generation")
	v.SetDefault("MAX_OUTPUT_TOKENS", 1000)
	v.SetDefault("TEMPERATURE", 0.7)
	v.SetDefault("TOP_P", 0.95)
	v.SetDefault("TOP_K", 40)
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("COMMAND_TRIGGER", usecase.DefaultCommandConfig.Trigger)
	v.SetDefault("COMMAND_ALIASES", strings.Join(usecase.DefaultCommandConfig.Aliases, ","))
	v.SetDefault("TOGGLE_COMMAND", usecase.DefaultCommandConfig.ToggleCommand)
	v.SetDefault("CONTEXT_MESSAGE_LIMIT", usecase.DefaultCommandConfig.DefaultLimit)
	v.SetDefault("CONTEXT_MESSAGE_MAX", usecase.DefaultCommandConfig.MaxLimit)
	v.SetDefault("MAX_MESSAGE_LENGTH", usecase.DefaultMaxMessageLength)
	v.SetDefault("CHUNK_DELAY_MS", 500)
	v.SetDefault("TEMP_DIR", filepath.Join(os.TempDir(), "ai-telegram-userbot"))
	v.SetDefault("PDF_FONT_PATH", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf")
	v.SetDefault("REACTIONS_ENABLED", false)
	v.SetDefault("DEBUG", false)
}

// ToCommandConfig converts to command parser configuration
func (c *Config) ToCommandConfig() usecase.CommandConfig {
	return usecase.CommandConfig{
		Trigger:       c.Command.Trigger,
		Aliases:       c.Command.Aliases,
		ToggleCommand: c.Command.ToggleCommand,
		DefaultLimit:  c.Command.ContextLimit,
		MaxLimit:      c.Command.ContextMax,
	}
}

// ToPromptConfig converts to prompt configuration
func (c *Config) ToPromptConfig() usecase.PromptConfig {
	if c.Prompts == nil {
		return usecase.DefaultPromptConfig
	}
	return c.Prompts.ToPromptConfig()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.APIID == 0 || c.Telegram.APIHash == "" {
		return &ConfigError{Field: "TG_API_ID/TG_API_HASH", Message: "required"}
	}
	if c.Gemini.APIKey == "" {
		return &ConfigError{Field: "GEMINI_API_KEY", Message: "required"}
	}
	if c.Telegram.SessionName == "" || strings.ContainsAny(c.Telegram.SessionName, `/\`) {
		return &ConfigError{Field: "TG_SESSION_NAME", Message: "must be a plain file name"}
	}
	if c.ReactionsEnabled && c.OpenAI.APIKey == "" {
		return &ConfigError{Field: "OPENAI_API_KEY", Message: "required when REACTIONS_ENABLED is set"}
	}
	if c.Delivery.MaxMessageLength < 100 || c.Delivery.MaxMessageLength > maxMessageLength {
		return &ConfigError{Field: "MAX_MESSAGE_LENGTH", Message: fmt.Sprintf("must be between 100 and %d", maxMessageLength)}
	}
	if _, err := usecase.NewCommandParser(c.ToCommandConfig()); err != nil {
		return &ConfigError{Field: "COMMAND_TRIGGER/COMMAND_ALIASES/TOGGLE_COMMAND", Message: err.Error()}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
