package usecase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

// CommandConfig contains command surface configuration
type CommandConfig struct {
	Trigger       string   // trigger character, "."
	Aliases       []string // extra prefixes that select the default mode
	ToggleCommand string   // standalone auto-response toggle
	DefaultLimit  int      // context limit when none is given
	MaxLimit      int      // upper clamp for the context limit
}

// DefaultCommandConfig contains default command configuration
var DefaultCommandConfig = CommandConfig{
	Trigger:       ".",
	Aliases:       []string{".ші", ".аі", ".ai", ".ии", ".gpt", ".гпт", ".gem"},
	ToggleCommand: ".auto",
	DefaultLimit:  5,
	MaxLimit:      1000,
}

// modeLetters maps the selector after the trigger to a mode.
// ".i+" must be matched before ".i"; the parser sorts longest-first.
var modeLetters = []struct {
	suffix string
	mode   domain.Mode
	help   string
}{
	{"h", domain.ModeHelpful, "детальна відповідь"},
	{"t", domain.ModeTranscription, "транскрипція голосового або тексту"},
	{"c", domain.ModeCode, "код"},
	{"i+", domain.ModeImageEnhanced, "зображення з покращеним запитом"},
	{"i", domain.ModeImage, "зображення"},
	{"s", domain.ModeSummary, "стислий підсумок"},
	{"g", domain.ModeGrounding, "відповідь з пошуком у Google"},
	{"m", domain.ModeHistory, "підсумок історії чату (.m 50)"},
	{"f", domain.ModeFile, "аналіз документа"},
	{"?", domain.ModeHelp, "ця довідка"},
}

type prefixEntry struct {
	prefix string
	mode   domain.Mode
}

// CommandParser identifies command modes and extracts their parameters
type CommandParser struct {
	cfg     CommandConfig
	entries []prefixEntry // longest prefix first
}

// NewCommandParser builds the prefix table and validates it.
// Duplicate prefixes or prefixes without the trigger are rejected.
func NewCommandParser(cfg CommandConfig) (*CommandParser, error) {
	if cfg.Trigger == "" {
		return nil, fmt.Errorf("command trigger is empty")
	}
	if cfg.MaxLimit < 1 {
		cfg.MaxLimit = DefaultCommandConfig.MaxLimit
	}
	if cfg.DefaultLimit < 1 {
		cfg.DefaultLimit = DefaultCommandConfig.DefaultLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}

	var entries []prefixEntry
	for _, l := range modeLetters {
		entries = append(entries, prefixEntry{prefix: cfg.Trigger + l.suffix, mode: l.mode})
	}
	for _, alias := range cfg.Aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		entries = append(entries, prefixEntry{prefix: alias, mode: domain.ModeDefault})
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !strings.HasPrefix(e.prefix, cfg.Trigger) {
			return nil, fmt.Errorf("prefix %q does not start with trigger %q", e.prefix, cfg.Trigger)
		}
		if seen[e.prefix] {
			return nil, fmt.Errorf("duplicate command prefix %q", e.prefix)
		}
		seen[e.prefix] = true
	}
	if cfg.ToggleCommand != "" && seen[cfg.ToggleCommand] {
		return nil, fmt.Errorf("toggle command %q collides with a mode prefix", cfg.ToggleCommand)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].prefix) > len(entries[j].prefix)
	})

	return &CommandParser{cfg: cfg, entries: entries}, nil
}

// Config returns the effective configuration
func (p *CommandParser) Config() CommandConfig {
	return p.cfg
}

// Identify returns the mode a raw message invokes.
// ok is false when the message does not start with the trigger.
func (p *CommandParser) Identify(raw string) (mode domain.Mode, ok bool) {
	if !strings.HasPrefix(raw, p.cfg.Trigger) {
		return domain.ModeDefault, false
	}
	if p.isToggle(raw) {
		return domain.ModeToggle, true
	}
	if e := p.match(raw); e != nil {
		return e.mode, true
	}
	return domain.ModeDefault, true
}

// ExtractParameters strips the mode prefix and an optional numeric context limit.
// The limit is clamped to [1, MaxLimit].
func (p *CommandParser) ExtractParameters(raw string, mode domain.Mode) (int, string) {
	rest := raw
	if e := p.matchMode(raw, mode); e != nil {
		rest = raw[len(e.prefix):]
	} else if strings.HasPrefix(raw, p.cfg.Trigger) {
		rest = raw[len(p.cfg.Trigger):]
	}
	rest = strings.TrimSpace(rest)

	limit := p.cfg.DefaultLimit
	token, remainder := splitFirstToken(rest)
	if isDigits(token) {
		limit = p.clamp(token)
		rest = strings.TrimSpace(remainder)
	}
	return limit, rest
}

// Parse identifies and extracts a command in one step
func (p *CommandParser) Parse(raw string) (*domain.Command, bool) {
	mode, ok := p.Identify(raw)
	if !ok {
		return nil, false
	}
	cmd := &domain.Command{Mode: mode, ContextLimit: p.cfg.DefaultLimit}
	if mode == domain.ModeToggle {
		return cmd, true
	}
	if e := p.matchMode(raw, mode); e != nil {
		cmd.Prefix = e.prefix
	}
	cmd.ContextLimit, cmd.Text = p.ExtractParameters(raw, mode)
	return cmd, true
}

// HelpText lists the available commands
func (p *CommandParser) HelpText() string {
	var sb strings.Builder
	sb.WriteString("**Команди:**\n")
	sb.WriteString(fmt.Sprintf("`%s текст` - відповідь від вашого імені\n", p.cfg.Trigger))
	for _, l := range modeLetters {
		sb.WriteString(fmt.Sprintf("`%s%s` - %s\n", p.cfg.Trigger, l.suffix, l.help))
	}
	if p.cfg.ToggleCommand != "" {
		sb.WriteString(fmt.Sprintf("`%s` - увімкнути/вимкнути автовідповідь у чаті\n", p.cfg.ToggleCommand))
	}
	sb.WriteString(fmt.Sprintf("\nЧисло після команди задає кількість повідомлень контексту (1-%d), напр. `%s 20 текст`.",
		p.cfg.MaxLimit, p.cfg.Trigger))
	return sb.String()
}

func (p *CommandParser) isToggle(raw string) bool {
	return p.cfg.ToggleCommand != "" && strings.TrimSpace(raw) == p.cfg.ToggleCommand
}

func (p *CommandParser) match(raw string) *prefixEntry {
	for i := range p.entries {
		if strings.HasPrefix(raw, p.entries[i].prefix) {
			return &p.entries[i]
		}
	}
	return nil
}

func (p *CommandParser) matchMode(raw string, mode domain.Mode) *prefixEntry {
	for i := range p.entries {
		if p.entries[i].mode == mode && strings.HasPrefix(raw, p.entries[i].prefix) {
			return &p.entries[i]
		}
	}
	return nil
}

func (p *CommandParser) clamp(token string) int {
	n, err := strconv.Atoi(token)
	if err != nil {
		// only overflow reaches here, the token is all digits
		return p.cfg.MaxLimit
	}
	if n < 1 {
		return 1
	}
	if n > p.cfg.MaxLimit {
		return p.cfg.MaxLimit
	}
	return n
}

func splitFirstToken(s string) (string, string) {
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx:]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
