package domain

// Mode is the response behaviour a command invokes
type Mode int

const (
	ModeDefault Mode = iota
	ModeHelpful
	ModeTranscription
	ModeCode
	ModeSummary
	ModeHistory
	ModeGrounding
	ModeImage
	ModeImageEnhanced
	ModeFile
	ModeHelp
	ModeToggle
)

var modeNames = map[Mode]string{
	ModeDefault:       "default",
	ModeHelpful:       "helpful",
	ModeTranscription: "transcription",
	ModeCode:          "code",
	ModeSummary:       "summary",
	ModeHistory:       "history",
	ModeGrounding:     "grounding",
	ModeImage:         "image",
	ModeImageEnhanced: "image_enhanced",
	ModeFile:          "file",
	ModeHelp:          "help",
	ModeToggle:        "toggle",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode returns the mode with the given name
func ParseMode(name string) (Mode, bool) {
	for m, n := range modeNames {
		if n == name {
			return m, true
		}
	}
	return ModeDefault, false
}

// IsExtractive reports whether the mode only transforms supplied content.
// Extractive modes never take ambient history as their task body.
func (m Mode) IsExtractive() bool {
	switch m {
	case ModeTranscription, ModeSummary, ModeHistory, ModeGrounding, ModeFile:
		return true
	}
	return false
}

// UsesHistory reports whether the general conversation history block is
// included in the prompt for this mode
func (m Mode) UsesHistory() bool {
	switch m {
	case ModeDefault, ModeHelpful, ModeCode, ModeHistory:
		return true
	}
	return false
}

// IsImage reports whether the mode produces images
func (m Mode) IsImage() bool {
	return m == ModeImage || m == ModeImageEnhanced
}

// IsLocal reports whether the mode is answered without a backend call
func (m Mode) IsLocal() bool {
	return m == ModeHelp || m == ModeToggle
}

// Command is a parsed command message
type Command struct {
	Mode         Mode
	Prefix       string // matched prefix, empty for the bare trigger
	Text         string // residual text after prefix and limit
	ContextLimit int
}

// HasText reports whether the command carries residual text
func (c *Command) HasText() bool {
	return c.Text != ""
}
