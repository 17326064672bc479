package domain

// OutcomeKind distinguishes the results of handling a command
type OutcomeKind int

const (
	// OutcomeReply means there is a response to deliver
	OutcomeReply OutcomeKind = iota
	// OutcomeNoop means there was nothing to act on; the command is discarded
	OutcomeNoop
	// OutcomeFailure means the backend produced no usable result; Text explains
	OutcomeFailure
)

// Outcome is what the dispatcher hands back for delivery
type Outcome struct {
	Kind   OutcomeKind
	Mode   Mode
	Model  string   // model name shown in the header
	Text   string   // response body
	Images []string // local paths of generated images
	// Original is the user's image prompt before refinement
	Original string
}

// Noop returns an outcome that discards the command
func Noop(mode Mode) *Outcome {
	return &Outcome{Kind: OutcomeNoop, Mode: mode}
}

// HasImages reports whether the outcome carries generated images
func (o *Outcome) HasImages() bool {
	return len(o.Images) > 0
}
