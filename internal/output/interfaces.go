// Package output provides the line-oriented result channel of macclient.
// Plain output is stable text meant for pipes and files; styled output colours the
// same text for terminals.
package output

// StyleProvider renders semantic kinds of output. Theme implements it.
type StyleProvider interface {
	// GetStyle returns the style for a semantic type such as "result" or "error".
	GetStyle(semantic string) TextStyle

	// IsAvailable reports whether the provider can style text.
	IsAvailable() bool
}

// TextStyle renders a piece of text.
type TextStyle interface {
	Render(text string) string
}

// Mode defines how the printer decides between plain and styled text.
type Mode int

const (
	// ModeAuto styles output only when the writer is a colour-capable terminal.
	ModeAuto Mode = iota

	// ModeStyled always applies the style provider.
	ModeStyled

	// ModePlain never styles.
	ModePlain
)

var modeNames = map[string]Mode{
	"auto":   ModeAuto,
	"always": ModeStyled,
	"never":  ModePlain,
}

// ParseMode maps a colour setting (auto, always or never) to a Mode.
func ParseMode(name string) (Mode, bool) {
	mode, ok := modeNames[name]
	return mode, ok
}

// SemanticType is the meaning of a line of output.
type SemanticType string

const (
	// SemanticResult is a lookup result.
	SemanticResult SemanticType = "result"
	// SemanticInfo is a confirmation such as a mode switch.
	SemanticInfo SemanticType = "info"
	// SemanticWarning is a degraded but non-failing outcome.
	SemanticWarning SemanticType = "warning"
	// SemanticError is a recovered failure.
	SemanticError SemanticType = "error"
	// SemanticProgress is a liveness heartbeat.
	SemanticProgress SemanticType = "progress"
	// SemanticSummary is an end-of-batch total.
	SemanticSummary SemanticType = "summary"
)
