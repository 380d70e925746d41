package output

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
)

// Printer writes whole lines to a single writer in call order.
type Printer struct {
	styleProvider StyleProvider
	writer        io.Writer
	mode          Mode
	styled        bool

	mu sync.Mutex
}

// NewPrinter creates a Printer. By default it writes to os.Stdout in ModeAuto.
func NewPrinter(options ...Option) *Printer {
	p := &Printer{
		writer: os.Stdout,
		mode:   ModeAuto,
	}
	for _, opt := range options {
		opt(p)
	}
	p.styled = p.resolveStyled()
	return p
}

func (p *Printer) resolveStyled() bool {
	if p.styleProvider == nil {
		return false
	}
	switch p.mode {
	case ModeStyled:
		return true
	case ModeAuto:
		return termenv.NewOutput(p.writer).EnvColorProfile() != termenv.Ascii
	default:
		return false
	}
}

// IsStyled reports whether lines are rendered through the style provider.
func (p *Printer) IsStyled() bool {
	return p.styled
}

// Result writes a lookup result line.
func (p *Printer) Result(text string) {
	p.output(SemanticResult, text)
}

// Info writes a confirmation line.
func (p *Printer) Info(text string) {
	p.output(SemanticInfo, text)
}

// Warning writes a degraded-outcome line.
func (p *Printer) Warning(text string) {
	p.output(SemanticWarning, text)
}

// Error writes a recovered-failure line.
func (p *Printer) Error(text string) {
	p.output(SemanticError, text)
}

// Progress writes a heartbeat line.
func (p *Printer) Progress(text string) {
	p.output(SemanticProgress, text)
}

// Summary writes an end-of-batch total.
func (p *Printer) Summary(text string) {
	p.output(SemanticSummary, text)
}

func (p *Printer) output(semantic SemanticType, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.styled {
		text = p.styleProvider.GetStyle(string(semantic)).Render(text)
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	_, _ = io.WriteString(p.writer, text)
}

