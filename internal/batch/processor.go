// Package batch streams files of typings through a lookup operation one line at a time.
//
// Every line is isolated: a failing or panicking lookup is reported and the next line
// is processed. Rejections of unknown allele codes are expected in real data and are
// only counted; any other failure is printed as an ERR line so that service or network
// trouble stands out from bad input.
package batch

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"macclient/internal/logger"
	"macclient/internal/macservice"
	"macclient/internal/output"
	"macclient/internal/session"
)

const (
	// DefaultMinTypingLength is the shortest line treated as a typing. Shorter lines are
	// allele-list fragments.
	DefaultMinTypingLength = 16

	// DefaultHeartbeatInterval is the number of lines between progress heartbeats.
	DefaultHeartbeatInterval = 200

	// maxLineBytes bounds the memory used for a single line.
	maxLineBytes = 16 << 20
)

// ErrOperationPanic marks a lookup that panicked instead of returning an error.
var ErrOperationPanic = errors.New("operation panicked")

// Result summarizes one processed file.
type Result struct {
	RunID              string
	LinesRead          int
	InvalidAlleleCount int
	Processed          int
	Skipped            int
	Failed             int
	Empty              int
	Encoding           Encoding
	Digest             string
}

// Processor applies an operation to every typing of a file.
type Processor struct {
	printer           *output.Printer
	minTypingLength   int
	heartbeatInterval int
	now               func() time.Time
	newRunID          func() string
}

// Option configures a Processor.
type Option func(*Processor)

// WithMinTypingLength sets the shortest line that is looked up.
func WithMinTypingLength(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minTypingLength = n
		}
	}
}

// WithHeartbeatInterval sets the number of lines between heartbeats.
func WithHeartbeatInterval(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.heartbeatInterval = n
		}
	}
}

// WithClock sets the time source used in heartbeats.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunIDs sets the generator of run identifiers.
func WithRunIDs(newRunID func() string) Option {
	return func(p *Processor) {
		if newRunID != nil {
			p.newRunID = newRunID
		}
	}
}

// NewProcessor creates a Processor that reports to printer.
func NewProcessor(printer *output.Printer, options ...Option) *Processor {
	p := &Processor{
		printer:           printer,
		minTypingLength:   DefaultMinTypingLength,
		heartbeatInterval: DefaultHeartbeatInterval,
		now:               time.Now,
		newRunID:          func() string { return uuid.New().String() },
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// ProcessFile opens path and processes it. Only failures to open or read the file are
// returned; lookup failures are reported per line.
func (p *Processor) ProcessFile(ctx context.Context, path string, op session.Performer) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := blake3.New()
	text, encoding, closeText, err := openText(io.TeeReader(file, hasher))
	defer closeText()
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}

	runID := p.newRunID()
	runLog := logger.With("run_id", runID, "file", path)
	runLog.Info("Batch started", "operation", op.Name(), "encoding", encoding)

	result, err := p.process(ctx, text, op, runLog)
	result.RunID = runID
	result.Encoding = encoding
	if err != nil {
		return result, fmt.Errorf("%s: %w", path, err)
	}
	result.Digest = hex.EncodeToString(hasher.Sum(nil))

	runLog.Info("Batch finished",
		"lines", result.LinesRead,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"invalid", result.InvalidAlleleCount,
		"failed", result.Failed,
		"blake3", result.Digest)
	return result, nil
}

// Process reads typings from r. It is ProcessFile without the file handling.
func (p *Processor) Process(ctx context.Context, r io.Reader, op session.Performer) (Result, error) {
	return p.process(ctx, r, op, logger.Logger)
}

func (p *Processor) process(ctx context.Context, r io.Reader, op session.Performer, runLog *log.Logger) (Result, error) {
	var result Result

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			p.printSummary(result)
			return result, err
		}

		result.LinesRead++
		lineNumber := result.LinesRead
		typing := scanner.Text()
		if lineNumber == 1 {
			typing = strings.TrimPrefix(typing, "\uFEFF")
		}

		if utf8.RuneCountInString(typing) < p.minTypingLength {
			result.Skipped++
			continue
		}

		p.processLine(ctx, op, lineNumber, typing, &result, runLog)

		if lineNumber%p.heartbeatInterval == 0 {
			p.printer.Progress(fmt.Sprintf("%d\t %s", lineNumber, p.now().Format(time.UnixDate)))
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read line %d: %w", result.LinesRead+1, err)
	}

	p.printSummary(result)
	return result, nil
}

func (p *Processor) processLine(ctx context.Context, op session.Performer, lineNumber int, typing string, result *Result, runLog *log.Logger) {
	result.Processed++

	value, err := Perform(ctx, op, typing)
	switch {
	case err == nil && value == "":
		result.Empty++
		p.printer.Warning("NULL for: " + typing)
	case err == nil:
		p.printer.Result(fmt.Sprintf("%2d = %s", lineNumber, value))
	case macservice.IsInvalidInput(err):
		result.InvalidAlleleCount++
		runLog.Debug("Invalid allele", "line", lineNumber, "typing", typing)
	default:
		result.Failed++
		runLog.Warn("Lookup failed", "line", lineNumber, "typing", typing, "operation", op.Name(), "error", err)
		p.printer.Error(fmt.Sprintf("ERR: %v\t for typing: %s", err, typing))
	}
}

// Perform runs one lookup, turning a panic into an error wrapping ErrOperationPanic.
func Perform(ctx context.Context, op session.Performer, typing string) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrOperationPanic, op.Name(), r)
		}
	}()
	return op.Perform(ctx, typing)
}

func (p *Processor) printSummary(result Result) {
	p.printer.Summary(fmt.Sprintf("lines= %d", result.LinesRead))
	p.printer.Summary(fmt.Sprintf("invalid alleles= %d", result.InvalidAlleleCount))
}
