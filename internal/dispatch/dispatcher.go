// Package dispatch interprets the macclient command line. Tokens are handled strictly in
// order: configuration tokens change the session, mode keywords switch the operation,
// existing files are batch processed and everything else is looked up as a typing.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"macclient/internal/batch"
	"macclient/internal/logger"
	"macclient/internal/macservice"
	"macclient/internal/output"
	"macclient/internal/session"
)

const (
	hlaPrefix   = "--hla="
	proxyPrefix = "--proxy="
	urlPrefix   = "--url="
)

// ErrNoTokens is returned by Run when there is nothing to do.
var ErrNoTokens = errors.New("no arguments given")

// Usage is the command-line synopsis printed for help and for an empty command line.
const Usage = `Usage: macclient [--proxy=[scheme://]host:port] [--url=<baseurl>] [--hla=<version>] [expand|encode|decode] typings|files...
	version is the IMGT/HLA release, like 3.19.0 or 3.22.0
	files hold one typing per line and may be gzip or zstd compressed
Sample args:
	--url=https://hml.nmdp.org/mac/api --hla=3.22.0 expand HLA-A*01:MN
	--hla=3.22.0 encode HLA-A*01:01/HLA-A*01:02
	decode HLA-A*01:AB
`

// WriteUsage writes Usage to w.
func WriteUsage(w io.Writer) {
	_, _ = io.WriteString(w, Usage)
}

// Dispatcher owns the session for the duration of one command line.
type Dispatcher struct {
	state     *session.State
	processor *batch.Processor
	printer   *output.Printer
	usageOut  io.Writer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithUsageWriter sets where usage goes when no tokens are given. Default is os.Stderr.
func WithUsageWriter(w io.Writer) Option {
	return func(d *Dispatcher) {
		if w != nil {
			d.usageOut = w
		}
	}
}

// New creates a Dispatcher. The dispatcher takes ownership of state and closes it at the
// end of Run.
func New(state *session.State, processor *batch.Processor, printer *output.Printer, options ...Option) *Dispatcher {
	d := &Dispatcher{
		state:     state,
		processor: processor,
		printer:   printer,
		usageOut:  os.Stderr,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Run handles tokens left to right. It stops at the first configuration or file error
// and returns it; lookup failures of literal typings are logged and do not stop the run.
// The service handle is released before Run returns, on every path.
func (d *Dispatcher) Run(ctx context.Context, tokens []string) (err error) {
	defer func() {
		if closeErr := d.state.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to release service: %w", closeErr)
		}
	}()

	if len(tokens) == 0 {
		WriteUsage(d.usageOut)
		return ErrNoTokens
	}

	for i, token := range tokens {
		if err := d.dispatch(ctx, token); err != nil {
			logger.Debug("Dispatch stopped", "position", i+1, "token", token, "error", err)
			return err
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, token string) error {
	if value, ok := strings.CutPrefix(token, hlaPrefix); ok {
		d.state.SetDatabaseVersion(value)
		return nil
	}
	if value, ok := strings.CutPrefix(token, proxyPrefix); ok {
		return d.setProxy(value)
	}
	if value, ok := strings.CutPrefix(token, urlPrefix); ok {
		return d.state.SetEndpoint(value)
	}
	if kind, ok := session.ParseKind(token); ok {
		op := d.state.SwitchOperation(kind)
		d.printer.Info("switch to: " + op.Name())
		return nil
	}
	if isFile(token) {
		_, err := d.processor.ProcessFile(ctx, token, d.state.Operation())
		return err
	}

	d.lookup(ctx, token)
	return nil
}

func (d *Dispatcher) setProxy(value string) error {
	proxy, err := session.ParseProxy(value)
	if err != nil {
		return err
	}
	if proxy == nil {
		logger.Debug("Proxy ignored, no port given", "value", value)
		return nil
	}
	d.state.SetProxy(proxy)
	logger.Info("Proxy set", "proxy", proxy.String())
	return nil
}

func (d *Dispatcher) lookup(ctx context.Context, typing string) {
	op := d.state.Operation()
	result, err := batch.Perform(ctx, op, typing)
	if err != nil {
		if macservice.IsInvalidInput(err) {
			logger.Warn("Invalid typing", "typing", typing, "operation", op.Name(), "error", err)
			return
		}
		logger.Error("Lookup failed", "typing", typing, "operation", op.Name(),
			"endpoint", d.state.Endpoint(), "error", err)
		return
	}
	d.printer.Result(fmt.Sprintf("%s %s to %s", typing, op.Name(), result))
}

// isFile reports whether path names an existing file that is not a directory.
func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
