// Package main provides the macclient CLI entry point.
// macclient expands, encodes and decodes HLA multiple allele codes through the MAC service.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"macclient/internal/batch"
	"macclient/internal/config"
	"macclient/internal/dispatch"
	"macclient/internal/logger"
	"macclient/internal/macservice"
	"macclient/internal/output"
	"macclient/internal/session"
	"macclient/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// The usage has already been printed for an empty command line.
		if !errors.Is(err, dispatch.ErrNoTokens) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// newRootCmd builds the root command. It has no subcommands and does no flag parsing of
// its own: every argument reaches runClient verbatim and in order.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "macclient [--proxy=..] [--url=..] [--hla=..] [expand|encode|decode] typings|files...",
		Short: "HLA multiple allele code client",
		Long: `macclient translates HLA typings between multiple allele codes and allele lists
using the MAC service. Arguments are handled left to right: options change the session,
mode keywords switch the operation, files are processed line by line and anything else
is looked up as a typing.`,
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE:               runClient,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return rootCmd
}

// standaloneCommands run only when their name is the sole argument. They are not added
// to the cobra tree, so the same word anywhere else in a command line stays a token
// (a typing, or a file named "config").
func standaloneCommands() []*cobra.Command {
	// versionCmd prints build information
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersion())
			return err
		},
	}

	// configCmd prints the effective configuration
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration as YAML",
		RunE:  runConfig,
	}

	return []*cobra.Command{versionCmd, configCmd}
}

// runStandalone runs the standalone command named by args, if there is one.
func runStandalone(cmd *cobra.Command, args []string) (bool, error) {
	if len(args) != 1 {
		return false, nil
	}
	for _, sub := range standaloneCommands() {
		if sub.Name() != args[0] {
			continue
		}
		sub.SetOut(cmd.OutOrStdout())
		sub.SetErr(cmd.ErrOrStderr())
		sub.SetContext(cmd.Context())
		return true, sub.RunE(sub, nil)
	}
	return false, nil
}

func runClient(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
		dispatch.WriteUsage(cmd.OutOrStdout())
		return nil
	}
	if handled, err := runStandalone(cmd, args); handled {
		return err
	}

	cfg, err := config.Load(config.DefaultPaths())
	if err != nil {
		return err
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	logger.Debug("Starting macclient", "version", version.GetFormattedVersion(), "endpoint", cfg.URL)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := macservice.NewHTTPFactory(macservice.WithTimeout(cfg.Timeout))
	dispatcher, err := newDispatcher(cfg, factory, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return dispatcher.Run(ctx, args)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.DefaultPaths())
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// newDispatcher seeds a session from cfg and wires it to a printer on stdout.
func newDispatcher(cfg *config.Config, factory macservice.Factory, stdout, stderr io.Writer) (*dispatch.Dispatcher, error) {
	kind, ok := session.ParseKind(cfg.Mode)
	if !ok {
		return nil, fmt.Errorf("invalid mode %q", cfg.Mode)
	}
	mode, ok := output.ParseMode(cfg.Color)
	if !ok {
		return nil, fmt.Errorf("invalid color %q", cfg.Color)
	}
	proxy, err := session.ParseProxy(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("configured proxy: %w", err)
	}
	theme, err := output.LoadTheme(cfg.Theme, stdout)
	if err != nil {
		return nil, err
	}

	state, err := session.New(factory, session.Config{
		EndpointURL:     cfg.URL,
		DatabaseVersion: cfg.HLA,
		Proxy:           proxy,
		Kind:            kind,
	})
	if err != nil {
		return nil, err
	}

	printer := output.NewPrinter(output.WithWriter(stdout), output.WithStyles(theme), output.WithMode(mode))
	processor := batch.NewProcessor(printer,
		batch.WithMinTypingLength(cfg.MinTypingLength),
		batch.WithHeartbeatInterval(cfg.HeartbeatInterval))
	return dispatch.New(state, processor, printer, dispatch.WithUsageWriter(stderr)), nil
}
