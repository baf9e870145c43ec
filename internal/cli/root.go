// Package cli implements the bpay command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/config"
	"github.com/borderlesspay/bpay/internal/output"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	debugPanel   bool

	// Browser signal flags
	userAgent     string
	extension     bool
	inApp         bool
	pageURL       string
	networkChoice string

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
	messenger *output.Messenger

	helpOnce sync.Once
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bpay",
	Short: "BorderlessPay wallet connection and transfers",
	Long: `bpay connects to a HashPack wallet and sends Hedera token transfers.

Transfers are signed by the connected wallet, by the BorderlessPay backend
operator, or simulated when no token is configured.

Example:
  bpay connect
  bpay send --to 0.0.1234 --amount 12.5 --memo "invoice 42"
  bpay serve --listen 127.0.0.1:3001`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
			return err
		}
		SetCmdContext(cmd, NewCommandContext(cfg, logger, formatter).WithMessenger(messenger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if debugPanel {
			printTrace(cmd.ErrOrStderr())
		}
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	helpOnce.Do(func() { walkCommands(rootCmd, enrichParentLong) })

	err := rootCmd.Execute()
	if err != nil {
		if debugPanel {
			printTrace(os.Stderr)
		}
		if formatter != nil {
			_ = output.FormatError(os.Stderr, err, formatter.Format())
		} else {
			_ = output.FormatError(os.Stderr, err, output.FormatText)
		}
		cleanup()
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return bpayerr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals(stdout, stderr io.Writer) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		// Use defaults if config doesn't exist
		cfg = config.Defaults()
		cfg.Home = home
	}

	if err := config.ApplyEnvironment(cfg); err != nil {
		return bpayerr.WithCause(bpayerr.ErrConfigInvalid, err)
	}

	applyFlagOverrides(cfg)

	level := config.ParseLogLevel(cfg.Logging.Level)
	logFile := cfg.Logging.File
	if debugPanel {
		level = config.LogLevelDebug
	}
	logger, err = config.NewLogger(level, logFile)
	if err != nil {
		// Keep the in-memory trace even when the file can't be opened
		logger, _ = config.NewLogger(level, "")
	}

	explicitFormat := output.ParseFormat(cfg.Output.DefaultFormat)
	formatter = output.NewFormatter(output.DetectFormat(stdout, explicitFormat), stdout)
	messenger = output.NewMessenger(stdout, stderr, cfg.Output.Color == "never")

	return nil
}

// applyFlagOverrides copies explicitly set flags over file and environment values.
func applyFlagOverrides(c *config.Config) {
	if homeDir != "" {
		c.Home = homeDir
	}
	if verbose {
		c.Output.Verbose = true
		c.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		c.Output.DefaultFormat = outputFormat
	}
	if networkChoice != "" {
		c.Network = networkChoice
	}
	if userAgent != "" {
		c.Browser.UserAgent = userAgent
	}
	if extension {
		c.Browser.ExtensionPresent = true
	}
	if inApp {
		c.Browser.InAppBridge = true
	}
	if pageURL != "" {
		c.Browser.PageURL = pageURL
	}
}

// printTrace writes the debug panel collected during the command.
func printTrace(w io.Writer) {
	if logger == nil {
		return
	}
	lines := logger.Trace()
	outln(w)
	out(w, "── debug log (%d lines) ──\n", len(lines))
	for _, line := range lines {
		outln(w, line)
	}
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&homeDir, "home", "", "bpay data directory (default: ~/.bpay)")
	flags.StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&debugPanel, "debug", false, "print the debug log after the command")
	flags.StringVar(&networkChoice, "network", "", "ledger network: testnet, mainnet, previewnet")
	flags.StringVar(&userAgent, "user-agent", "", "user agent used for environment detection")
	flags.BoolVar(&extension, "extension", false, "treat the wallet browser extension as installed")
	flags.BoolVar(&inApp, "in-app", false, "treat the session as running inside the wallet app")
	flags.StringVar(&pageURL, "page-url", "", "page URL used for environment detection")

	rootCmd.AddGroup(
		&cobra.Group{ID: "wallet", Title: "Wallet Commands:"},
		&cobra.Group{ID: "transfer", Title: "Transfer Commands:"},
		&cobra.Group{ID: "admin", Title: "Administration Commands:"},
	)
}
