package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/mrz1836/go-sanitize"
)

// EnvPrefix is the prefix shared by all bpay environment variables.
const EnvPrefix = "BPAY"

// Environment variable names.
const (
	EnvHome         = "BPAY_HOME"
	EnvOperatorKey  = "BPAY_OPERATOR_KEY" // #nosec G101 -- false positive, this is a const name not a credential
	EnvOutputFormat = "BPAY_OUTPUT_FORMAT"
	EnvNoColor      = "NO_COLOR"
)

// envOverrides mirrors the BPAY_* variables. Strings are used throughout so
// that an unset variable can be told apart from an explicit false or zero.
// Field names are split into words, so BridgeURL is read from BPAY_BRIDGE_URL.
// Name tags are avoided: envconfig falls back to the bare tag (HOME).
type envOverrides struct {
	Home            string `split_words:"true"`
	Network         string `split_words:"true"`
	BridgeURL       string `split_words:"true"`
	ProjectID       string `split_words:"true"`
	BackendURL      string `split_words:"true"`
	BackendSigning  string `split_words:"true"`
	OperatorID      string `split_words:"true"`
	OperatorKey     string `split_words:"true"`
	TokenID         string `split_words:"true"`
	TokenDecimals   string `split_words:"true"`
	UserID          string `split_words:"true"`
	DefaultSender   string `split_words:"true"`
	OutputFormat    string `split_words:"true"`
	Verbose         string `split_words:"true"`
	LogLevel        string `split_words:"true"`
	UserAgent       string `split_words:"true"`
	WalletExtension string `split_words:"true"`
	WalletInApp     string `split_words:"true"`
	Listen          string `split_words:"true"`
}

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}

	if env.Home != "" {
		cfg.Home = env.Home
	}
	if env.Network != "" {
		cfg.Network = strings.ToLower(strings.TrimSpace(env.Network))
	}
	if env.BridgeURL != "" {
		cfg.Connector.BridgeURL = SanitizeURL(env.BridgeURL)
	}
	if env.ProjectID != "" {
		cfg.Connector.ProjectID = strings.TrimSpace(env.ProjectID)
	}
	if env.BackendURL != "" {
		cfg.Transfer.BackendURL = SanitizeURL(env.BackendURL)
	}
	if env.BackendSigning != "" {
		cfg.Transfer.BackendSigning = parseBool(env.BackendSigning)
	}
	if env.OperatorID != "" {
		cfg.Transfer.OperatorAccountID = strings.TrimSpace(env.OperatorID)
	}
	if env.OperatorKey != "" {
		cfg.Server.OperatorKey = strings.TrimSpace(env.OperatorKey)
	}
	if env.TokenID != "" {
		cfg.Transfer.TokenID = strings.TrimSpace(env.TokenID)
	}
	if env.TokenDecimals != "" {
		if d, err := strconv.Atoi(env.TokenDecimals); err == nil && d >= 0 {
			cfg.Transfer.TokenDecimals = d
		}
	}
	if env.UserID != "" {
		cfg.Transfer.UserID = strings.TrimSpace(env.UserID)
	}
	if env.DefaultSender != "" {
		cfg.Transfer.DefaultSender = strings.TrimSpace(env.DefaultSender)
	}
	if env.OutputFormat != "" {
		cfg.Output.DefaultFormat = strings.ToLower(env.OutputFormat)
	}
	if env.Verbose != "" {
		cfg.Output.Verbose = parseBool(env.Verbose)
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(env.LogLevel)
	}
	if env.UserAgent != "" {
		cfg.Browser.UserAgent = env.UserAgent
	}
	if env.WalletExtension != "" {
		cfg.Browser.ExtensionPresent = parseBool(env.WalletExtension)
	}
	if env.WalletInApp != "" {
		cfg.Browser.InAppBridge = parseBool(env.WalletInApp)
	}
	if env.Listen != "" {
		cfg.Server.Listen = strings.TrimSpace(env.Listen)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}

	return nil
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided URLs that may contain copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
