// Package config provides configuration management for bpay.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Home       string           `yaml:"home"`
	Network    string           `yaml:"network"`
	Connector  ConnectorConfig  `yaml:"connector"`
	Connection ConnectionConfig `yaml:"connection"`
	Transfer   TransferConfig   `yaml:"transfer"`
	Server     ServerConfig     `yaml:"server"`
	Browser    BrowserConfig    `yaml:"browser"`
	Security   SecurityConfig   `yaml:"security"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ConnectorConfig defines how the wallet connector is constructed.
type ConnectorConfig struct {
	BridgeURL string      `yaml:"bridge_url"`
	ProjectID string      `yaml:"project_id"`
	Methods   []string    `yaml:"methods"`
	Events    []string    `yaml:"events"`
	App       AppMetadata `yaml:"app"`
}

// AppMetadata is presented to the wallet during pairing.
type AppMetadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	Icons       []string `yaml:"icons"`
}

// ConnectionConfig tunes the connect flow.
type ConnectionConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	DeepLinkScheme string `yaml:"deep_link_scheme"`
	UniversalLink  string `yaml:"universal_link"`
}

// TransferConfig defines transfer dispatch settings.
type TransferConfig struct {
	BackendURL        string `yaml:"backend_url"`
	BackendSigning    bool   `yaml:"backend_signing"`
	OperatorAccountID string `yaml:"operator_account_id"`
	TokenID           string `yaml:"token_id"`
	TokenDecimals     int    `yaml:"token_decimals"`
	UserID            string `yaml:"user_id"`
	DefaultSender     string `yaml:"default_sender"`
}

// ServerConfig defines the backend transfer service settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// OperatorKey is normally supplied through BPAY_OPERATOR_KEY and never saved.
	OperatorKey string `yaml:"-"`
}

// BrowserConfig describes the host the wallet flow runs in. The CLI has no
// real browser, so these stand in for the user agent and injected objects.
type BrowserConfig struct {
	UserAgent        string `yaml:"user_agent"`
	ExtensionPresent bool   `yaml:"extension_present"`
	InAppBridge      bool   `yaml:"in_app_bridge"`
	PageURL          string `yaml:"page_url"`
}

// SecurityConfig defines session persistence settings.
type SecurityConfig struct {
	SessionEnabled bool `yaml:"session_enabled"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the bpay home directory path with ~ expanded.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// ConnectTimeout returns the connect race timeout.
func (c *Config) ConnectTimeout() time.Duration {
	if c.Connection.TimeoutSeconds <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(c.Connection.TimeoutSeconds) * time.Second
}

// PollInterval returns the session polling interval used while connecting.
func (c *Config) PollInterval() time.Duration {
	if c.Connection.PollIntervalMS <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.Connection.PollIntervalMS) * time.Millisecond
}

// SessionDir returns the directory holding persisted pairing sessions.
func (c *Config) SessionDir() string {
	return filepath.Join(c.GetHome(), "sessions")
}

// BackendSigningReady reports whether transfers go to the backend signer.
func (c *Config) BackendSigningReady() bool {
	return c.Transfer.BackendSigning && c.Transfer.OperatorAccountID != ""
}

// DefaultHome returns the default bpay home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bpay"
	}
	return filepath.Join(home, ".bpay")
}

// ExpandHome expands a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
