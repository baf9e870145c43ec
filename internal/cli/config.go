package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/config"
	"github.com/borderlesspay/bpay/internal/ledger"
	"github.com/borderlesspay/bpay/internal/output"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// maxKeyTypoDistance is the largest edit distance offered as a suggestion.
const maxKeyTypoDistance = 3

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify bpay configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.bpay/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  bpay config init
  bpay config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: the file, then BPAY_* environment
variables, then command-line flags. The operator key is never shown.`,
	Example: `  bpay config show
  bpay config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get one effective configuration value by its dotted key.

Run "bpay config show" to list every key.`,
	Example: `  bpay config get transfer.token_id
  bpay config get connector.bridge_url
  bpay config get network`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeConfigKeys,
	RunE:              runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set one configuration value by its dotted key and save the file.

Environment variables are not written to the file.`,
	Example: `  bpay config set transfer.token_id 0.0.5678
  bpay config set transfer.token_decimals 2
  bpay config set output.default_format json`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeConfigKeys,
	RunE:              runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configCmd.GroupID = "admin"
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

// configKey reads and writes one dotted configuration key.
type configKey struct {
	get func(c *config.Config) string
	set func(c *config.Config, value string) error
}

func stringKey(field func(c *config.Config) *string) configKey {
	return configKey{
		get: func(c *config.Config) string { return *field(c) },
		set: func(c *config.Config, v string) error {
			*field(c) = strings.TrimSpace(v)
			return nil
		},
	}
}

func urlKey(field func(c *config.Config) *string) configKey {
	k := stringKey(field)
	k.set = func(c *config.Config, v string) error {
		*field(c) = config.SanitizeURL(v)
		return nil
	}
	return k
}

func boolKey(field func(c *config.Config) *bool) configKey {
	return configKey{
		get: func(c *config.Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *config.Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return bpayerr.WithDetails(bpayerr.ErrInvalidInput, map[string]string{"value": v, "valid": "true or false"})
			}
			*field(c) = b
			return nil
		},
	}
}

func intKey(field func(c *config.Config) *int, minimum int) configKey {
	return configKey{
		get: func(c *config.Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < minimum {
				return bpayerr.WithDetails(bpayerr.ErrInvalidInput, map[string]string{
					"value": v,
					"valid": fmt.Sprintf("an integer >= %d", minimum),
				})
			}
			*field(c) = n
			return nil
		},
	}
}

func enumKey(field func(c *config.Config) *string, valid ...string) configKey {
	k := stringKey(field)
	k.set = func(c *config.Config, v string) error {
		v = strings.ToLower(strings.TrimSpace(v))
		if !slices.Contains(valid, v) {
			return bpayerr.WithDetails(bpayerr.ErrInvalidInput, map[string]string{
				"value": v,
				"valid": strings.Join(valid, ", "),
			})
		}
		*field(c) = v
		return nil
	}
	return k
}

func entityKey(field func(c *config.Config) *string, invalid error) configKey {
	k := stringKey(field)
	k.set = func(c *config.Config, v string) error {
		v = strings.TrimSpace(v)
		if v != "" && !ledger.IsAccountID(v) {
			return bpayerr.WithDetails(invalid, map[string]string{"value": v})
		}
		*field(c) = v
		return nil
	}
	return k
}

// configKeys lists every key reachable through config get and set.
//
//nolint:gochecknoglobals // static key table
var configKeys = map[string]configKey{
	"home":                         stringKey(func(c *config.Config) *string { return &c.Home }),
	"network":                      enumKey(func(c *config.Config) *string { return &c.Network }, "testnet", "mainnet", "previewnet"),
	"connector.bridge_url":         urlKey(func(c *config.Config) *string { return &c.Connector.BridgeURL }),
	"connector.project_id":         stringKey(func(c *config.Config) *string { return &c.Connector.ProjectID }),
	"connector.app.name":           stringKey(func(c *config.Config) *string { return &c.Connector.App.Name }),
	"connector.app.url":            urlKey(func(c *config.Config) *string { return &c.Connector.App.URL }),
	"connection.timeout_seconds":   intKey(func(c *config.Config) *int { return &c.Connection.TimeoutSeconds }, 1),
	"connection.poll_interval_ms":  intKey(func(c *config.Config) *int { return &c.Connection.PollIntervalMS }, 50),
	"connection.deep_link_scheme":  stringKey(func(c *config.Config) *string { return &c.Connection.DeepLinkScheme }),
	"connection.universal_link":    urlKey(func(c *config.Config) *string { return &c.Connection.UniversalLink }),
	"transfer.backend_url":         urlKey(func(c *config.Config) *string { return &c.Transfer.BackendURL }),
	"transfer.backend_signing":     boolKey(func(c *config.Config) *bool { return &c.Transfer.BackendSigning }),
	"transfer.operator_account_id": entityKey(func(c *config.Config) *string { return &c.Transfer.OperatorAccountID }, bpayerr.ErrInvalidAccountID),
	"transfer.token_id":            entityKey(func(c *config.Config) *string { return &c.Transfer.TokenID }, bpayerr.ErrInvalidTokenID),
	"transfer.token_decimals":      intKey(func(c *config.Config) *int { return &c.Transfer.TokenDecimals }, 0),
	"transfer.user_id":             stringKey(func(c *config.Config) *string { return &c.Transfer.UserID }),
	"transfer.default_sender":      entityKey(func(c *config.Config) *string { return &c.Transfer.DefaultSender }, bpayerr.ErrInvalidAccountID),
	"server.listen":                stringKey(func(c *config.Config) *string { return &c.Server.Listen }),
	"browser.user_agent":           stringKey(func(c *config.Config) *string { return &c.Browser.UserAgent }),
	"browser.extension_present":    boolKey(func(c *config.Config) *bool { return &c.Browser.ExtensionPresent }),
	"browser.in_app_bridge":        boolKey(func(c *config.Config) *bool { return &c.Browser.InAppBridge }),
	"browser.page_url":             stringKey(func(c *config.Config) *string { return &c.Browser.PageURL }),
	"security.session_enabled":     boolKey(func(c *config.Config) *bool { return &c.Security.SessionEnabled }),
	"output.default_format":        enumKey(func(c *config.Config) *string { return &c.Output.DefaultFormat }, "text", "json", "auto"),
	"output.color":                 enumKey(func(c *config.Config) *string { return &c.Output.Color }, "auto", "always", "never"),
	"output.verbose":               boolKey(func(c *config.Config) *bool { return &c.Output.Verbose }),
	"logging.level":                enumKey(func(c *config.Config) *string { return &c.Logging.Level }, "off", "error", "debug"),
	"logging.file":                 stringKey(func(c *config.Config) *string { return &c.Logging.File }),
}

// sortedConfigKeys returns the key names in order.
func sortedConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// lookupConfigKey finds key or returns UNKNOWN_CONFIG_KEY with the closest
// known key as a suggestion.
func lookupConfigKey(key string) (configKey, error) {
	if k, ok := configKeys[key]; ok {
		return k, nil
	}
	err := bpayerr.WithDetails(bpayerr.ErrUnknownConfigKey, map[string]string{"key": key})
	if s := suggestConfigKey(key); s != "" {
		return configKey{}, bpayerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", s))
	}
	return configKey{}, bpayerr.WithSuggestion(err, `run "bpay config show" to list every key`)
}

// suggestConfigKey returns the known key closest to key, or "" when none
// is close enough. A key whose last segment matches exactly wins.
func suggestConfigKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ""
	}

	minDist := math.MaxInt
	var suggestion string
	for _, known := range sortedConfigKeys() {
		if known == key {
			return known
		}
		if strings.HasSuffix(known, "."+key) {
			return known
		}
		dist := levenshtein.ComputeDistance(key, known)
		if dist < minDist {
			minDist = dist
			suggestion = known
		}
	}

	if minDist <= maxKeyTypoDistance {
		return suggestion
	}
	return ""
}

func completeConfigKeys(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var matches []string
	for _, k := range sortedConfigKeys() {
		if strings.HasPrefix(k, toComplete) {
			matches = append(matches, k)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(cc.Cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return bpayerr.WithSuggestion(
			bpayerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cc.Cfg.Home

	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, map[string]string{"path": configPath})
	}
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - connector.bridge_url: wallet bridge websocket")
	outln(w, "  - connector.project_id: wallet connection project id")
	outln(w, "  - transfer.token_id: token to transfer (empty runs in demo mode)")
	outln(w, "  - transfer.backend_url: BorderlessPay backend")
	outln(w, "  - logging.level: Log level (off/error/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	if cc.Fmt.IsJSON() {
		values := make(map[string]string, len(configKeys))
		for name, k := range configKeys {
			values[name] = k.get(cc.Cfg)
		}
		return output.WriteJSON(w, values)
	}

	return displayConfigText(w, cc.Cfg)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	k, err := lookupConfigKey(args[0])
	if err != nil {
		return err
	}
	return cc.Fmt.Print(k.get(cc.Cfg))
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	key, value := args[0], args[1]

	k, err := lookupConfigKey(key)
	if err != nil {
		return err
	}

	configPath := config.Path(cc.Cfg.Home)
	current, err := config.Load(configPath)
	if err != nil {
		// If file doesn't exist, start with defaults
		current = config.Defaults()
		current.Home = cc.Cfg.Home
	}

	if err := k.set(current, value); err != nil {
		return err
	}

	if err := config.Save(current, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	msg := fmt.Sprintf("Set %s = %s", key, k.get(current))
	return output.FormatSuccess(cmd.OutOrStdout(), msg, cc.Fmt.Format())
}

// displayConfigText shows the config grouped by section.
func displayConfigText(w io.Writer, c *config.Config) error {
	outln(w, "Configuration:")
	outln(w)

	var sectioned []string
	for _, name := range sortedConfigKeys() {
		if !strings.Contains(name, ".") {
			out(w, "  %s: %s\n", name, displayValue(configKeys[name].get(c)))
			continue
		}
		sectioned = append(sectioned, name)
	}

	section := ""
	for _, name := range sectioned {
		head, field, _ := strings.Cut(name, ".")
		if head != section {
			section = head
			outln(w)
			out(w, "  %s:\n", head)
		}
		out(w, "    %s: %s\n", field, displayValue(configKeys[name].get(c)))
	}

	if c.Server.OperatorKey != "" {
		outln(w)
		outln(w, "  Operator key is set (hidden)")
	}
	return nil
}

func displayValue(v string) string {
	if v == "" {
		return "(not configured)"
	}
	return v
}
