package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/backend"
	"github.com/borderlesspay/bpay/internal/config"
	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/connector/bridge"
	"github.com/borderlesspay/bpay/internal/environment"
	"github.com/borderlesspay/bpay/internal/events"
	"github.com/borderlesspay/bpay/internal/ledger"
	"github.com/borderlesspay/bpay/internal/metrics"
	"github.com/borderlesspay/bpay/internal/output"
	"github.com/borderlesspay/bpay/internal/session"
	"github.com/borderlesspay/bpay/internal/transfer"
	"github.com/borderlesspay/bpay/internal/wallet"
)

// initTimeout bounds connector construction for commands that only need
// the restored session.
const initTimeout = 10 * time.Second

// Test seams for the collaborators that reach outside the process.
//
//nolint:gochecknoglobals // swapped in tests
var (
	newConnectorFactory = func(c *config.Config, l *config.Logger) connector.Factory {
		return bridge.NewFactory(c.Connector.BridgeURL, l)
	}
	newSessionStore = func(c *config.Config) session.Store {
		if !c.Security.SessionEnabled {
			return session.Disabled{}
		}
		return session.NewStore(c.SessionDir(), nil)
	}
)

type cmdContextKey struct{}

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg *config.Config
	Log *config.Logger
	Fmt *output.Formatter
	Msg *output.Messenger

	Factory  connector.Factory
	Provider *connector.Provider
	Bus      *events.Bus
	State    *wallet.State
	Metrics  *metrics.Metrics

	store session.Store
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(
	cfg *config.Config,
	logger *config.Logger,
	formatter *output.Formatter,
) *CommandContext {
	bus := events.NewBus()
	cc := &CommandContext{
		Cfg:      cfg,
		Log:      logger,
		Fmt:      formatter,
		Provider: connector.NewProvider(),
		Bus:      bus,
		State:    wallet.NewState(bus),
		Metrics:  metrics.Global,
	}
	if cfg != nil {
		cc.Factory = newConnectorFactory(cfg, logger)
	}
	return cc
}

// WithMessenger sets the status message writer.
func (c *CommandContext) WithMessenger(m *output.Messenger) *CommandContext {
	c.Msg = m
	return c
}

// WithFactory sets the connector factory.
func (c *CommandContext) WithFactory(f connector.Factory) *CommandContext {
	c.Factory = f
	return c
}

// WithStore sets the session store.
func (c *CommandContext) WithStore(s session.Store) *CommandContext {
	c.store = s
	return c
}

// SetCmdContext attaches cc to the command.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the context attached by SetCmdContext, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// Store returns the session store, creating it on first use.
func (c *CommandContext) Store() session.Store {
	if c.store == nil {
		c.store = newSessionStore(c.Cfg)
	}
	return c.store
}

// Signals returns the environment signals from configuration and flags.
func (c *CommandContext) Signals() environment.Signals {
	return environment.Signals{
		UserAgent:        c.Cfg.Browser.UserAgent,
		ExtensionPresent: c.Cfg.Browser.ExtensionPresent,
		InAppBridge:      c.Cfg.Browser.InAppBridge,
		PageURL:          c.Cfg.Browser.PageURL,
	}
}

// Environment classifies the host the command runs in.
func (c *CommandContext) Environment() environment.Environment {
	return environment.Detect(c.Signals(), c.Log)
}

// Network returns the configured ledger network.
func (c *CommandContext) Network() (ledger.Network, error) {
	return ledger.ParseNetwork(c.Cfg.Network)
}

// ConnectorOptions builds the connector configuration.
func (c *CommandContext) ConnectorOptions() (connector.Options, error) {
	network, err := c.Network()
	if err != nil {
		return connector.Options{}, err
	}
	app := c.Cfg.Connector.App
	return connector.Options{
		Network:   network,
		ProjectID: c.Cfg.Connector.ProjectID,
		Methods:   c.Cfg.Connector.Methods,
		Events:    c.Cfg.Connector.Events,
		Metadata: connector.Metadata{
			Name:        app.Name,
			Description: app.Description,
			URL:         app.URL,
			Icons:       app.Icons,
		},
	}, nil
}

// InitConnector constructs the connector and restores any persisted
// session. A failure is logged and returned; commands that can run
// without a wallet carry on.
func (c *CommandContext) InitConnector(ctx context.Context) error {
	opts, err := c.ConnectorOptions()
	if err != nil {
		return err
	}
	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	_, err = wallet.Initialize(initCtx, wallet.InitOptions{
		Connector: opts,
		Factory:   c.Factory,
		Provider:  c.Provider,
		State:     c.State,
		Store:     c.Store(),
		Logger:    c.Log,
	})
	return err
}

// Controller builds the connect flow controller.
func (c *CommandContext) Controller(presenter wallet.PairingPresenter) *wallet.Controller {
	return wallet.NewController(wallet.ControllerOptions{
		Provider:     c.Provider,
		State:        c.State,
		Bus:          c.Bus,
		Environment:  c.Environment(),
		Presenter:    presenter,
		Store:        c.Store(),
		Metrics:      c.Metrics,
		Logger:       c.Log,
		Timeout:      c.Cfg.ConnectTimeout(),
		PollInterval: c.Cfg.PollInterval(),
		DeepLink:     c.Cfg.Connection.DeepLinkScheme,
		Universal:    c.Cfg.Connection.UniversalLink,
	})
}

// PairingPresenter builds the terminal presenter for pairing codes.
func (c *CommandContext) PairingPresenter(w io.Writer, pngPath string, copyURI bool) *output.PairingPresenter {
	if pngPath != "" {
		pngPath = config.ExpandHome(pngPath)
	}
	return output.NewPairingPresenter(w, c.Msg, output.PairingOptions{
		PNGPath: pngPath,
		Copy:    copyURI,
	})
}

// Backend creates the backend API client.
func (c *CommandContext) Backend() (*backend.Client, error) {
	return backend.NewClient(c.Cfg.Transfer.BackendURL, &backend.ClientOptions{
		Metrics: c.Metrics,
	})
}

// Submitter builds the transfer submitter. The caller must Close it.
func (c *CommandContext) Submitter(client transfer.BackendProvider) (*transfer.Submitter, error) {
	network, err := c.Network()
	if err != nil {
		return nil, err
	}
	t := c.Cfg.Transfer
	return transfer.NewSubmitter(&transfer.Config{
		Settings: transfer.Settings{
			Network:           network,
			TokenID:           t.TokenID,
			TokenDecimals:     t.TokenDecimals,
			BackendSigning:    t.BackendSigning,
			OperatorAccountID: t.OperatorAccountID,
			UserID:            t.UserID,
			DefaultSender:     t.DefaultSender,
		},
		Backend:  client,
		Provider: c.Provider,
		Accounts: c.State,
		Metrics:  c.Metrics,
		Logger:   c.Log,
	}), nil
}

// Close releases the connector.
func (c *CommandContext) Close() {
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
	if c.Bus != nil {
		c.Bus.Close()
	}
}

// contextWithTimeout derives a bounded context from the command's context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}
