package wallet

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/environment"
	"github.com/borderlesspay/bpay/internal/events"
	"github.com/borderlesspay/bpay/internal/metrics"
	"github.com/borderlesspay/bpay/internal/session"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// Phase is the controller's position in the connect flow.
type Phase string

// Controller phases.
const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseConnected  Phase = "connected"
	PhaseFailed     Phase = "failed"
	PhaseCancelled  Phase = "cancelled"
)

// Defaults for ControllerOptions.
const (
	DefaultTimeout      = 60 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultDeepLink     = "hashpack://wc"
	DefaultUniversal    = "https://link.hashpack.app/wc"
)

// ControllerOptions configure a Controller. Provider and State are
// required; everything else has a default.
type ControllerOptions struct {
	Provider     *connector.Provider
	State        *State
	Bus          *events.Bus
	Environment  environment.Environment
	Presenter    PairingPresenter
	Opener       Opener
	Store        session.Store
	Metrics      *metrics.Metrics
	Logger       Logger
	Timeout      time.Duration
	PollInterval time.Duration
	DeepLink     string
	Universal    string
}

// Controller runs the connect flow. At most one attempt runs at a time.
type Controller struct {
	opts     ControllerOptions
	inFlight atomic.Bool

	mu         sync.Mutex
	phase      Phase
	pendingURI string
}

// NewController creates a controller in the idle phase.
func NewController(opts ControllerOptions) *Controller {
	if opts.Presenter == nil {
		opts.Presenter = nopPresenter{}
	}
	if opts.Opener == nil {
		opts.Opener = BrowserOpener{}
	}
	if opts.Store == nil {
		opts.Store = session.Disabled{}
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Global
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.DeepLink == "" {
		opts.DeepLink = DefaultDeepLink
	}
	if opts.Universal == "" {
		opts.Universal = DefaultUniversal
	}
	if opts.Environment == "" || opts.Environment == environment.Detecting {
		opts.Environment = environment.DesktopBrowser
	}
	return &Controller{opts: opts, phase: PhaseIdle}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// PendingURI returns the pairing URI shown while connecting, if any.
func (c *Controller) PendingURI() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingURI
}

type connectResult struct {
	session *connector.Session
	err     error
}

// Connect pairs with the wallet and returns the connected account id.
//
// The attempt resolves on whichever comes first: the connector's own result,
// a wallet-connect broadcast, or an account appearing in the connector's
// session list (polled). It fails with CONNECTION_TIMEOUT when none arrives
// within the timeout and with CANCELLED when ctx ends. onConnected, if set,
// is called once with the account before Connect returns.
//
//nolint:gocognit,gocyclo // single select loop over every resolution signal
func (c *Controller) Connect(ctx context.Context, onConnected func(accountID string)) (string, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return "", bpayerr.ErrConnectInProgress
	}
	defer c.inFlight.Store(false)

	conn := c.opts.Provider.Get()
	if conn == nil {
		c.opts.Metrics.RecordConnectFailure(metrics.FailureUnavailable)
		return "", bpayerr.ErrConnectorNotConfigured
	}

	c.opts.Metrics.RecordConnectAttempt()

	if account := c.opts.State.Connected(); account != "" {
		return c.win(conn, metrics.SignalExisting, account, onConnected), nil
	}
	if account := connector.FirstAccount(conn.Sessions()); account != "" {
		return c.win(conn, metrics.SignalExisting, account, onConnected), nil
	}

	c.opts.State.MarkConnecting()
	c.setPhase(PhaseConnecting)
	c.opts.Logger.Debug("connecting (environment %s, timeout %s)", c.opts.Environment, c.opts.Timeout)

	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	sub, unsubscribe := c.opts.Bus.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	results := make(chan connectResult, 1)
	go func() {
		s, err := conn.Connect(attemptCtx, c.handleURI)
		results <- connectResult{session: s, err: err}
	}()

	for {
		select {
		case res := <-results:
			results = nil
			if res.err == nil {
				if res.session != nil {
					if account := res.session.AccountID(); account != "" {
						return c.win(conn, metrics.SignalResult, account, onConnected), nil
					}
				}
				c.opts.Logger.Debug("connect returned without an account, waiting for other signals")
				continue
			}
			if account := connector.FirstAccount(conn.Sessions()); account != "" {
				c.opts.Logger.Debug("connect failed (%v) but a session exists", res.err)
				return c.win(conn, metrics.SignalPoll, account, onConnected), nil
			}
			if attemptCtx.Err() != nil {
				return "", c.expire(ctx)
			}
			return "", c.fail(res.err)

		case ev, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			if ev.Kind == events.WalletConnect && ev.AccountID != "" {
				return c.win(conn, metrics.SignalEvent, ev.AccountID, onConnected), nil
			}

		case <-ticker.C:
			if account := connector.FirstAccount(conn.Sessions()); account != "" {
				return c.win(conn, metrics.SignalPoll, account, onConnected), nil
			}

		case <-attemptCtx.Done():
			if account := connector.FirstAccount(conn.Sessions()); account != "" {
				return c.win(conn, metrics.SignalPoll, account, onConnected), nil
			}
			return "", c.expire(ctx)
		}
	}
}

// Disconnect ends every session, forgets persisted sessions and clears the
// state. wallet-disconnect is broadcast once; further calls are no-ops.
func (c *Controller) Disconnect(ctx context.Context) error {
	var err error
	if conn := c.opts.Provider.Get(); conn != nil {
		if err = conn.DisconnectAll(ctx); err != nil {
			c.opts.Logger.Error("disconnecting sessions: %v", err)
			err = bpayerr.WithCause(bpayerr.ErrNetworkError, err)
		}
	}
	if c.opts.Store.Available() {
		c.opts.Store.DeleteAll()
	}

	c.clearPairing()
	if c.opts.State.MarkDisconnected() {
		c.opts.Logger.Debug("wallet disconnected")
	}
	c.setPhase(PhaseIdle)
	return err
}

// handleURI routes a pairing URI according to the environment.
func (c *Controller) handleURI(uri string) {
	c.opts.Logger.Debug("pairing uri received (%s)", c.opts.Environment)

	switch {
	case c.opts.Environment == environment.InApp:
		return

	case c.opts.Environment.ShowsPairingCode():
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.phase != PhaseConnecting {
			return
		}
		c.pendingURI = uri
		c.opts.Presenter.Present(uri, PairingLink(c.opts.DeepLink, uri))

	default:
		deep := PairingLink(c.opts.DeepLink, uri)
		if err := c.opts.Opener.OpenURL(deep); err != nil {
			c.opts.Logger.Debug("deep link failed (%v), opening universal link", err)
			if err := c.opts.Opener.OpenURL(PairingLink(c.opts.Universal, uri)); err != nil {
				c.opts.Logger.Error("opening universal link: %v", err)
			}
		}
	}
}

func (c *Controller) win(conn connector.Connector, signal, account string, onConnected func(string)) string {
	c.opts.State.MarkConnected(account)
	c.clearPairing()
	c.setPhase(PhaseConnected)
	c.opts.Metrics.RecordConnectWin(signal)
	c.opts.Logger.Debug("connected to %s via %s", account, signal)
	c.persist(conn)

	if onConnected != nil {
		onConnected(account)
	}
	return account
}

func (c *Controller) persist(conn connector.Connector) {
	if !c.opts.Store.Available() {
		return
	}
	for _, s := range conn.Sessions() {
		if s.AccountID() == "" {
			continue
		}
		if err := c.opts.Store.Save(s); err != nil {
			c.opts.Logger.Error("persisting session %s: %v", s.Topic, err)
		}
	}
}

// expire ends an attempt whose context finished: cancellation when the
// caller's ctx ended, timeout otherwise.
func (c *Controller) expire(parent context.Context) error {
	c.clearPairing()
	if parent.Err() != nil {
		c.opts.State.MarkDisconnected()
		c.setPhase(PhaseCancelled)
		c.opts.Metrics.RecordConnectFailure(metrics.FailureCancelled)
		c.opts.Logger.Debug("connect cancelled")
		return bpayerr.WithCause(bpayerr.ErrCancelled, parent.Err())
	}

	c.opts.State.MarkFailed(bpayerr.Message(bpayerr.ErrConnectionTimeout))
	c.setPhase(PhaseFailed)
	c.opts.Metrics.RecordConnectFailure(metrics.FailureTimeout)
	c.opts.Logger.Error("connect timed out after %s", c.opts.Timeout)
	return bpayerr.ErrConnectionTimeout
}

func (c *Controller) fail(cause error) error {
	c.clearPairing()
	err := ClassifyConnectError(cause)

	if errors.Is(err, bpayerr.ErrUserRejected) {
		c.opts.State.MarkDisconnected()
		c.setPhase(PhaseCancelled)
		c.opts.Metrics.RecordConnectFailure(metrics.FailureRejected)
		c.opts.Logger.Debug("connection rejected in wallet: %v", cause)
		return err
	}

	c.opts.State.MarkFailed(bpayerr.Message(err))
	c.setPhase(PhaseFailed)
	c.opts.Metrics.RecordConnectFailure(failureClass(err))
	c.opts.Logger.Error("connect failed: %v", cause)
	return err
}

func (c *Controller) clearPairing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingURI != "" {
		c.pendingURI = ""
		c.opts.Presenter.Clear()
	}
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = p
}

// ClassifyConnectError maps a connector failure onto the connect error
// taxonomy by inspecting its message.
func ClassifyConnectError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "compatible"):
		return bpayerr.WithCause(bpayerr.ErrNoCompatibleAccount, err)
	case strings.Contains(msg, "rejected"):
		return bpayerr.WithCause(bpayerr.ErrUserRejected, err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"),
		strings.Contains(msg, "expired"), errors.Is(err, context.DeadlineExceeded):
		return bpayerr.WithCause(bpayerr.ErrConnectionTimeout, err)
	default:
		return bpayerr.WithDetails(bpayerr.WithCause(bpayerr.ErrConnectFailed, err),
			map[string]string{"reason": err.Error()})
	}
}

func failureClass(err error) string {
	switch {
	case errors.Is(err, bpayerr.ErrNoCompatibleAccount):
		return metrics.FailureNoAccount
	case errors.Is(err, bpayerr.ErrConnectionTimeout):
		return metrics.FailureTimeout
	default:
		return metrics.FailureOther
	}
}
