package wallet

import (
	"context"
	"errors"

	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/session"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// accountsChanged is the wallet event carrying a new account list.
const accountsChanged = "accountsChanged"

// InitOptions configure Initialize.
type InitOptions struct {
	Connector connector.Options
	Factory   connector.Factory
	Provider  *connector.Provider
	State     *State
	Store     session.Store
	Logger    Logger
}

// Initialize constructs a connector, wires its lifecycle notifications into
// the state and installs it in the provider, closing any connector it
// replaces. Sessions persisted by an earlier process are offered for resume
// and, when one carries an account, the state becomes connected.
//
// A failure leaves the state disconnected; callers may carry on without a
// connector, in which case Connect reports CONNECTOR_NOT_CONFIGURED.
func Initialize(ctx context.Context, opts InitOptions) (connector.Connector, error) {
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	store := opts.Store
	if store == nil {
		store = session.Disabled{}
	}
	if opts.Factory == nil || opts.Provider == nil || opts.State == nil {
		return nil, bpayerr.WithMessage(bpayerr.ErrConfigInvalid, "connector initialization is missing a factory, provider or state")
	}

	cfg := opts.Connector
	if store.Available() {
		resume, err := store.Load()
		if err != nil {
			logger.Error("loading persisted sessions: %v", err)
		}
		cfg.Resume = resume
		logger.Debug("offering %d persisted session(s) for resume", len(resume))
	}

	conn, err := opts.Factory(ctx, cfg)
	if err != nil {
		opts.State.MarkDisconnected()
		logger.Error("connector initialization failed: %v", err)
		return nil, bpayerr.WithCause(bpayerr.ErrConnectorUnavailable, err)
	}

	conn.OnEvent(lifecycleHandler(conn, opts.State, store, logger))

	if err := opts.Provider.Set(conn); err != nil {
		logger.Debug("closing previous connector: %v", err)
	}

	if account := connector.FirstAccount(conn.Sessions()); account != "" {
		logger.Debug("restored session for %s", account)
		opts.State.MarkConnected(account)
	}
	return conn, nil
}

// InitializeAsync runs Initialize in the background. The channel receives
// exactly one error (nil on success) and is then closed.
func InitializeAsync(ctx context.Context, opts InitOptions) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := Initialize(ctx, opts)
		done <- err
	}()
	return done
}

func lifecycleHandler(conn connector.Connector, state *State, store session.Store, logger Logger) connector.Handler {
	return func(ev connector.Event) {
		switch ev.Kind {
		case connector.IframeSessionCreated, connector.SessionUpdated:
			if ev.Session == nil {
				return
			}
			account := ev.Session.AccountID()
			logger.Debug("%s for topic %s (account %q)", ev.Kind, ev.Topic, account)
			if account == "" {
				return
			}
			state.MarkConnected(account)
			if store.Available() {
				if err := store.Save(*ev.Session); err != nil {
					logger.Error("persisting session %s: %v", ev.Topic, err)
				}
			}

		case connector.SessionDeleted:
			logger.Debug("session %s deleted by wallet", ev.Topic)
			if store.Available() {
				if err := store.Delete(ev.Topic); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
					logger.Error("removing session %s: %v", ev.Topic, err)
				}
			}
			if account := connector.FirstAccount(conn.Sessions()); account != "" {
				state.MarkConnected(account)
				return
			}
			state.MarkDisconnected()

		case connector.SessionEvent:
			logger.Debug("wallet event %s on %s", ev.Name, ev.Topic)
			if ev.Name != accountsChanged {
				return
			}
			for _, a := range ev.Data {
				if account := (connector.Session{Accounts: []string{a}}).AccountID(); account != "" {
					state.MarkConnected(account)
					return
				}
			}
		}
	}
}
