// Package transfer validates transfers and dispatches them to the backend
// signer, the connected wallet, or a demo stand-in.
package transfer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/borderlesspay/bpay/internal/backend"
	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/ledger"
	"github.com/borderlesspay/bpay/internal/metrics"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// recordTimeout bounds the background record of a wallet-signed transfer.
const recordTimeout = 30 * time.Second

// Config holds dependencies for the submitter.
type Config struct {
	Settings Settings
	Backend  BackendProvider
	Provider *connector.Provider
	Accounts AccountSource
	Metrics  *metrics.Metrics
	Logger   LogWriter
}

// Submitter validates and dispatches transfers.
type Submitter struct {
	settings Settings
	backend  BackendProvider
	provider *connector.Provider
	accounts AccountSource
	metrics  *metrics.Metrics
	logger   LogWriter
	newID    func() string

	records sync.WaitGroup
}

// NewSubmitter creates a submitter.
func NewSubmitter(cfg *Config) *Submitter {
	s := &Submitter{
		settings: cfg.Settings,
		backend:  cfg.Backend,
		provider: cfg.Provider,
		accounts: cfg.Accounts,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		newID:    func() string { return uuid.NewString() },
	}
	if s.settings.Network == "" {
		s.settings.Network = ledger.Testnet
	}
	if s.metrics == nil {
		s.metrics = metrics.Global
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// Submit validates req and dispatches it. Validation failures return only
// an error and make no network call. Otherwise a Result is always returned;
// when it is unsuccessful the error carries the cause.
func (s *Submitter) Submit(ctx context.Context, req Request) (*Result, error) {
	v, err := validate(req, s.settings.TokenDecimals)
	if err != nil {
		return nil, err
	}

	result := &Result{
		To:      v.recipient,
		Amount:  v.amount.String(),
		TokenID: s.settings.TokenID,
		Memo:    v.memo,
	}

	switch {
	case s.settings.BackendSigningReady():
		result.Path = PathBackend
		result.From = s.settings.OperatorAccountID
		err = s.viaBackend(ctx, result)

	case s.settings.TokenID == "":
		result.Path = PathDemo
		s.demo(result)

	case s.walletConnected() != "":
		result.Path = PathWallet
		result.From = s.walletConnected()
		err = s.viaWallet(ctx, v, result)

	default:
		result.Path = PathFallback
		result.From = s.fallbackSender()
		if result.From == "" {
			err = bpayerr.WithSuggestion(bpayerr.ErrNotConnected,
				"run \"bpay connect\" or set transfer.default_sender")
			break
		}
		err = s.viaBackend(ctx, result)
	}

	s.metrics.RecordTransfer(result.Path, err)
	if err != nil {
		result.Success = false
		result.Error = bpayerr.Message(err)
		s.logger.Error("transfer via %s failed: %v", result.Path, err)
		return result, err
	}

	result.Success = true
	if result.Path != PathDemo {
		result.ExplorerURL = s.settings.Network.ExplorerTxURL(result.TransactionID)
	}
	s.logger.Debug("transfer via %s submitted: %s", result.Path, result.TransactionID)
	return result, nil
}

// Close waits for background records of wallet-signed transfers.
func (s *Submitter) Close() {
	s.records.Wait()
}

func (s *Submitter) viaBackend(ctx context.Context, result *Result) error {
	if s.backend == nil {
		return bpayerr.WithSuggestion(
			bpayerr.WithMessage(bpayerr.ErrConfigInvalid, "backend url is not configured"),
			"set transfer.backend_url or BPAY_BACKEND_URL",
		)
	}

	txID, err := s.backend.Transfer(ctx, s.backendRequest(result))
	if err != nil {
		return err
	}
	result.TransactionID = txID
	return nil
}

func (s *Submitter) demo(result *Result) {
	result.TransactionID = DemoPrefix + s.newID()
	s.logger.Debug("no token configured, returning demo transaction %s", result.TransactionID)
}

func (s *Submitter) viaWallet(ctx context.Context, v *validated, result *Result) error {
	conn := s.provider.Get()
	if conn == nil {
		return bpayerr.ErrConnectorNotConfigured
	}

	units, err := ledger.ToSmallestUnit(v.amount, s.settings.TokenDecimals)
	if err != nil {
		return err
	}
	tx, err := ledger.FrozenTransferBytes(ledger.TokenTransfer{
		TokenID: s.settings.TokenID,
		From:    result.From,
		To:      v.recipient,
		Units:   units,
		Memo:    v.memo,
	})
	if err != nil {
		return err
	}

	txID, err := conn.SignAndExecuteTransaction(ctx, result.From, tx)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "rejected") {
			return bpayerr.WithCause(
				bpayerr.WithMessage(bpayerr.ErrUserRejected, "transfer was rejected in the wallet"), err)
		}
		return bpayerr.WithDetails(bpayerr.WithCause(bpayerr.ErrTxRejected, err),
			map[string]string{"reason": err.Error()})
	}
	result.TransactionID = txID

	s.record(s.backendRequest(result))
	return nil
}

// record stores a wallet-signed transfer with the backend in the
// background. Failures are logged; the transfer already succeeded.
func (s *Submitter) record(req backend.TransferRequest) {
	if s.backend == nil {
		return
	}
	req.WalletSigned = true

	s.records.Add(1)
	go func() {
		defer s.records.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if _, err := s.backend.Transfer(ctx, req); err != nil {
			s.logger.Error("recording wallet transfer %s: %v", req.TransactionID, err)
			return
		}
		s.logger.Debug("recorded wallet transfer %s", req.TransactionID)
	}()
}

func (s *Submitter) backendRequest(result *Result) backend.TransferRequest {
	return backend.TransferRequest{
		TokenID:       s.settings.TokenID,
		FromAccountID: result.From,
		ToAccountID:   result.To,
		Amount:        result.Amount,
		Memo:          result.Memo,
		UserID:        s.settings.UserID,
		TransactionID: result.TransactionID,
	}
}

func (s *Submitter) walletConnected() string {
	if s.accounts == nil || s.provider == nil || s.provider.Get() == nil {
		return ""
	}
	return s.accounts.Connected()
}

// fallbackSender picks the best sender identity the backend can act for.
func (s *Submitter) fallbackSender() string {
	if s.accounts != nil {
		if account := s.accounts.Connected(); account != "" {
			return account
		}
	}
	if s.settings.DefaultSender != "" {
		return s.settings.DefaultSender
	}
	return s.settings.OperatorAccountID
}
