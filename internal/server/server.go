// Package server is the backend transfer service: it executes transfers
// with a custodial operator key and records wallet-signed transfers.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/borderlesspay/bpay/internal/ledger"
	"github.com/borderlesspay/bpay/internal/metrics"
	"github.com/borderlesspay/bpay/internal/records"
)

const (
	// maxRequestBody caps transfer payloads (1 MB).
	maxRequestBody = 1 << 20

	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 90 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Ledger executes operator-signed transfers. *ledger.Operator implements it.
type Ledger interface {
	AccountID() string
	Transfer(ctx context.Context, t ledger.TokenTransfer) (*ledger.Receipt, error)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Options configure a Server.
type Options struct {
	// Ledger executes transfers. Without it only wallet-signed records are
	// accepted.
	Ledger Ledger
	// Records holds transfer history. Defaults to an empty book.
	Records *records.Book
	// Storage, when set, receives the book after every change.
	Storage *records.FileStorage
	// TokenDecimals is the precision of the configured token.
	TokenDecimals int
	// DefaultTokenID is used when a request names no token.
	DefaultTokenID string
	Metrics        *metrics.Metrics
	Logger         LogWriter
}

// Server serves the transfer API.
type Server struct {
	ledger         Ledger
	records        *records.Book
	storage        *records.FileStorage
	tokenDecimals  int
	defaultTokenID string
	metrics        *metrics.Metrics
	logger         LogWriter
}

// New creates a server.
func New(opts Options) *Server {
	s := &Server{
		ledger:         opts.Ledger,
		records:        opts.Records,
		storage:        opts.Storage,
		tokenDecimals:  opts.TokenDecimals,
		defaultTokenID: opts.DefaultTokenID,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
	}
	if s.records == nil {
		s.records = records.NewBook()
	}
	if s.metrics == nil {
		s.metrics = metrics.Global
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// Handler returns the HTTP handler for every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/hedera/transfer", s.handleTransfer)
	mux.HandleFunc("GET /api/hedera/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/environment", s.handleEnvironment)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.withRequestID(mux)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
// ready, if non-nil, receives the bound address once listening.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Debug("transfer service listening on %s", ln.Addr())
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
