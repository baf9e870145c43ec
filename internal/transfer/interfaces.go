package transfer

import (
	"context"

	"github.com/borderlesspay/bpay/internal/backend"
)

// BackendProvider submits and records transfers through the transfer service.
type BackendProvider interface {
	Transfer(ctx context.Context, req backend.TransferRequest) (string, error)
}

// AccountSource reports the account of the connected wallet, if any.
type AccountSource interface {
	Connected() string
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
