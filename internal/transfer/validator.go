package transfer

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/borderlesspay/bpay/internal/ledger"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// validated is a request that passed validation.
type validated struct {
	recipient string
	amount    decimal.Decimal
	memo      string
}

// Validate checks a request without touching the network.
func Validate(req Request, decimals int) error {
	_, err := validate(req, decimals)
	return err
}

func validate(req Request, decimals int) (*validated, error) {
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		return nil, bpayerr.WithMessage(bpayerr.ErrInvalidRecipient, "recipient account id is required")
	}
	if _, err := ledger.ParseAccountID(recipient); err != nil {
		return nil, bpayerr.WithDetails(
			bpayerr.WithCause(bpayerr.ErrInvalidRecipient, err),
			map[string]string{"recipient": recipient},
		)
	}

	amount, err := ledger.ParseAmount(req.Amount, decimals)
	if err != nil {
		return nil, err
	}

	if len(req.Memo) > ledger.MaxMemoBytes {
		return nil, bpayerr.WithDetails(bpayerr.ErrMemoTooLong, map[string]string{
			"bytes": strconv.Itoa(len(req.Memo)),
			"max":   strconv.Itoa(ledger.MaxMemoBytes),
		})
	}

	return &validated{recipient: recipient, amount: amount, memo: req.Memo}, nil
}
