package ledger

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// MaxDecimals is the largest token precision supported.
const MaxDecimals = 18

// ParseAmount parses a positive decimal amount with at most decimals
// fractional digits.
func ParseAmount(s string, decimals int) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, bpayerr.ErrAmountRequired
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, bpayerr.WithCause(bpayerr.ErrInvalidAmount, err)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, bpayerr.WithDetails(bpayerr.ErrInvalidAmount, map[string]string{"amount": s})
	}
	if decimals >= 0 && !d.Equal(d.Truncate(int32(decimals))) {
		return decimal.Decimal{}, bpayerr.WithDetails(
			bpayerr.WithMessage(bpayerr.ErrInvalidAmount, "amount has more decimal places than the token supports"),
			map[string]string{"amount": s, "decimals": strconv.Itoa(decimals)},
		)
	}
	return d, nil
}

// ToSmallestUnit scales an amount to the token's smallest unit.
func ToSmallestUnit(amount decimal.Decimal, decimals int) (int64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, bpayerr.WithDetails(bpayerr.ErrInvalidAmount, map[string]string{"decimals": "out of range"})
	}
	scaled := amount.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, bpayerr.WithMessage(bpayerr.ErrInvalidAmount, "amount has more decimal places than the token supports")
	}
	if !scaled.BigInt().IsInt64() {
		return 0, bpayerr.WithMessage(bpayerr.ErrInvalidAmount, "amount is too large")
	}
	return scaled.IntPart(), nil
}

// FormatAmount renders smallest units as a decimal string without trailing zeros.
func FormatAmount(units int64, decimals int) string {
	return decimal.New(units, -int32(decimals)).String()
}
