package transfer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borderlesspay/bpay/internal/backend"
	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/connector/connectortest"
	"github.com/borderlesspay/bpay/internal/ledger"
	"github.com/borderlesspay/bpay/internal/metrics"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

type mockBackend struct {
	mu       sync.Mutex
	requests []backend.TransferRequest
	txID     string
	err      error
}

func (m *mockBackend) Transfer(_ context.Context, req backend.TransferRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return m.txID, nil
}

func (m *mockBackend) calls() []backend.TransferRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.TransferRequest(nil), m.requests...)
}

type staticAccount string

func (a staticAccount) Connected() string { return string(a) }

func backendSettings() Settings {
	return Settings{
		Network:           ledger.Testnet,
		TokenID:           "0.0.5000",
		TokenDecimals:     2,
		BackendSigning:    true,
		OperatorAccountID: "0.0.1001",
		UserID:            "user-1",
	}
}

func TestSubmit_ValidationMakesNoCalls(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      Request
		expected error
	}{
		{"non numeric recipient", Request{Recipient: "abc", Amount: "1"}, bpayerr.ErrInvalidRecipient},
		{"empty recipient", Request{Recipient: "", Amount: "1"}, bpayerr.ErrInvalidRecipient},
		{"checksummed recipient", Request{Recipient: "0.0.123-vfmkw", Amount: "1"}, bpayerr.ErrInvalidRecipient},
		{"missing amount", Request{Recipient: "0.0.2", Amount: ""}, bpayerr.ErrAmountRequired},
		{"zero amount", Request{Recipient: "0.0.2", Amount: "0"}, bpayerr.ErrInvalidAmount},
		{"negative amount", Request{Recipient: "0.0.2", Amount: "-1"}, bpayerr.ErrInvalidAmount},
		{"too precise", Request{Recipient: "0.0.2", Amount: "1.001"}, bpayerr.ErrInvalidAmount},
		{"long memo", Request{Recipient: "0.0.2", Amount: "1", Memo: strings.Repeat("m", 101)}, bpayerr.ErrMemoTooLong},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			be := &mockBackend{txID: "tx-1"}
			fake := connectortest.New()
			provider := connector.NewProvider()
			require.NoError(t, provider.Set(fake))

			s := NewSubmitter(&Config{
				Settings: backendSettings(),
				Backend:  be,
				Provider: provider,
				Accounts: staticAccount("0.0.1001"),
				Metrics:  &metrics.Metrics{},
			})

			result, err := s.Submit(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.expected)
			assert.Nil(t, result)
			assert.Empty(t, be.calls())
			assert.Empty(t, fake.Signed())
		})
	}
}

func TestSubmit_BackendSigning(t *testing.T) {
	t.Parallel()

	be := &mockBackend{txID: "tx-1"}
	m := &metrics.Metrics{}
	s := NewSubmitter(&Config{Settings: backendSettings(), Backend: be, Metrics: m})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "10", Memo: "rent"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "tx-1", result.TransactionID)
	assert.Equal(t, PathBackend, result.Path)
	assert.Equal(t, "https://hashscan.io/testnet/transaction/tx-1", result.ExplorerURL)

	calls := be.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, backend.TransferRequest{
		TokenID:       "0.0.5000",
		FromAccountID: "0.0.1001",
		ToAccountID:   "0.0.1234",
		Amount:        "10",
		Memo:          "rent",
		UserID:        "user-1",
	}, calls[0])
	assert.Equal(t, int64(1), m.Snapshot().Transfers[PathBackend])
}

func TestSubmit_BackendFailureIsFriendly(t *testing.T) {
	t.Parallel()

	be := &mockBackend{err: bpayerr.WithMessage(bpayerr.ErrBackend, backend.FriendlyError("TOKEN_NOT_ASSOCIATED"))}
	s := NewSubmitter(&Config{Settings: backendSettings(), Backend: be, Metrics: &metrics.Metrics{}})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "1"})
	require.ErrorIs(t, err, bpayerr.ErrBackend)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, backend.FriendlyError("TOKEN_NOT_ASSOCIATED"), result.Error)
	assert.NotEqual(t, "TOKEN_NOT_ASSOCIATED", result.Error)
	assert.Empty(t, result.ExplorerURL)
}

func TestSubmit_BackendNotConfigured(t *testing.T) {
	t.Parallel()

	s := NewSubmitter(&Config{Settings: backendSettings(), Metrics: &metrics.Metrics{}})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "1"})
	require.ErrorIs(t, err, bpayerr.ErrConfigInvalid)
	assert.False(t, result.Success)
}

func TestSubmit_DemoWithoutToken(t *testing.T) {
	t.Parallel()

	be := &mockBackend{txID: "tx-1"}
	settings := backendSettings()
	settings.BackendSigning = false
	settings.TokenID = ""

	s := NewSubmitter(&Config{Settings: settings, Backend: be, Metrics: &metrics.Metrics{}})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "1"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, PathDemo, result.Path)
	assert.True(t, strings.HasPrefix(result.TransactionID, DemoPrefix))
	assert.Empty(t, result.ExplorerURL)
	assert.Empty(t, be.calls())
}

func TestSubmit_DemoUnreachableWithToken(t *testing.T) {
	t.Parallel()

	settings := backendSettings()
	settings.BackendSigning = false
	be := &mockBackend{txID: "tx-2"}

	s := NewSubmitter(&Config{Settings: settings, Backend: be, Metrics: &metrics.Metrics{}})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "1"})
	require.NoError(t, err)
	assert.NotEqual(t, PathDemo, result.Path)
	assert.False(t, strings.HasPrefix(result.TransactionID, DemoPrefix))
}

func TestSubmit_WalletSigned(t *testing.T) {
	t.Parallel()

	settings := backendSettings()
	settings.BackendSigning = false

	fake := connectortest.New()
	provider := connector.NewProvider()
	require.NoError(t, provider.Set(fake))
	be := &mockBackend{txID: "recorded"}
	m := &metrics.Metrics{}

	s := NewSubmitter(&Config{
		Settings: settings,
		Backend:  be,
		Provider: provider,
		Accounts: staticAccount("0.0.2002"),
		Metrics:  m,
	})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "2.5", Memo: "dinner"})
	require.NoError(t, err)
	s.Close()

	assert.True(t, result.Success)
	assert.Equal(t, PathWallet, result.Path)
	assert.Equal(t, "0.0.2002", result.From)
	assert.Equal(t, "0.0.2002@1700000000.000000000", result.TransactionID)

	signed := fake.Signed()
	require.Len(t, signed, 1)
	memo, tokenTransfers := decodeTransfer(t, signed[0])
	assert.Equal(t, "dinner", memo)

	token, _ := ledger.ParseTokenID("0.0.5000")
	legs := tokenTransfers[token]
	require.Len(t, legs, 2)
	var sum int64
	for _, leg := range legs {
		sum += leg.Amount
		assert.Equal(t, int64(250), abs(leg.Amount))
	}
	assert.Zero(t, sum)

	calls := be.calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].WalletSigned)
	assert.Equal(t, result.TransactionID, calls[0].TransactionID)
	assert.Equal(t, int64(1), m.Snapshot().Transfers[PathWallet])
}

func TestSubmit_WalletRecordFailureKeepsSuccess(t *testing.T) {
	t.Parallel()

	settings := backendSettings()
	settings.BackendSigning = false

	fake := connectortest.New()
	provider := connector.NewProvider()
	require.NoError(t, provider.Set(fake))

	s := NewSubmitter(&Config{
		Settings: settings,
		Backend:  &mockBackend{err: errors.New("store offline")},
		Provider: provider,
		Accounts: staticAccount("0.0.2002"),
		Metrics:  &metrics.Metrics{},
	})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "1"})
	s.Close()
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestSubmit_WalletRejected(t *testing.T) {
	t.Parallel()

	settings := backendSettings()
	settings.BackendSigning = false

	fake := connectortest.New()
	fake.SignFunc = func(string, []byte) (string, error) { return "", errors.New("USER_REJECTED: request rejected") }
	provider := connector.NewProvider()
	require.NoError(t, provider.Set(fake))
	be := &mockBackend{}

	s := NewSubmitter(&Config{
		Settings: settings,
		Backend:  be,
		Provider: provider,
		Accounts: staticAccount("0.0.2002"),
		Metrics:  &metrics.Metrics{},
	})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "1"})
	s.Close()
	require.ErrorIs(t, err, bpayerr.ErrUserRejected)
	assert.False(t, result.Success)
	assert.Empty(t, be.calls())
}

func TestSubmit_WalletExecutionFailure(t *testing.T) {
	t.Parallel()

	settings := backendSettings()
	settings.BackendSigning = false

	fake := connectortest.New()
	fake.SignFunc = func(string, []byte) (string, error) { return "", errors.New("INSUFFICIENT_TOKEN_BALANCE") }
	provider := connector.NewProvider()
	require.NoError(t, provider.Set(fake))

	s := NewSubmitter(&Config{
		Settings: settings,
		Provider: provider,
		Accounts: staticAccount("0.0.2002"),
		Metrics:  &metrics.Metrics{},
	})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "1"})
	require.ErrorIs(t, err, bpayerr.ErrTxRejected)
	assert.False(t, result.Success)
}

func TestSubmit_FallbackSender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		accounts AccountSource
		settings func(*Settings)
		expected string
	}{
		{"connected account without connector", staticAccount("0.0.3003"), func(*Settings) {}, "0.0.3003"},
		{"default sender", staticAccount(""), func(s *Settings) { s.DefaultSender = "0.0.4004" }, "0.0.4004"},
		{"operator id", nil, func(*Settings) {}, "0.0.1001"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			settings := backendSettings()
			settings.BackendSigning = false
			tc.settings(&settings)
			be := &mockBackend{txID: "tx-9"}

			s := NewSubmitter(&Config{Settings: settings, Backend: be, Accounts: tc.accounts, Metrics: &metrics.Metrics{}})

			result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "1"})
			require.NoError(t, err)
			assert.Equal(t, PathFallback, result.Path)
			require.Len(t, be.calls(), 1)
			assert.Equal(t, tc.expected, be.calls()[0].FromAccountID)
		})
	}
}

func TestSubmit_FallbackWithoutSender(t *testing.T) {
	t.Parallel()

	settings := backendSettings()
	settings.BackendSigning = false
	settings.OperatorAccountID = ""
	be := &mockBackend{txID: "tx-9"}

	s := NewSubmitter(&Config{Settings: settings, Backend: be, Accounts: staticAccount(""), Metrics: &metrics.Metrics{}})

	result, err := s.Submit(context.Background(), Request{Recipient: "0.0.1234", Amount: "1"})
	require.ErrorIs(t, err, bpayerr.ErrNotConnected)
	require.NotNil(t, result)
	assert.Equal(t, PathFallback, result.Path)
	assert.False(t, result.Success)
	assert.Equal(t, "no wallet is connected", result.Error)
	assert.Empty(t, be.calls())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(Request{Recipient: " 0.0.1234 ", Amount: "1.25", Memo: "ok"}, 2))
	require.ErrorIs(t, Validate(Request{Recipient: "0.0.1234", Amount: "abc"}, 2), bpayerr.ErrInvalidAmount)
	require.NoError(t, Validate(Request{Recipient: "0.0.1234", Amount: "1", Memo: strings.Repeat("m", 100)}, 0))
}

func decodeTransfer(t *testing.T, data []byte) (string, map[hedera.TokenID][]hedera.TokenTransfer) {
	t.Helper()

	parsed, err := hedera.TransactionFromBytes(data)
	require.NoError(t, err)

	switch tx := parsed.(type) {
	case hedera.TransferTransaction:
		return tx.GetTransactionMemo(), tx.GetTokenTransfers()
	case *hedera.TransferTransaction:
		return tx.GetTransactionMemo(), tx.GetTokenTransfers()
	default:
		t.Fatalf("unexpected transaction type %T", parsed)
		return "", nil
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
