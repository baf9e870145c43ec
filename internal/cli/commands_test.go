package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borderlesspay/bpay/internal/backend"
	"github.com/borderlesspay/bpay/internal/config"
	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/connector/connectortest"
	"github.com/borderlesspay/bpay/internal/ledger"
	"github.com/borderlesspay/bpay/internal/metrics"
	"github.com/borderlesspay/bpay/internal/records"
	"github.com/borderlesspay/bpay/internal/server"
	"github.com/borderlesspay/bpay/internal/session"
	"github.com/borderlesspay/bpay/internal/transfer"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

var errBridgeDown = errors.New("dial tcp 127.0.0.1:8787: connect: connection refused")

func walletSession(account string) connector.Session {
	return connector.Session{
		Topic:    "topic-" + account,
		Accounts: []string{"hedera:testnet:" + account},
		Peer:     connector.Peer{Name: "HashPack"},
	}
}

type fakeLedger struct {
	mu        sync.Mutex
	transfers []ledger.TokenTransfer
	receipt   *ledger.Receipt
}

func (f *fakeLedger) AccountID() string { return "0.0.1001" }

func (f *fakeLedger) Transfer(_ context.Context, t ledger.TokenTransfer) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, t)
	return f.receipt, nil
}

func (f *fakeLedger) calls() []ledger.TokenTransfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ledger.TokenTransfer(nil), f.transfers...)
}

// transferService starts the backend service in-process.
func transferService(t *testing.T, opts server.Options) *httptest.Server {
	t.Helper()
	if opts.TokenDecimals == 0 {
		opts.TokenDecimals = 6
	}
	opts.Metrics = &metrics.Metrics{}
	ts := httptest.NewServer(server.New(opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestEnv(t *testing.T) {
	home := testHome(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default desktop", nil, "desktop_browser"},
		{"extension", []string{"--extension"}, "desktop_extension"},
		{"mobile", []string{"--user-agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"}, "mobile_browser"},
		{"in app", []string{"--in-app"}, "hashpack_in_app"},
		{"page url", []string{"--page-url", "https://pay.example/?wallet=hashpack"}, "hashpack_in_app"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, err := run(t, home, append([]string{"env", "-o", "json"}, tc.args...)...)
			require.NoError(t, err)

			var report envReport
			require.NoError(t, json.Unmarshal([]byte(stdout), &report))
			assert.Equal(t, tc.want, string(report.Environment))
		})
	}
}

func TestEnv_Text(t *testing.T) {
	home := testHome(t)

	stdout, _, err := run(t, home, "env", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Environment: desktop_browser")
	assert.Contains(t, stdout, "QR code")
}

func TestDebugPanel(t *testing.T) {
	home := testHome(t)

	_, stderr, err := run(t, home, "env", "-o", "json", "--debug")
	require.NoError(t, err)
	assert.Contains(t, stderr, "debug log")
	assert.Contains(t, stderr, "environment detected: desktop_browser")
}

func TestConnect_ResultWins(t *testing.T) {
	home := testHome(t)
	fake := connectortest.New()
	fake.ConnectFunc = func(context.Context) (*connector.Session, error) {
		s := walletSession("0.0.1234")
		return &s, nil
	}
	useConnector(t, fake, nil)
	useStore(t, newMemStore())

	stdout, _, err := run(t, home, "connect", "-o", "json")
	require.NoError(t, err)

	var report connectReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "0.0.1234", report.AccountID)
	assert.Equal(t, "desktop_browser", string(report.Environment))
	assert.True(t, fake.Closed())
}

func TestConnect_ShowsPairingCode(t *testing.T) {
	home := testHome(t)
	fake := connectortest.New()
	fake.URI = "wc:abc@2?relay-protocol=irn"
	fake.ConnectFunc = func(context.Context) (*connector.Session, error) {
		s := walletSession("0.0.1234")
		return &s, nil
	}
	useConnector(t, fake, nil)
	useStore(t, newMemStore())

	stdout, _, err := run(t, home, "connect", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Scan with HashPack")
	assert.Contains(t, stdout, fake.URI)
	assert.Contains(t, stdout, "hashpack://wc?uri=")
	assert.Contains(t, stdout, "Connected to 0.0.1234")
}

func TestConnect_RestoredSessionSkipsPairing(t *testing.T) {
	home := testHome(t)
	fake := connectortest.New(walletSession("0.0.777"))
	useConnector(t, fake, nil)
	useStore(t, newMemStore())

	stdout, _, err := run(t, home, "connect", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"accountId": "0.0.777"`)
	assert.Equal(t, 0, fake.ConnectCalls())
}

func TestConnect_BridgeUnavailable(t *testing.T) {
	home := testHome(t)
	useConnector(t, nil, errBridgeDown)
	useStore(t, newMemStore())

	_, _, err := run(t, home, "connect", "-o", "json")
	require.Error(t, err)
	require.ErrorIs(t, err, bpayerr.ErrConnectorNotConfigured)

	var be *bpayerr.BpayError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, be.Suggestion, config.DefaultBridgeURL)
}

func TestConnect_Rejected(t *testing.T) {
	home := testHome(t)
	fake := connectortest.New()
	fake.ConnectFunc = func(context.Context) (*connector.Session, error) {
		return nil, errors.New("User rejected the session proposal")
	}
	useConnector(t, fake, nil)
	useStore(t, newMemStore())

	_, _, err := run(t, home, "connect", "-o", "json")
	require.ErrorIs(t, err, bpayerr.ErrUserRejected)
}

func TestDisconnect(t *testing.T) {
	home := testHome(t)
	fake := connectortest.New(walletSession("0.0.1234"))
	useConnector(t, fake, nil)
	store := newMemStore(walletSession("0.0.1234"))
	useStore(t, store)

	stdout, _, err := run(t, home, "disconnect", "-o", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, true, got["disconnected"])
	assert.Equal(t, "0.0.1234", got["accountId"])
	assert.Equal(t, 1, fake.DisconnectAllCalls())
	assert.Zero(t, store.count())
}

func TestDisconnect_NothingConnected(t *testing.T) {
	home := testHome(t)
	useConnector(t, connectortest.New(), nil)
	useStore(t, newMemStore())

	stdout, _, err := run(t, home, "disconnect", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No wallet was connected")
}

func TestStatus(t *testing.T) {
	t.Run("connector unavailable", func(t *testing.T) {
		home := testHome(t)
		useConnector(t, nil, errBridgeDown)
		useStore(t, newMemStore())

		stdout, _, err := run(t, home, "status", "-o", "json")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, "disconnected", got["status"])
		assert.True(t, strings.HasPrefix(got["connector"].(string), "unavailable"))
		assert.Equal(t, "demo", got["dispatch"])
	})

	t.Run("restored wallet", func(t *testing.T) {
		home := testHome(t)
		writeConfig(t, home, func(c *config.Config) { c.Transfer.TokenID = "0.0.5678" })
		useConnector(t, connectortest.New(walletSession("0.0.4321")), nil)
		useStore(t, newMemStore())

		stdout, _, err := run(t, home, "status", "-o", "json")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, "connected", got["status"])
		assert.Equal(t, "0.0.4321", got["accountId"])
		assert.Equal(t, "ready", got["connector"])
		assert.Equal(t, "wallet", got["dispatch"])
	})

	t.Run("text", func(t *testing.T) {
		home := testHome(t)
		writeConfig(t, home, func(c *config.Config) {
			c.Transfer.BackendSigning = true
			c.Transfer.OperatorAccountID = "0.0.1001"
		})
		useConnector(t, nil, errBridgeDown)
		useStore(t, newMemStore())

		stdout, _, err := run(t, home, "status", "-o", "text")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Wallet:      disconnected")
		assert.Contains(t, stdout, "backend (operator 0.0.1001)")
		assert.Contains(t, stdout, "Token:       (not configured)")
	})
}

func TestSend_ValidationMakesNoCalls(t *testing.T) {
	home := testHome(t)
	writeConfig(t, home, func(c *config.Config) { c.Transfer.TokenID = "0.0.5678" })
	calls := useConnector(t, connectortest.New(), nil)
	useStore(t, newMemStore())

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"bad recipient", []string{"--to", "abc", "--amount", "1"}, bpayerr.ErrInvalidRecipient},
		{"bad amount", []string{"--to", "0.0.1234", "--amount=-3"}, bpayerr.ErrInvalidAmount},
		{"too precise", []string{"--to", "0.0.1234", "--amount", "1.1234567"}, bpayerr.ErrInvalidAmount},
		{"long memo", []string{"--to", "0.0.1234", "--amount", "1", "--memo", strings.Repeat("m", 101)}, bpayerr.ErrMemoTooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := run(t, home, append([]string{"send", "-o", "json"}, tc.args...)...)
			require.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, calls.Load())
}

func TestSend_Demo(t *testing.T) {
	home := testHome(t)
	calls := useConnector(t, connectortest.New(), nil)
	useStore(t, newMemStore())

	stdout, _, err := run(t, home, "send", "--to", "0.0.1234", "--amount", "1.5", "-o", "json")
	require.NoError(t, err)

	var result transfer.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.True(t, result.Success)
	assert.Equal(t, transfer.PathDemo, result.Path)
	assert.True(t, strings.HasPrefix(result.TransactionID, transfer.DemoPrefix))
	assert.Empty(t, result.ExplorerURL)
	assert.Zero(t, calls.Load())
}

func TestSend_BackendSigning(t *testing.T) {
	home := testHome(t)
	fl := &fakeLedger{receipt: &ledger.Receipt{TransactionID: "0.0.1001@1700000000.000000001", Status: "SUCCESS"}}
	ts := transferService(t, server.Options{Ledger: fl})
	writeConfig(t, home, func(c *config.Config) {
		c.Transfer.TokenID = "0.0.5678"
		c.Transfer.BackendSigning = true
		c.Transfer.OperatorAccountID = "0.0.1001"
		c.Transfer.BackendURL = ts.URL
	})
	calls := useConnector(t, connectortest.New(), nil)
	useStore(t, newMemStore())

	stdout, _, err := run(t, home, "send", "--to", "0.0.1234", "--amount", "2.5", "--memo", "invoice 42", "-o", "json")
	require.NoError(t, err)

	var result transfer.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.True(t, result.Success)
	assert.Equal(t, transfer.PathBackend, result.Path)
	assert.Equal(t, "0.0.1001", result.From)
	assert.Equal(t, "0.0.1001@1700000000.000000001", result.TransactionID)
	assert.Contains(t, result.ExplorerURL, "hashscan.io/testnet/transaction/")
	assert.Zero(t, calls.Load())

	executed := fl.calls()
	require.Len(t, executed, 1)
	assert.Equal(t, int64(2_500_000), executed[0].Units)
	assert.Equal(t, "0.0.1234", executed[0].To)
	assert.Equal(t, "invoice 42", executed[0].Memo)
}

func TestSend_WalletSignsAndRecords(t *testing.T) {
	home := testHome(t)
	book := records.NewBook()
	ts := transferService(t, server.Options{Records: book})
	writeConfig(t, home, func(c *config.Config) {
		c.Transfer.TokenID = "0.0.5678"
		c.Transfer.BackendURL = ts.URL
		c.Transfer.UserID = "alice"
	})
	fake := connectortest.New(walletSession("0.0.4321"))
	fake.SignFunc = func(signer string, _ []byte) (string, error) {
		assert.Equal(t, "0.0.4321", signer)
		return "0.0.4321@1700000000.000000002", nil
	}
	useConnector(t, fake, nil)
	useStore(t, newMemStore())

	stdout, _, err := run(t, home, "send", "--to", "0.0.1234", "--amount", "3", "-o", "json")
	require.NoError(t, err)

	var result transfer.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.True(t, result.Success)
	assert.Equal(t, transfer.PathWallet, result.Path)
	assert.Equal(t, "0.0.4321", result.From)
	assert.Len(t, fake.Signed(), 1)

	recorded, ok := book.Get("0.0.4321@1700000000.000000002")
	require.True(t, ok)
	assert.True(t, recorded.WalletSigned)
	assert.Equal(t, server.StatusRecorded, recorded.Status)
	assert.Equal(t, "alice", recorded.UserID)
}

func TestSend_FriendlyBackendError(t *testing.T) {
	home := testHome(t)
	ts := transferService(t, server.Options{})
	writeConfig(t, home, func(c *config.Config) {
		c.Transfer.TokenID = "0.0.5678"
		c.Transfer.BackendURL = ts.URL
		c.Transfer.DefaultSender = "0.0.1500"
	})
	useConnector(t, nil, errBridgeDown)
	useStore(t, newMemStore())

	stdout, _, err := run(t, home, "send", "--to", "0.0.1234", "--amount", "1", "-o", "json")
	require.ErrorIs(t, err, bpayerr.ErrBackend)

	var result transfer.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.False(t, result.Success)
	assert.Equal(t, transfer.PathFallback, result.Path)
	assert.Equal(t, "0.0.1500", result.From)
	assert.Equal(t, "operator account is not configured", result.Error)
}

func TestSend_Confirmation(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		home := testHome(t)
		useConnector(t, connectortest.New(), nil)
		useStore(t, newMemStore())
		asked := noPrompts(t, true, false)

		_, _, err := run(t, home, "send", "--to", "0.0.1234", "--amount", "1", "-o", "text")
		require.ErrorIs(t, err, bpayerr.ErrCancelled)
		assert.Equal(t, int32(1), asked.Load())
	})

	t.Run("accepted", func(t *testing.T) {
		home := testHome(t)
		useConnector(t, connectortest.New(), nil)
		useStore(t, newMemStore())
		asked := noPrompts(t, true, true)

		stdout, stderr, err := run(t, home, "send", "--to", "0.0.1234", "--amount", "1", "-o", "text")
		require.NoError(t, err)
		assert.Equal(t, int32(1), asked.Load())
		assert.Contains(t, stderr, "Demo mode")
		assert.Contains(t, stdout, "Sent 1 to 0.0.1234")
	})

	t.Run("yes flag skips prompt", func(t *testing.T) {
		home := testHome(t)
		useConnector(t, connectortest.New(), nil)
		useStore(t, newMemStore())
		asked := noPrompts(t, true, false)

		_, _, err := run(t, home, "send", "--to", "0.0.1234", "--amount", "1", "--yes", "-o", "text")
		require.NoError(t, err)
		assert.Zero(t, asked.Load())
	})
}

func TestHistory(t *testing.T) {
	home := testHome(t)
	book := records.NewBook()
	book.Add(backend.Transaction{
		TransactionID: "0.0.1001@1700000000.000000001",
		TokenID:       "0.0.5678",
		FromAccountID: "0.0.1001",
		ToAccountID:   "0.0.1234",
		Amount:        "2.5",
		UserID:        "alice",
		Status:        "SUCCESS",
		CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	book.Add(backend.Transaction{
		TransactionID: "0.0.4321@1700000000.000000002",
		ToAccountID:   "0.0.1234",
		Amount:        "1",
		UserID:        "bob",
		WalletSigned:  true,
		Status:        server.StatusRecorded,
		CreatedAt:     time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC),
	})
	ts := transferService(t, server.Options{Records: book})
	writeConfig(t, home, func(c *config.Config) {
		c.Transfer.BackendURL = ts.URL
		c.Transfer.UserID = "alice"
	})

	t.Run("configured user", func(t *testing.T) {
		stdout, _, err := run(t, home, "history", "-o", "json")
		require.NoError(t, err)

		var txs []backend.Transaction
		require.NoError(t, json.Unmarshal([]byte(stdout), &txs))
		require.Len(t, txs, 1)
		assert.Equal(t, "alice", txs[0].UserID)
	})

	t.Run("text table", func(t *testing.T) {
		stdout, _, err := run(t, home, "history", "--user", "bob", "-o", "text")
		require.NoError(t, err)
		assert.Contains(t, stdout, "TRANSACTION")
		assert.Contains(t, stdout, "0.0.4321@1700000000.000000002")
		assert.Contains(t, stdout, "RECORDED (wallet)")
	})

	t.Run("empty", func(t *testing.T) {
		stdout, _, err := run(t, home, "history", "--user", "carol", "-o", "text")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No transfers recorded.")
	})
}

func TestSessionCommands(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		home := testHome(t)
		useStore(t, session.Disabled{})

		stdout, _, err := run(t, home, "session", "list", "-o", "json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"available": false, "sessions": []}`, stdout)
	})

	t.Run("list and lock", func(t *testing.T) {
		home := testHome(t)
		s := walletSession("0.0.4321")
		s.Expiry = time.Now().Add(3 * time.Hour)
		store := newMemStore(s)
		useStore(t, store)

		stdout, _, err := run(t, home, "session", "list", "-o", "text")
		require.NoError(t, err)
		assert.Contains(t, stdout, "ACCOUNT")
		assert.Contains(t, stdout, "0.0.4321")
		assert.Contains(t, stdout, "HashPack")

		stdout, _, err = run(t, home, "session", "lock", "-o", "json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"ended": 1}`, stdout)
		assert.Zero(t, store.count())
	})
}

func TestConfigCommands(t *testing.T) {
	home := testHome(t)

	stdout, _, err := run(t, home, "config", "init", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, config.Path(home))

	_, _, err = run(t, home, "config", "init")
	require.ErrorIs(t, err, bpayerr.ErrGeneral)

	stdout, _, err = run(t, home, "config", "get", "network", "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "testnet\n", stdout)

	stdout, _, err = run(t, home, "config", "get", "network", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `"testnet"`, stdout)

	stdout, _, err = run(t, home, "config", "set", "transfer.token_decimals", "2", "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "Set transfer.token_decimals = 2\n", stdout)

	stdout, _, err = run(t, home, "config", "set", "transfer.user_id", "alice", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "success", "message": "Set transfer.user_id = alice"}`, stdout)

	stdout, _, err = run(t, home, "config", "get", "transfer.token_decimals", "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "2\n", stdout)

	_, _, err = run(t, home, "config", "set", "transfer.token_id", "usdc")
	require.ErrorIs(t, err, bpayerr.ErrInvalidTokenID)

	_, _, err = run(t, home, "config", "set", "output.color", "purple")
	require.ErrorIs(t, err, bpayerr.ErrInvalidInput)

	stdout, _, err = run(t, home, "config", "show", "-o", "json")
	require.NoError(t, err)
	var values map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &values))
	assert.Equal(t, "2", values["transfer.token_decimals"])
	assert.Equal(t, config.DefaultBridgeURL, values["connector.bridge_url"])

	stdout, _, err = run(t, home, "config", "show", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "  network: testnet")
	assert.Contains(t, stdout, "  transfer:\n")
	assert.Contains(t, stdout, "    token_decimals: 2")
}

func TestConfigGet_UnknownKeySuggests(t *testing.T) {
	home := testHome(t)

	_, _, err := run(t, home, "config", "get", "netwrok")
	require.ErrorIs(t, err, bpayerr.ErrUnknownConfigKey)

	var be *bpayerr.BpayError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, `did you mean "network"?`, be.Suggestion)
}

func TestSuggestConfigKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"network", "network"},
		{"netwrk", "network"},
		{"token_id", "transfer.token_id"},
		{"transfer.tokn_id", "transfer.token_id"},
		{"LOGGING.LEVEL", "logging.level"},
		{"completely.unrelated.thing", ""},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, suggestConfigKey(tc.in))
		})
	}
}

func TestServe_InvalidNetwork(t *testing.T) {
	home := testHome(t)

	_, _, err := run(t, home, "serve", "--network", "devnet")
	require.ErrorIs(t, err, bpayerr.ErrInvalidNetwork)
}

func TestVersion(t *testing.T) {
	home := testHome(t)
	SetBuildInfo(BuildInfo{Version: "v1.2.3", Commit: "abc1234"})
	t.Cleanup(func() { SetBuildInfo(BuildInfo{}) })

	stdout, _, err := run(t, home, "version", "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "bpay v1.2.3 (commit: abc1234, built: unknown)\n", stdout)
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"all fields populated", BuildInfo{Version: "v1.2.3", Commit: "abc1234", Date: "2024-01-15"}, "v1.2.3 (commit: abc1234, built: 2024-01-15)"},
		{"all fields empty", BuildInfo{}, "dev (commit: unknown, built: unknown)"},
		{"only version empty", BuildInfo{Commit: "def5678", Date: "2024-02-20"}, "dev (commit: def5678, built: 2024-02-20)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatVersion(tc.info))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{5*time.Minute + 30*time.Second, "5m30s"},
		{3 * time.Hour, "3h"},
		{26*time.Hour + 15*time.Minute, "26h15m"},
		{7 * 24 * time.Hour, "7d"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, formatDuration(tc.in))
	}

	now := time.Now()
	assert.Equal(t, "never", expiresIn(time.Time{}, now))
	assert.Equal(t, "expired", expiresIn(now.Add(-time.Minute), now))
}

func TestReadYes(t *testing.T) {
	assert.True(t, readYes(strings.NewReader("y\n")))
	assert.True(t, readYes(strings.NewReader(" YES \n")))
	assert.True(t, readYes(strings.NewReader("yes")))
	assert.False(t, readYes(strings.NewReader("n\n")))
	assert.False(t, readYes(strings.NewReader("")))
}

func TestGetCmdContext(t *testing.T) {
	cmd := &cobra.Command{}
	assert.Nil(t, GetCmdContext(cmd))

	cmd.SetContext(context.Background())
	assert.Nil(t, GetCmdContext(cmd))

	cc := NewCommandContext(config.Defaults(), config.NullLogger(), nil)
	SetCmdContext(cmd, cc)
	assert.Same(t, cc, GetCmdContext(cmd))
	assert.NotNil(t, cc.Factory)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, bpayerr.ExitCode(bpayerr.ErrInvalidAmount), ExitCode(bpayerr.ErrInvalidAmount))
	assert.NotZero(t, ExitCode(os.ErrNotExist))
}

func TestEnrichParentLong(t *testing.T) {
	parent := &cobra.Command{Use: "session", Long: "Manage sessions."}
	parent.AddCommand(
		&cobra.Command{Use: "list", Aliases: []string{"ls"}, Short: "List sessions", Run: func(*cobra.Command, []string) {}},
		&cobra.Command{Use: "lock", Short: "Forget sessions", Run: func(*cobra.Command, []string) {}},
		&cobra.Command{Use: "hidden", Hidden: true, Run: func(*cobra.Command, []string) {}},
	)
	root := &cobra.Command{Use: "bpay", Long: "root"}
	root.AddCommand(parent)

	walkCommands(root, enrichParentLong)

	assert.Equal(t, "root", root.Long)
	assert.Contains(t, parent.Long, "Manage sessions.\n\nSubcommands:\n")
	assert.Contains(t, parent.Long, "list (ls)")
	assert.Contains(t, parent.Long, "Forget sessions")
	assert.NotContains(t, parent.Long, "hidden")
}

func TestCompletion(t *testing.T) {
	home := testHome(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := run(t, home, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, stdout, "bpay")
		})
	}

	_, _, err := run(t, home, "completion", "tcsh")
	require.Error(t, err)
}
