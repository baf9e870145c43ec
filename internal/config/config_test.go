package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borderlesspay/bpay/internal/config"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "testnet", cfg.Network)
	assert.Equal(t, config.DefaultBridgeURL, cfg.Connector.BridgeURL)
	assert.Contains(t, cfg.Connector.Methods, "hedera_signAndExecuteTransaction")
	assert.Equal(t, []string{"chainChanged", "accountsChanged"}, cfg.Connector.Events)
	assert.Equal(t, "BorderlessPay", cfg.Connector.App.Name)
	assert.Equal(t, 60*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.False(t, cfg.Transfer.BackendSigning)
	assert.False(t, cfg.BackendSigningReady())
	assert.True(t, cfg.Security.SessionEnabled)
}

func TestDefaultsAreIndependent(t *testing.T) {
	t.Parallel()

	a := config.Defaults()
	a.Connector.Methods[0] = "mutated"
	b := config.Defaults()
	assert.NotEqual(t, "mutated", b.Connector.Methods[0])
}

func TestDurationsFallBackToDefaults(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Connection.TimeoutSeconds = 0
	cfg.Connection.PollIntervalMS = -1
	assert.Equal(t, config.DefaultConnectTimeout, cfg.ConnectTimeout())
	assert.Equal(t, config.DefaultPollInterval, cfg.PollInterval())

	cfg.Connection.TimeoutSeconds = 5
	cfg.Connection.PollIntervalMS = 50
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval())
}

func TestBackendSigningReady(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Transfer.BackendSigning = true
	assert.False(t, cfg.BackendSigningReady(), "operator id is required")

	cfg.Transfer.OperatorAccountID = "0.0.2"
	assert.True(t, cfg.BackendSigningReady())
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := config.Path(filepath.Join(dir, "nested"))

	cfg := config.Defaults()
	cfg.Home = dir
	cfg.Transfer.TokenID = "0.0.777"
	cfg.Server.OperatorKey = "secret"
	require.NoError(t, config.Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.777", loaded.Transfer.TokenID)
	assert.Equal(t, dir, loaded.GetHome())
	assert.Empty(t, loaded.Server.OperatorKey, "operator key is never persisted")
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: mainnet\ntransfer:\n  token_id: 0.0.9\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, "0.0.9", cfg.Transfer.TokenID)
	assert.Equal(t, config.DefaultBridgeURL, cfg.Connector.BridgeURL)
	assert.Equal(t, 6, cfg.Transfer.TokenDecimals)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: [unterminated"), 0o600))
	_, err = config.Load(path)
	require.Error(t, err)
}

func TestSessionDir(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Home = "/var/lib/bpay"
	assert.Equal(t, filepath.Join("/var/lib/bpay", "sessions"), cfg.SessionDir())
}
