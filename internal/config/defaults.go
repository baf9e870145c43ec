package config

import "time"

// Connection defaults.
const (
	DefaultConnectTimeout = 60 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
)

// DefaultNetwork is the ledger network used when none is configured.
const DefaultNetwork = "testnet"

// DefaultBridgeURL is the local wallet bridge endpoint.
const DefaultBridgeURL = "ws://127.0.0.1:8787/bridge"

// DefaultMethods are the wallet RPC methods requested during pairing.
//
//nolint:gochecknoglobals // Configuration default, same pattern as DefaultBridgeURL
var DefaultMethods = []string{
	"hedera_getNodeAddresses",
	"hedera_executeTransaction",
	"hedera_signMessage",
	"hedera_signAndExecuteQuery",
	"hedera_signAndExecuteTransaction",
	"hedera_signTransaction",
}

// DefaultEvents are the wallet events subscribed to during pairing.
//
//nolint:gochecknoglobals // Configuration default, same pattern as DefaultBridgeURL
var DefaultEvents = []string{"chainChanged", "accountsChanged"}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.bpay",
		Network: DefaultNetwork,
		Connector: ConnectorConfig{
			BridgeURL: DefaultBridgeURL,
			Methods:   append([]string(nil), DefaultMethods...),
			Events:    append([]string(nil), DefaultEvents...),
			App: AppMetadata{
				Name:        "BorderlessPay",
				Description: "Multi-currency payments on Hedera",
				URL:         "https://borderlesspay.app",
				Icons:       []string{"https://borderlesspay.app/icon.png"},
			},
		},
		Connection: ConnectionConfig{
			TimeoutSeconds: int(DefaultConnectTimeout / time.Second),
			PollIntervalMS: int(DefaultPollInterval / time.Millisecond),
			DeepLinkScheme: "hashpack://wc",
			UniversalLink:  "https://link.hashpack.app/wc",
		},
		Transfer: TransferConfig{
			BackendURL:    "http://127.0.0.1:3001",
			TokenDecimals: 6,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:3001",
		},
		Security: SecurityConfig{
			SessionEnabled: true,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.bpay/bpay.log",
		},
	}
}
