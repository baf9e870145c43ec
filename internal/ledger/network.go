package ledger

import (
	"fmt"
	"strings"

	"github.com/hashgraph/hedera-sdk-go/v2"

	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// Network is a Hedera network name.
type Network string

// Supported networks.
const (
	Testnet    Network = "testnet"
	Mainnet    Network = "mainnet"
	Previewnet Network = "previewnet"
)

// chainNamespace is the CAIP-2 namespace used in session accounts.
const chainNamespace = "hedera"

// Explorer and mirror node endpoints.
const (
	explorerBase  = "https://hashscan.io"
	mirrorPattern = "https://%s.mirrornode.hedera.com/api/v1/transactions/%s"
)

// ParseNetwork validates a network name. Empty means testnet.
func ParseNetwork(s string) (Network, error) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case "", Testnet:
		return Testnet, nil
	case Mainnet:
		return Mainnet, nil
	case Previewnet:
		return Previewnet, nil
	default:
		return "", bpayerr.WithDetails(bpayerr.ErrInvalidNetwork, map[string]string{"network": s})
	}
}

// String returns the network name.
func (n Network) String() string {
	return string(n)
}

// ChainID returns the CAIP-2 chain id, e.g. "hedera:testnet".
func (n Network) ChainID() string {
	return chainNamespace + ":" + string(n)
}

// Client returns an SDK client for the network. The caller must Close it.
func (n Network) Client() *hedera.Client {
	switch n {
	case Mainnet:
		return hedera.ClientForMainnet()
	case Previewnet:
		return hedera.ClientForPreviewnet()
	default:
		return hedera.ClientForTestnet()
	}
}

// ExplorerTxURL returns the HashScan page for a transaction.
func (n Network) ExplorerTxURL(txID string) string {
	return fmt.Sprintf("%s/%s/transaction/%s", explorerBase, n, txID)
}

// MirrorTxURL returns the mirror node REST resource for a transaction.
func (n Network) MirrorTxURL(txID string) string {
	return fmt.Sprintf(mirrorPattern, n, MirrorTransactionID(txID))
}

// MirrorTransactionID converts "0.0.123@1700000000.000000001" into the
// mirror node form "0.0.123-1700000000-000000001". Other ids are returned
// unchanged.
func MirrorTransactionID(txID string) string {
	payer, validStart, ok := strings.Cut(txID, "@")
	if !ok {
		return txID
	}
	return payer + "-" + strings.Replace(validStart, ".", "-", 1)
}
