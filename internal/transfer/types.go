package transfer

import "github.com/borderlesspay/bpay/internal/ledger"

// Dispatch paths, in the order they are considered.
const (
	PathBackend  = "backend"
	PathDemo     = "demo"
	PathWallet   = "wallet"
	PathFallback = "fallback"
)

// DemoPrefix marks synthesized transaction ids.
const DemoPrefix = "DEMO-"

// Settings are the configuration values dispatch depends on.
type Settings struct {
	Network           ledger.Network
	TokenID           string
	TokenDecimals     int
	BackendSigning    bool
	OperatorAccountID string
	UserID            string
	DefaultSender     string
}

// BackendSigningReady reports whether transfers go to the backend signer.
func (s Settings) BackendSigningReady() bool {
	return s.BackendSigning && s.OperatorAccountID != ""
}

// Request is a transfer to submit.
type Request struct {
	Recipient string
	Amount    string
	Memo      string
}

// Result is the outcome of a submission.
type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId,omitempty"`
	Error         string `json:"error,omitempty"`
	Path          string `json:"path"`
	From          string `json:"from,omitempty"`
	To            string `json:"to"`
	Amount        string `json:"amount"`
	TokenID       string `json:"tokenId,omitempty"`
	Memo          string `json:"memo,omitempty"`
	ExplorerURL   string `json:"explorerUrl,omitempty"`
}
