package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashgraph/hedera-sdk-go/v2"

	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// MaxMemoBytes is the ledger's transaction memo limit.
const MaxMemoBytes = 100

// defaultNode is the consensus node a wallet-signed transaction is frozen for.
//
//nolint:gochecknoglobals // fixed node id present on every public network
var defaultNode = hedera.AccountID{Account: 3}

// TokenTransfer describes a single fungible token movement.
type TokenTransfer struct {
	TokenID string
	From    string
	To      string
	Units   int64
	Memo    string
}

// Validate checks ids, amount and memo.
func (t TokenTransfer) Validate() error {
	if _, err := ParseTokenID(t.TokenID); err != nil {
		return err
	}
	if _, err := ParseAccountID(t.From); err != nil {
		return err
	}
	if _, err := ParseAccountID(t.To); err != nil {
		return bpayerr.WithCause(bpayerr.ErrInvalidRecipient, err)
	}
	if t.Units <= 0 {
		return bpayerr.ErrInvalidAmount
	}
	if len(t.Memo) > MaxMemoBytes {
		return bpayerr.ErrMemoTooLong
	}
	return nil
}

// BuildTransfer creates an unfrozen transfer transaction that debits From
// and credits To by the same amount.
func BuildTransfer(t TokenTransfer) (*hedera.TransferTransaction, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	tokenID, _ := ParseTokenID(t.TokenID)
	from, _ := ParseAccountID(t.From)
	to, _ := ParseAccountID(t.To)

	tx := hedera.NewTransferTransaction()
	tx.AddTokenTransfer(tokenID, from, -t.Units)
	tx.AddTokenTransfer(tokenID, to, t.Units)
	if t.Memo != "" {
		tx.SetTransactionMemo(t.Memo)
	}
	return tx, nil
}

// FrozenTransferBytes builds the transfer, freezes it for the sender as
// payer and returns the serialized bytes a wallet signs.
func FrozenTransferBytes(t TokenTransfer) ([]byte, error) {
	tx, err := BuildTransfer(t)
	if err != nil {
		return nil, err
	}

	from, _ := ParseAccountID(t.From)
	tx.SetTransactionID(hedera.TransactionIDGenerate(from))
	tx.SetNodeAccountIDs([]hedera.AccountID{defaultNode})

	frozen, err := tx.Freeze()
	if err != nil {
		return nil, fmt.Errorf("freezing transfer: %w", err)
	}
	data, err := frozen.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializing transfer: %w", err)
	}
	return data, nil
}

// Receipt summarizes an executed transaction.
type Receipt struct {
	TransactionID string
	Status        string
}

// Operator executes transfers signed by a custodial operator key.
//
// The SDK client fetches the network address book while it is built, which
// blocks on the network. NewOperator therefore builds it in the background
// and Transfer waits for it under the caller's context.
type Operator struct {
	network Network
	account hedera.AccountID
	ready   chan struct{}

	mu     sync.Mutex
	client *hedera.Client
	closed bool
}

// NewOperator creates an operator for the network. It returns without
// touching the network.
func NewOperator(network Network, accountID, privateKey string) (*Operator, error) {
	return newOperator(network, accountID, privateKey, Network.Client)
}

func newOperator(network Network, accountID, privateKey string, dial func(Network) *hedera.Client) (*Operator, error) {
	account, err := ParseAccountID(accountID)
	if err != nil {
		return nil, err
	}
	key, err := hedera.PrivateKeyFromString(privateKey)
	if err != nil {
		return nil, bpayerr.WithCause(
			bpayerr.WithMessage(bpayerr.ErrConfigInvalid, "operator key could not be parsed"), err)
	}

	o := &Operator{network: network, account: account, ready: make(chan struct{})}
	go o.connect(dial, key)
	return o, nil
}

func (o *Operator) connect(dial func(Network) *hedera.Client, key hedera.PrivateKey) {
	client := dial(o.network)
	if client != nil {
		client.SetOperator(o.account, key)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	defer close(o.ready)
	if o.closed {
		if client != nil {
			_ = client.Close()
		}
		return
	}
	o.client = client
}

// AccountID returns the operator account.
func (o *Operator) AccountID() string {
	return o.account.String()
}

// Network returns the operator's network.
func (o *Operator) Network() Network {
	return o.network
}

// awaitClient waits for the background client or ctx.
func (o *Operator) awaitClient(ctx context.Context) (*hedera.Client, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-o.ready:
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client == nil {
		return nil, bpayerr.WithMessage(bpayerr.ErrNetworkError, "ledger client is not available")
	}
	return o.client, nil
}

// Transfer executes a token transfer and waits for its receipt. The SDK call
// is not cancellable; ctx only bounds how long the caller waits.
func (o *Operator) Transfer(ctx context.Context, t TokenTransfer) (*Receipt, error) {
	tx, err := BuildTransfer(t)
	if err != nil {
		return nil, err
	}
	client, err := o.awaitClient(ctx)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		receipt *Receipt
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		resp, execErr := tx.Execute(client)
		if execErr != nil {
			done <- outcome{err: execErr}
			return
		}
		receipt, receiptErr := resp.GetReceipt(client)
		if receiptErr != nil {
			done <- outcome{err: receiptErr}
			return
		}
		done <- outcome{receipt: &Receipt{
			TransactionID: resp.TransactionID.String(),
			Status:        receipt.Status.String(),
		}}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.receipt, out.err
	}
}

// Close releases the SDK client. A client still being built is released
// once it is ready.
func (o *Operator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if o.client == nil {
		return nil
	}
	client := o.client
	o.client = nil
	return client.Close()
}
