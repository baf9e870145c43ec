package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/output"
	"github.com/borderlesspay/bpay/internal/transfer"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	sendTo     string
	sendAmount string
	sendMemo   string
	sendYes    bool
)

// sendCmd submits a token transfer.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a token transfer",
	Long: `Send the configured token to a Hedera account.

The transfer is dispatched along the first path that applies:
  1. backend signing, when enabled and an operator account is configured
  2. demo, when no token id is configured (nothing is sent)
  3. the connected wallet, which signs and submits the transaction
  4. the backend, with the best known sender

The recipient must be an account id such as 0.0.1234. The amount may not
have more decimal places than the token supports. Memos are limited to
100 bytes.`,
	Example: `  bpay send --to 0.0.1234 --amount 25
  bpay send --to 0.0.1234 --amount 0.5 --memo "lunch" --yes
  bpay send --to 0.0.1234 --amount 10 -o json`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	sendCmd.GroupID = "transfer"
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient account id (shard.realm.num)")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount in token units")
	sendCmd.Flags().StringVar(&sendMemo, "memo", "", "transfer memo (max 100 bytes)")
	sendCmd.Flags().BoolVarP(&sendYes, "yes", "y", false, "skip the confirmation prompt")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
}

//nolint:gocognit // dispatch setup, confirmation and output in one place
func runSend(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	defer cc.Close()

	req := transfer.Request{Recipient: sendTo, Amount: sendAmount, Memo: sendMemo}
	if err := transfer.Validate(req, cc.Cfg.Transfer.TokenDecimals); err != nil {
		return err
	}

	if !sendYes && !cc.Fmt.IsJSON() && isInteractiveFn() {
		question := fmt.Sprintf("Send %s to %s?", sendAmount, sendTo)
		if !promptConfirmFn(cmd.ErrOrStderr(), question) {
			return bpayerr.WithMessage(bpayerr.ErrCancelled, "transfer cancelled")
		}
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if needsWallet(cc) {
		if err := cc.InitConnector(ctx); err != nil {
			cc.Log.Error("connector unavailable, falling back to the backend: %v", err)
		}
	}

	var provider transfer.BackendProvider
	client, err := cc.Backend()
	if err != nil {
		cc.Log.Error("backend client: %v", err)
	} else {
		provider = client
	}

	submitter, err := cc.Submitter(provider)
	if err != nil {
		return err
	}
	defer submitter.Close()

	result, err := submitter.Submit(ctx, req)
	if result == nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		if jerr := output.WriteJSON(w, result); jerr != nil {
			return jerr
		}
		return err
	}
	if err != nil {
		return err
	}

	if result.Path == transfer.PathDemo {
		cc.Msg.Warn("Demo mode: no token is configured, nothing was sent")
	}
	cc.Msg.Successf("Sent %s to %s", result.Amount, result.To)
	out(w, "  Transaction: %s\n", result.TransactionID)
	if result.From != "" {
		out(w, "  From:        %s\n", result.From)
	}
	out(w, "  Path:        %s\n", result.Path)
	if result.Memo != "" {
		out(w, "  Memo:        %s\n", result.Memo)
	}
	if result.ExplorerURL != "" {
		out(w, "  Explorer:    %s\n", result.ExplorerURL)
	}
	return nil
}

// needsWallet reports whether dispatch could reach the wallet path.
func needsWallet(cc *CommandContext) bool {
	return !cc.Cfg.BackendSigningReady() && cc.Cfg.Transfer.TokenID != ""
}
