package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/environment"
	"github.com/borderlesspay/bpay/internal/output"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	connectPNG     string
	connectCopy    bool
	connectTimeout time.Duration
)

// connectCmd pairs with the wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a HashPack wallet",
	Long: `Pair with a HashPack wallet through the wallet bridge.

On a desktop without the wallet extension a QR code is printed for the
HashPack app to scan. Elsewhere the wallet deep link is opened. The command
waits until the wallet approves, rejects, or the attempt times out. Press
Ctrl+C to cancel.

A session restored from an earlier run is reused without pairing again.`,
	Example: `  bpay connect
  bpay connect --png ~/pairing.png --copy
  bpay connect --extension`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

// disconnectCmd ends every wallet session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var disconnectCmd = &cobra.Command{
	Use:     "disconnect",
	Short:   "Disconnect the wallet",
	Long:    `End every wallet session and forget the sessions saved on this machine.`,
	Example: `  bpay disconnect`,
	Args:    cobra.NoArgs,
	RunE:    runDisconnect,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	connectCmd.GroupID = "wallet"
	disconnectCmd.GroupID = "wallet"
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)

	connectCmd.Flags().StringVar(&connectPNG, "png", "", "also write the pairing QR code to this PNG file")
	connectCmd.Flags().BoolVar(&connectCopy, "copy", false, "copy the pairing URI to the clipboard")
	connectCmd.Flags().DurationVar(&connectTimeout, "timeout", 0, "connect timeout (default from config)")
}

// connectReport is the connect command output.
type connectReport struct {
	AccountID   string                  `json:"accountId"`
	Network     string                  `json:"network"`
	Environment environment.Environment `json:"environment"`
}

// signalContext ends on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
}

// pairingWriter is where pairing codes go: stderr when stdout carries JSON.
func pairingWriter(cmd *cobra.Command, cc *CommandContext) io.Writer {
	if cc.Fmt.IsJSON() {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func runConnect(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	defer cc.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	if connectTimeout > 0 {
		cc.Cfg.Connection.TimeoutSeconds = int(connectTimeout.Round(time.Second) / time.Second)
	}

	if err := cc.InitConnector(ctx); err != nil {
		cc.Log.Error("connector unavailable: %v", err)
	}

	presenter := cc.PairingPresenter(pairingWriter(cmd, cc), connectPNG, connectCopy)
	ctrl := cc.Controller(presenter)

	account, err := ctrl.Connect(ctx, nil)
	if err != nil {
		if bpayerr.Is(err, bpayerr.ErrConnectorNotConfigured) {
			return bpayerr.WithSuggestion(err,
				fmt.Sprintf("start the wallet bridge at %s or set BPAY_BRIDGE_URL", cc.Cfg.Connector.BridgeURL))
		}
		return err
	}

	report := connectReport{
		AccountID:   account,
		Network:     cc.Cfg.Network,
		Environment: cc.Environment(),
	}
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(cmd.OutOrStdout(), report)
	}
	cc.Msg.Successf("Connected to %s", account)
	return nil
}

func runDisconnect(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	defer cc.Close()

	ctx, cancel := contextWithTimeout(cmd, initTimeout)
	defer cancel()

	if err := cc.InitConnector(ctx); err != nil {
		cc.Log.Error("connector unavailable: %v", err)
	}

	account := cc.State.Connected()
	err := cc.Controller(nil).Disconnect(ctx)

	if cc.Fmt.IsJSON() {
		if jerr := output.WriteJSON(cmd.OutOrStdout(), map[string]any{"disconnected": true, "accountId": account}); jerr != nil {
			return jerr
		}
		return err
	}
	if account != "" {
		cc.Msg.Successf("Disconnected %s", account)
	} else {
		cc.Msg.Info("No wallet was connected")
	}
	return err
}
