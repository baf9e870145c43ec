package cli

import (
	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/environment"
	"github.com/borderlesspay/bpay/internal/output"
	"github.com/borderlesspay/bpay/internal/wallet"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// statusCmd shows the wallet connection state.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the wallet connection and transfer settings",
	Long: `Show whether a wallet is connected and how transfers would be dispatched.

The connector is started to restore saved sessions. When the wallet bridge
is unreachable the status is reported as disconnected along with the reason.`,
	Example: `  bpay status
  bpay status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	statusCmd.GroupID = "wallet"
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the status command output.
type statusReport struct {
	wallet.Snapshot

	Connector   string                  `json:"connector"`
	Network     string                  `json:"network"`
	Environment environment.Environment `json:"environment"`
	Dispatch    string                  `json:"dispatch"`
	TokenID     string                  `json:"tokenId,omitempty"`
	BackendURL  string                  `json:"backendUrl"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	defer cc.Close()

	ctx, cancel := contextWithTimeout(cmd, initTimeout)
	defer cancel()

	connectorState := "ready"
	if err := cc.InitConnector(ctx); err != nil {
		cc.Log.Error("connector unavailable: %v", err)
		connectorState = "unavailable: " + bpayerr.Message(err)
	}

	report := statusReport{
		Snapshot:    cc.State.Snapshot(),
		Connector:   connectorState,
		Network:     cc.Cfg.Network,
		Environment: cc.Environment(),
		Dispatch:    dispatchPath(cc),
		TokenID:     cc.Cfg.Transfer.TokenID,
		BackendURL:  cc.Cfg.Transfer.BackendURL,
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, report)
	}

	status := string(report.Status)
	if report.AccountID != "" {
		status += " (" + report.AccountID + ")"
	}
	out(w, "Wallet:      %s\n", status)
	if report.LastError != "" {
		out(w, "Last error:  %s\n", report.LastError)
	}
	out(w, "Connector:   %s\n", report.Connector)
	out(w, "Network:     %s\n", report.Network)
	out(w, "Environment: %s\n", report.Environment)
	token := report.TokenID
	if token == "" {
		token = "(not configured)"
	}
	out(w, "Token:       %s\n", token)
	out(w, "Transfers:   %s\n", report.Dispatch)
	out(w, "Backend:     %s\n", report.BackendURL)
	return nil
}

// dispatchPath names the path a transfer would take right now.
func dispatchPath(cc *CommandContext) string {
	t := cc.Cfg.Transfer
	switch {
	case cc.Cfg.BackendSigningReady():
		return "backend (operator " + t.OperatorAccountID + ")"
	case t.TokenID == "":
		return "demo"
	case cc.Provider.Get() != nil && cc.State.Connected() != "":
		return "wallet"
	default:
		return "backend"
	}
}
