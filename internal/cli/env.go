package cli

import (
	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/environment"
	"github.com/borderlesspay/bpay/internal/output"
)

// envCmd reports the detected environment.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show how the wallet environment is classified",
	Long: `Classify the host the connect flow runs in.

The classification decides what happens with a pairing code: inside the
wallet app nothing is shown, a desktop browser without the extension gets a
QR code, and everything else opens the wallet deep link.

Signals come from --user-agent, --extension, --in-app and --page-url or the
matching BPAY_* environment variables.`,
	Example: `  bpay env
  bpay env --user-agent "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)"
  bpay env --extension -o json`,
	Args: cobra.NoArgs,
	RunE: runEnv,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	envCmd.GroupID = "wallet"
	rootCmd.AddCommand(envCmd)
}

// envReport is the env command output.
type envReport struct {
	Environment      environment.Environment `json:"environment"`
	ShowsPairingCode bool                    `json:"showsPairingCode"`
	Signals          environment.Signals     `json:"signals"`
}

func runEnv(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	env := cc.Environment()
	report := envReport{
		Environment:      env,
		ShowsPairingCode: env.ShowsPairingCode(),
		Signals:          cc.Signals(),
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.WriteJSON(w, report)
	}

	out(w, "Environment: %s\n", env)
	switch {
	case report.ShowsPairingCode:
		outln(w, "Pairing:     QR code in the terminal")
	case env == environment.InApp:
		outln(w, "Pairing:     handled by the wallet app")
	default:
		outln(w, "Pairing:     wallet deep link")
	}
	if ua := report.Signals.UserAgent; ua != "" {
		out(w, "User agent:  %s\n", ua)
	}
	return nil
}
