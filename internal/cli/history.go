package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/backend"
	"github.com/borderlesspay/bpay/internal/output"
)

// historyTimeout bounds the history request.
const historyTimeout = 30 * time.Second

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	historyUser  string
	historyLimit int
)

// historyCmd lists recorded transfers.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded transfers",
	Long: `List the transfers recorded by the BorderlessPay backend, newest first.

Without --user the configured user id is used.`,
	Example: `  bpay history
  bpay history --user alice --limit 5
  bpay history -o json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	historyCmd.GroupID = "transfer"
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyUser, "user", "", "user id to list (default from config)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum transfers to show (0 for all)")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	client, err := cc.Backend()
	if err != nil {
		return err
	}

	user := historyUser
	if user == "" {
		user = cc.Cfg.Transfer.UserID
	}

	ctx, cancel := contextWithTimeout(cmd, historyTimeout)
	defer cancel()

	txs, err := client.Transactions(ctx, user)
	if err != nil {
		return err
	}
	if historyLimit > 0 && len(txs) > historyLimit {
		txs = txs[:historyLimit]
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		if txs == nil {
			txs = []backend.Transaction{}
		}
		return output.WriteJSON(w, txs)
	}

	if len(txs) == 0 {
		outln(w, "No transfers recorded.")
		return nil
	}

	table := output.NewTable("WHEN", "TRANSACTION", "FROM", "TO", "AMOUNT", "STATUS")
	table.AlignRight(4)
	for _, tx := range txs {
		status := tx.Status
		if tx.WalletSigned {
			status += " (wallet)"
		}
		table.AddRow(
			tx.CreatedAt.Local().Format(time.DateTime),
			tx.TransactionID,
			tx.FromAccountID,
			tx.ToAccountID,
			tx.Amount,
			status,
		)
	}
	return table.Render(w)
}
