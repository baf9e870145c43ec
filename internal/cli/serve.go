package cli

import (
	"errors"
	"net"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/config"
	"github.com/borderlesspay/bpay/internal/ledger"
	"github.com/borderlesspay/bpay/internal/records"
	"github.com/borderlesspay/bpay/internal/server"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// recordsFileName is the transfer history file under the home directory.
const recordsFileName = "transfers.json"

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	serveListen  string
	serveRecords string
)

// serveCmd runs the backend transfer service.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backend transfer service",
	Long: `Run the BorderlessPay transfer API.

Routes:
  POST /api/hedera/transfer       execute with the operator key, or record a
                                  wallet-signed transfer
  GET  /api/hedera/transactions   recorded transfers, newest first
  GET  /api/environment           environment classification of the caller
  GET  /api/metrics               service counters
  GET  /healthz                   liveness

The operator account comes from transfer.operator_account_id (or
BPAY_OPERATOR_ID) and the key from BPAY_OPERATOR_KEY. Without both, only
wallet-signed transfers are accepted. Transfers are kept in a JSON file
under the bpay home.`,
	Example: `  BPAY_OPERATOR_ID=0.0.1001 BPAY_OPERATOR_KEY=302e... bpay serve
  bpay serve --listen :8080 --records /var/lib/bpay/transfers.json`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	serveCmd.GroupID = "admin"
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveRecords, "records", "", "transfer records file (default: <home>/transfers.json)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	network, err := cc.Network()
	if err != nil {
		return err
	}

	opts := server.Options{
		TokenDecimals:  cc.Cfg.Transfer.TokenDecimals,
		DefaultTokenID: cc.Cfg.Transfer.TokenID,
		Metrics:        cc.Metrics,
		Logger:         cc.Log,
	}

	operatorID := cc.Cfg.Transfer.OperatorAccountID
	if operatorID != "" && cc.Cfg.Server.OperatorKey != "" {
		op, err := ledger.NewOperator(network, operatorID, cc.Cfg.Server.OperatorKey)
		if err != nil {
			return err
		}
		defer func() { _ = op.Close() }()
		opts.Ledger = op
		cc.Log.Debug("operator %s configured on %s", op.AccountID(), network)
	} else {
		cc.Msg.Warn("No operator key configured: only wallet-signed transfers will be accepted")
	}

	path := serveRecords
	if path == "" {
		path = filepath.Join(config.ExpandHome(cc.Cfg.Home), recordsFileName)
	}
	storage := records.NewFileStorage(config.ExpandHome(path))
	book, err := storage.Load()
	switch {
	case errors.Is(err, records.ErrCorruptRecords):
		cc.Msg.Warnf("Starting with empty history: %v", err)
	case err != nil:
		return bpayerr.Wrap(err, "loading transfer records from %s", path)
	}
	opts.Records = book
	opts.Storage = storage

	addr := serveListen
	if addr == "" {
		addr = cc.Cfg.Server.Listen
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	srv := server.New(opts)
	err = srv.ListenAndServe(ctx, addr, func(a net.Addr) {
		cc.Msg.Successf("Listening on http://%s (%s, %d transfer(s) on record)", a, network, book.Size())
	})
	if err != nil {
		return err
	}
	cc.Msg.Info("Server stopped")
	return nil
}
