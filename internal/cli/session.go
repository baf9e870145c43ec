package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/output"
	"github.com/borderlesspay/bpay/internal/session"
)

// sessionCmd is the parent command for saved wallet sessions.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved wallet sessions",
	Long: `Manage the wallet sessions saved on this machine.

After a successful connect the pairing is saved under the bpay home so the
next command can reuse it without scanning a QR code again. The key that
protects each session's resume secret lives in your operating system's
keychain:
- macOS: Keychain
- Linux: Secret Service (GNOME Keyring, KWallet)
- Windows: Credential Manager

If the keychain is unavailable, sessions are not saved and every run pairs
from scratch.`,
}

// sessionListCmd shows saved sessions.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved sessions and their expiry",
	Example: `  bpay session list`,
	Args:    cobra.NoArgs,
	RunE:    runSessionList,
}

// sessionLockCmd forgets every saved session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Forget every saved session",
	Long: `Delete every saved session and its keychain key.

The wallet keeps its side of the pairing until it expires; use
"bpay disconnect" to end it there too.`,
	Example: `  bpay session lock`,
	Args:    cobra.NoArgs,
	RunE:    runSessionLock,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	sessionCmd.GroupID = "wallet"
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionLockCmd)
}

func runSessionList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	store := cc.Store()
	w := cmd.OutOrStdout()

	if !store.Available() {
		if cc.Fmt.IsJSON() {
			outln(w, `{"available": false, "sessions": []}`)
		} else {
			outln(w, "Session saving is not available (keychain unavailable)")
		}
		return nil
	}

	infos, err := store.List()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if cc.Fmt.IsJSON() {
		if infos == nil {
			infos = []session.Info{}
		}
		return output.WriteJSON(w, struct {
			Available bool           `json:"available"`
			Sessions  []session.Info `json:"sessions"`
		}{Available: true, Sessions: infos})
	}

	if len(infos) == 0 {
		outln(w, "No saved sessions")
		return nil
	}

	now := time.Now()
	table := output.NewTable("ACCOUNT", "WALLET", "EXPIRES", "TOPIC")
	for _, info := range infos {
		table.AddRow(info.AccountID, info.Peer, expiresIn(info.Expiry, now), info.Topic)
	}
	return table.Render(w)
}

func runSessionLock(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	store := cc.Store()
	w := cmd.OutOrStdout()

	if !store.Available() {
		if cc.Fmt.IsJSON() {
			outln(w, `{"available": false, "ended": 0}`)
		} else {
			outln(w, "Session saving is not available (keychain unavailable)")
		}
		return nil
	}

	count := store.DeleteAll()

	if cc.Fmt.IsJSON() {
		out(w, `{"ended": %d}`+"\n", count)
	} else {
		out(w, "Forgot %d session(s)\n", count)
	}
	return nil
}

// expiresIn describes how long until expiry.
func expiresIn(expiry, now time.Time) string {
	if expiry.IsZero() {
		return "never"
	}
	d := expiry.Sub(now)
	if d <= 0 {
		return "expired"
	}
	return formatDuration(d)
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		minutes := int(d.Minutes())
		if seconds := int(d.Seconds()) % 60; seconds != 0 {
			return fmt.Sprintf("%dm%ds", minutes, seconds)
		}
		return fmt.Sprintf("%dm", minutes)
	case d < 48*time.Hour:
		hours := int(d.Hours())
		if minutes := int(d.Minutes()) % 60; minutes != 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	}
}
