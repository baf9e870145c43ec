package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/borderlesspay/bpay/internal/output"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

//nolint:gochecknoglobals // set once from main
var buildInfo BuildInfo

// SetBuildInfo records the build metadata shown by the version command.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

// FormatVersion renders info with placeholders for missing fields.
func FormatVersion(info BuildInfo) string {
	version, commit, date := info.Version, info.Commit, info.Date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bpay version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cc := GetCmdContext(cmd)
		w := cmd.OutOrStdout()
		if cc != nil && cc.Fmt.IsJSON() {
			return output.WriteJSON(w, struct {
				BuildInfo

				Go       string `json:"go"`
				Platform string `json:"platform"`
			}{buildInfo, runtime.Version(), runtime.GOOS + "/" + runtime.GOARCH})
		}
		out(w, "bpay %s\n", FormatVersion(buildInfo))
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	versionCmd.GroupID = "admin"
	rootCmd.AddCommand(versionCmd)
}
