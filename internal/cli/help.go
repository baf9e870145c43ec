package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong lists a parent's subcommands at the end of its Long
// help. Nested parents (config, session) are the only ones affected; the
// root already prints grouped commands.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasSubCommands() || !cmd.HasParent() {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString("\n\nSubcommands:\n")
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		name := sub.Name()
		if len(sub.Aliases) > 0 {
			name += " (" + strings.Join(sub.Aliases, ", ") + ")"
		}
		fmt.Fprintf(&sb, "  %-20s %s\n", name, sub.Short)
	}
	cmd.Long = sb.String()
}
