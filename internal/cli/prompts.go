package cli

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompt seams, replaced in tests.
//
//nolint:gochecknoglobals // swapped in tests
var (
	promptConfirmFn = promptConfirmation
	isInteractiveFn = isInteractive
)

// isInteractive reports whether stdin is a terminal.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // file descriptors fit in int
}

// promptConfirmation asks a yes/no question on stderr and reads the answer
// from stdin. Anything other than y or yes is a no.
func promptConfirmation(w io.Writer, question string) bool {
	out(w, "%s [y/N]: ", question)
	return readYes(os.Stdin)
}

func readYes(r io.Reader) bool {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes"
}
