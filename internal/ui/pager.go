package ui

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls pager behavior.
type PagerOptions struct {
	// NoPager disables the pager for this command.
	NoPager bool
}

// shouldUsePager reports whether output should be piped through a pager.
// Returns false when disabled by option or LOOM_NO_PAGER, or when stdout
// is not a terminal.
func shouldUsePager(opts PagerOptions) bool {
	if opts.NoPager {
		return false
	}
	if os.Getenv("LOOM_NO_PAGER") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// pagerCommand returns the pager to use: LOOM_PAGER, then PAGER, then less.
func pagerCommand() string {
	if pager := os.Getenv("LOOM_PAGER"); pager != "" {
		return pager
	}
	if pager := os.Getenv("PAGER"); pager != "" {
		return pager
	}
	return "less"
}

// terminalHeight returns the terminal height in lines, 0 when unknown.
func terminalHeight() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	_, height, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return height
}

// Display writes content to stdout, through a pager when the content is
// taller than the terminal.
func Display(content string, opts PagerOptions) error {
	if !shouldUsePager(opts) {
		fmt.Print(content)
		return nil
	}

	height := terminalHeight()
	lines := strings.Count(content, "\n") + 1
	if height == 0 || lines <= height {
		fmt.Print(content)
		return nil
	}

	name := pagerCommand()
	args := []string{}
	if name == "less" {
		// -F quits if content fits one screen, -R passes color codes through.
		args = append(args, "-FR")
	}
	cmd := exec.Command(name, args...) // #nosec G204 - pager from user environment
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		// Pager failed; fall back to plain output.
		fmt.Print(content)
	}
	return nil
}
