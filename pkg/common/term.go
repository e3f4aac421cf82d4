package common

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// CheckIfColorable reports whether w is a terminal that accepts ANSI colors.
func CheckIfColorable(w io.Writer) bool {
	if !CheckIfTerminal(w) {
		return false
	}

	// https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	// https://bixense.com/clicolors/
	if f, ok := os.LookupEnv("CLICOLOR_FORCE"); ok && f != "0" {
		return true
	}
	if c, ok := os.LookupEnv("CLICOLOR"); ok {
		return c != "0"
	}

	switch os.Getenv("TERM") {
	case "dumb", "unknown", "linux":
		return false
	}
	return true
}

// CheckIfTerminal reports whether w is an interactive terminal.
func CheckIfTerminal(w io.Writer) bool {
	if v, ok := w.(*os.File); ok {
		return isatty.IsTerminal(v.Fd()) || isatty.IsCygwinTerminal(v.Fd())
	}
	return false
}
