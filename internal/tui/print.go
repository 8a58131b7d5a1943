// Package tui holds the terminal output helpers used by the console CLI.
//
// FILES:
//   - print.go:         colors and the [OK]/[INFO]/[WARN]/[ERROR] line helpers
//   - table.go:         fixed-column tables sized to the terminal
//   - prompt.go:        line and password prompts
//   - status.go:        account and quota rendering
//   - config_editor.go: interactive config setup
package tui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// =============================================================================
// COLORS
// =============================================================================

const (
	ColorGreen  = "\033[0;32m"
	ColorBlue   = "\033[0;34m"
	ColorYellow = "\033[1;33m"
	ColorCyan   = "\033[0;36m"
	ColorRed    = "\033[0;31m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
	ColorReset  = "\033[0m"
)

// Out is where the print helpers write. Tests swap it for a buffer.
var Out io.Writer = os.Stdout

// colorEnabled reports whether ANSI codes should be emitted.
// NO_COLOR disables them, as does writing anywhere but a terminal.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := Out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// paint wraps s in color when colors are enabled.
func paint(color, s string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + ColorReset
}

// =============================================================================
// LINE HELPERS
// =============================================================================

func PrintHeader(title string) {
	bar := "========================================"
	fmt.Fprintln(Out, paint(ColorBold+ColorCyan, bar))
	fmt.Fprintln(Out, paint(ColorBold+ColorCyan, "       "+title))
	fmt.Fprintln(Out, paint(ColorBold+ColorCyan, bar))
	fmt.Fprintln(Out)
}

func PrintSuccess(msg string) {
	fmt.Fprintf(Out, "%s %s\n", paint(ColorGreen, "[OK]"), msg)
}

func PrintInfo(msg string) {
	fmt.Fprintf(Out, "%s %s\n", paint(ColorBlue, "[INFO]"), msg)
}

func PrintWarn(msg string) {
	fmt.Fprintf(Out, "%s %s\n", paint(ColorYellow, "[WARN]"), msg)
}

// PrintError writes to stderr unless Out has been redirected.
func PrintError(msg string) {
	w := Out
	if w == os.Stdout {
		w = os.Stderr
	}
	fmt.Fprintf(w, "%s %s\n", paint(ColorRed, "[ERROR]"), msg)
}

func PrintStep(msg string) {
	fmt.Fprintf(Out, "%s %s\n", paint(ColorCyan, ">>>"), msg)
}

// PrintField prints an aligned "label: value" pair.
func PrintField(label, value string) {
	fmt.Fprintf(Out, "  %s %s\n", paint(ColorBold, fmt.Sprintf("%-14s", label+":")), value)
}
