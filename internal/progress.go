package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// ShowProgress runs fn behind a spinner when stderr is a terminal, otherwise
// it just logs the message and runs fn.
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	if !IsTerminal(os.Stderr) {
		LogInfo("%s", message)
		return fn()
	}
	return showProgressSimple(ctx, message, fn)
}

// showProgressSimple uses a simple text-based spinner
func showProgressSimple(ctx context.Context, message string, fn func() error) error {
	spinnerChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	done := make(chan error, 1)
	stop := make(chan struct{})
	spinnerDone := make(chan struct{})

	go func() {
		defer close(spinnerDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				char := spinnerChars[i%len(spinnerChars)]
				fmt.Fprintf(os.Stderr, "\r%s %s", progressStyle.Render(char), message)
				i++
			}
		}
	}()

	go func() {
		done <- fn()
	}()

	// fn is expected to honor ctx, so wait for it even after cancellation.
	err := <-done
	close(stop)
	<-spinnerDone
	if err != nil {
		fmt.Fprintf(os.Stderr, "\r%s %s\n", errorStyle.Render("✗"), message)
		return err
	}
	fmt.Fprintf(os.Stderr, "\r%s %s\n", successStyle.Render("✓"), message)
	return nil
}

// IsTerminal checks if the writer is a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// statusOut receives the Print* status lines. They go to stderr so stdout
// carries only the report.
var statusOut io.Writer = os.Stderr

// SetStatusOutput redirects status lines, mainly for tests
func SetStatusOutput(w io.Writer) {
	statusOut = w
}

func printStatus(symbol string, style lipgloss.Style, plainPrefix, message string) {
	if IsTerminal(statusOut) {
		fmt.Fprintf(statusOut, "%s %s\n", style.Render(symbol), message)
	} else {
		fmt.Fprintf(statusOut, "%s%s\n", plainPrefix, message)
	}
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	printStatus("✓", successStyle, "", message)
}

// PrintError prints an error message
func PrintError(message string) {
	printStatus("✗", errorStyle, "ERROR: ", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	printStatus("ℹ", progressStyle, "", message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	printStatus("⚠", warningStyle, "WARNING: ", message)
}
