package signal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
)

// SetupSignalHandler creates a context that cancels on SIGINT/SIGTERM so an
// interrupted synthesis stops before starting further writes.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

var cancelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

// PrintCancellationMessage prints a cancellation notice to stderr.
func PrintCancellationMessage(commandName string) {
	writeCancellationMessage(os.Stderr, commandName)
}

func writeCancellationMessage(w io.Writer, commandName string) {
	_, _ = fmt.Fprintf(w, "\n%s\n", cancelStyle.Render(commandName+" cancelled"))
}
