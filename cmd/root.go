package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/handleui/projgen/internal/config"
	"github.com/handleui/projgen/internal/logging"
	"github.com/handleui/projgen/internal/signal"
	"github.com/handleui/projgen/rc"
)

// Version is set at build time via ldflags.
var Version = "dev"

const (
	brandingColor = "42"  // Green
	commandColor  = "15"  // White
	contextColor  = "241" // Gray
	warnColor     = "214" // Orange
	errorColor    = "196" // Red
)

var (
	rcFile string
	outdir string
)

var (
	// settings and logger are resolved in PersistentPreRunE.
	settings *config.Config
	logger   = logging.NewNop()
)

var (
	brandingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(brandingColor))
	commandStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(commandColor))
	contextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(contextColor))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(warnColor))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor))
)

var rootCmd = &cobra.Command{
	Use:   "projgen",
	Short: "Synthesize project configuration files from a single definition",
	Long: `projgen renders a project definition (.projgen.yaml) into the files a
repository needs: task definitions, GitHub Actions workflows, .gitignore and
package.json. Generated files are overwritten on every run; edit the
definition instead.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n",
				warnStyle.Render("⚠"),
				contextStyle.Render(fmt.Sprintf("Config error: %v (using defaults)", err)))
			cfg = defaultSettings()
		}
		for _, w := range cfg.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", warnStyle.Render("⚠"), contextStyle.Render(w))
		}
		settings = cfg

		level, _ := logging.ParseLevel(cfg.LogLevel.Value)
		logger = logging.New(level)
		return nil
	},
}

// Execute runs the root command with signal handling.
func Execute() error {
	ctx, stop := signal.SetupSignalHandler(context.Background())
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && ctx.Err() != nil {
		signal.PrintCancellationMessage("projgen")
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().StringVarP(&rcFile, "rcfile", "f", rc.DefaultFile, "project definition file")
	rootCmd.PersistentFlags().StringVarP(&outdir, "outdir", "o", ".", "directory to write generated files to")
}

func defaultSettings() *config.Config {
	return &config.Config{
		LogLevel:          config.Value[string]{Value: config.DefaultLogLevel},
		MaxParallelWrites: config.Value[int]{Value: config.DefaultMaxParallelWrites},
		TaskRunner:        config.Value[string]{Value: config.DefaultTaskRunner},
	}
}

// printBranding writes the version header when w is an interactive terminal.
func printBranding(w io.Writer, command string) {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n\n",
		brandingStyle.Render(fmt.Sprintf("projgen v%s", Version)),
		commandStyle.Render(command))
}

func currentSettings() *config.Config {
	if settings == nil {
		return defaultSettings()
	}
	return settings
}
