package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/handleui/projgen/internal/sentry"
	"github.com/handleui/projgen/project"
	"github.com/handleui/projgen/rc"
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Render the project definition into files",
	Long: `Reads the project definition, validates every task and workflow, and
writes the generated files. Nothing is written when the definition is
invalid. Files produced by a previous run that are no longer generated are
removed.`,
	Args: cobra.NoArgs,
	RunE: runSynth,
}

func runSynth(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	printBranding(out, cmd.Name())

	p, err := loadProject()
	if err != nil {
		return err
	}

	sentry.AddBreadcrumb("synth", "synthesizing "+p.Name())
	if err := p.Synth(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n",
		brandingStyle.Render("✓"),
		contextStyle.Render(fmt.Sprintf("synthesized %s into %s", p.Name(), p.Outdir())))
	return nil
}

// loadProject applies the definition file to a new project using the
// resolved user settings. The project name defaults to the output
// directory's base name.
func loadProject() (*project.Project, error) {
	f, err := rc.Load(rcFile)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(outdir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	cfg := currentSettings()
	return f.NewProject(project.Options{
		Name:              filepath.Base(abs),
		Outdir:            outdir,
		Logger:            logger,
		MaxParallelWrites: cfg.MaxParallelWrites.Value,
		TaskRunner:        cfg.TaskRunner.Value,
	})
}
