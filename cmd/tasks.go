package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks [name] [-- args...]",
	Short: "List tasks or show the commands a task runs",
	Long: `Without arguments, lists every task with its description. With a task
name, prints the commands the task would run in order, expanding spawned
tasks. Arguments after the name are appended when the task receives args.
Nothing is executed.`,
	Args: cobra.ArbitraryArgs,
	RunE: runTasks,
}

func runTasks(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	p, err := loadProject()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		names := p.Tasks.Names()
		width := 0
		for _, name := range names {
			width = max(width, len(name))
		}
		for _, name := range names {
			t, _ := p.Tasks.Get(name)
			fmt.Fprintf(out, "%-*s  %s\n", width, name, contextStyle.Render(t.Description()))
		}
		return nil
	}

	lines, err := p.Tasks.CommandLines(args[0], args[1:]...)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}
