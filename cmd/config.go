package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/handleui/projgen/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage projgen user settings",
	Long: `View and manage the user-level projgen settings stored in
~/.projgen/config.json (PROJGEN_HOME overrides the directory).

Settings:
  log_level            debug, info, warn or error
  max_parallel_writes  concurrent file writes during synth (1-64)
  task_runner          command prefix for package.json scripts

Environment variables PROJGEN_LOG_LEVEL, PROJGEN_MAX_PARALLEL_WRITES and
PROJGEN_TASK_RUNNER take precedence over the file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display resolved settings and where they come from",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", brandingStyle.Render("✓"), args[0], args[1])
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a setting, restoring its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Unset(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s unset\n", brandingStyle.Render("✓"), args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	rows := []struct {
		key    string
		value  string
		source config.ValueSource
	}{
		{config.KeyLogLevel, cfg.LogLevel.Value, cfg.LogLevel.Source},
		{config.KeyMaxParallelWrites, strconv.Itoa(cfg.MaxParallelWrites.Value), cfg.MaxParallelWrites.Source},
		{config.KeyTaskRunner, cfg.TaskRunner.Value, cfg.TaskRunner.Source},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%-20s %-16s %s\n", r.key, commandStyle.Render(r.value), contextStyle.Render("("+r.source.String()+")"))
	}
	return nil
}
