package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sessionscribe/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "raw_dirs:       %s\n", strings.Join(cfg.Paths.RawDirs, ", "))
			fmt.Fprintf(out, "sessions_dir:   %s\n", cfg.Paths.SessionsDir)
			fmt.Fprintf(out, "queue_dir:      %s\n", cfg.Paths.QueueDir)
			fmt.Fprintf(out, "log_dir:        %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "watch_mode:     %s\n", cfg.Watcher.Mode)
			fmt.Fprintf(out, "poll_interval:  %ds\n", cfg.Watcher.PollInterval)
			fmt.Fprintf(out, "auto_run:       %t (batch limit %d)\n", cfg.Watcher.AutoRun, cfg.Watcher.AutoRunBatchLimit)
			fmt.Fprintf(out, "extensions:     %s\n", strings.Join(cfg.Watcher.Extensions, ", "))
			fmt.Fprintf(out, "preset:         %s\n", cfg.Worker.Preset)
			fmt.Fprintf(out, "analyze:        %s\n", cfg.Worker.AnalyzeBackend)
			fmt.Fprintf(out, "log_level:      %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to point raw_dirs at your capture directories before running sessionscribe.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
