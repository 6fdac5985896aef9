package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/segdex/configs"
	"github.com/Aman-CERP/segdex/internal/config"
	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/output"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Show and create configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/segdex/config.yaml)
  3. Project config (.segdex.yaml, or the file given with --config)
  4. Environment variables (SEGDEX_*)
  5. The --index flag`,
		Example: `  segdex config init
  segdex config show --json
  segdex config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(root))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force, project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user configuration file",
		Long: `Write the user configuration file with default values.

With --force an existing file is backed up, then rewritten with its
settings kept and any new options added with their defaults.

With --project a commented .segdex.yaml is written to the working
directory instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if project {
				return runConfigInitProject(cmd, force)
			}
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Upgrade an existing configuration (keeps a backup)")
	cmd.Flags().BoolVar(&project, "project", false, "Write "+config.ProjectFileName+" in the working directory")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	if !config.UserConfigExists() {
		if err := config.NewConfig().WriteYAML(configPath); err != nil {
			return err
		}
		out.Success("Created user configuration")
		out.Statusf("📁", "Location: %s", configPath)
		return nil
	}

	if !force {
		out.Warning("User configuration already exists")
		out.Statusf("📁", "Location: %s", configPath)
		out.Status("💡", "Use --force to upgrade with new defaults (preserves your settings)")
		return nil
	}

	existing, err := config.LoadUserConfig()
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("config file disappeared during upgrade")
	}

	backupPath, err := config.BackupFile(configPath)
	if err != nil {
		return err
	}
	if err := existing.WriteYAML(configPath); err != nil {
		return err
	}

	out.Success("Configuration upgraded")
	out.Statusf("📁", "Location: %s", configPath)
	out.Statusf("💾", "Backup: %s", backupPath)
	return nil
}

func runConfigInitProject(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	path := config.ProjectFileName

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warningf("%s already exists", path)
			out.Status("💡", "Use --force to replace it (keeps a backup)")
			return nil
		}
		backupPath, err := config.BackupFile(path)
		if err != nil {
			return err
		}
		out.Statusf("💾", "Backup: %s", backupPath)
	}

	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return sderrors.ConfigError("failed to write project config", err).WithDetail("path", path)
	}
	out.Successf("Created %s", path)
	return nil
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			var cfg *config.Config
			switch source {
			case "merged":
				cfg = root.cfg
			case "defaults":
				cfg = config.NewConfig()
			case "user":
				user, err := config.LoadUserConfig()
				if err != nil {
					return err
				}
				if user == nil {
					out.Warning("No user configuration file found")
					out.Statusf("📁", "Expected at: %s", config.GetUserConfigPath())
					out.Status("💡", "Run 'segdex config init' to create one")
					return nil
				}
				cfg = user
			default:
				return fmt.Errorf("invalid source: %s (use: merged, user, defaults)", source)
			}

			if jsonOutput {
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return nil
		},
	}
}
