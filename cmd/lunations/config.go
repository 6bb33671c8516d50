package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rsaa/lunations/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create repository configuration",
	Long: `Inspect or create the repository configuration file (lunations.yml).

The file lives at the repository root. Missing keys fall back to
built-in defaults, so a repository without one still works.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration the other commands will use, with defaults
applied for any keys the file does not set.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a lunations.yml with default settings",
	Long: `Write a lunations.yml at the repository root populated with the
default settings, ready to edit.

Refuses to overwrite an existing file unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing lunations.yml")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	root := mustRepoRoot()
	cfg := mustLoadConfig(root)

	if humanOutput {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			exitWithError(ExitError, "encoding configuration: %v", err)
		}
		outputHuman("# %s\n", config.ConfigPath(root))
		outputHuman("%s", string(data))
		return nil
	}

	outputJSON(cfg)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root := mustRepoRoot()
	path := config.ConfigPath(root)

	if !configForce {
		if _, err := os.Stat(path); err == nil {
			exitWithError(ExitConfigError, "%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			exitWithError(ExitConfigError, "checking %s: %v", path, err)
		}
	}

	cfg := config.Default()
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "writing configuration: %v", err)
	}

	if humanOutput {
		outputHuman("wrote %s\n", path)
	} else {
		outputJSON(StatusResponse{Status: "created", Path: path})
	}
	return nil
}
