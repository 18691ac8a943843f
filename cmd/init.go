package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesm/github-issue-chat/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file if it doesn't exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultConfigName + ".yaml"
		}
		if err := config.CreateDefaultConfig(path); err != nil {
			return fmt.Errorf("failed to create default configuration: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration at %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "GitHub token can be provided via the %s or %s environment variable\n",
			config.EnvGithubToken, config.EnvGithubTokenFallback)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
