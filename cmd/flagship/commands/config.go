package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-core/internal/cli"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Manage the flagship CLI configuration file.`,
	}

	var setBaseURL, setAPIKey string
	setEnvCmd := &cobra.Command{
		Use:   "set-env <name>",
		Short: "Add or replace an environment",
		Long: `Add or replace a server environment. The first environment becomes the default.

Example:
  flagship config set-env prod --base-url https://flags.example.com --api-key s3cret`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if err := cfg.SetEnv(args[0], cli.EnvConfig{BaseURL: setBaseURL, APIKey: setAPIKey}); err != nil {
				return err
			}
			if err := cfg.Save(opts.configPath); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved environment %s\n", args[0])
			return err
		},
	}
	setEnvCmd.Flags().StringVar(&setBaseURL, "base-url", "", "Server base URL")
	setEnvCmd.Flags().StringVar(&setAPIKey, "api-key", "", "Admin API key")

	useCmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Set the default environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Use(args[0]); err != nil {
				return err
			}
			if err := cfg.Save(opts.configPath); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Default environment is now %s\n", args[0])
			return err
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Display the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", opts.configPath)
			fmt.Fprintf(out, "Default Environment: %s\n\n", cfg.DefaultEnv)
			fmt.Fprintln(out, "Environments:")
			for _, name := range cfg.EnvNames() {
				envCfg := cfg.Environments[name]
				fmt.Fprintf(out, "  %s:\n", name)
				fmt.Fprintf(out, "    base_url: %s\n", envCfg.BaseURL)
				fmt.Fprintf(out, "    api_key: %s\n", maskKey(envCfg.APIKey))
			}
			return nil
		},
	}

	configCmd.AddCommand(setEnvCmd, useCmd, showCmd)
	return configCmd
}

// maskKey keeps the first four characters of longer keys.
func maskKey(key string) string {
	if len(key) > 4 {
		return key[:4] + "***"
	}
	return "***"
}
