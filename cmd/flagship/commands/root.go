package commands

import (
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-core/internal/cli"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	baseURL    string
	apiKey     string
	env        string
	format     string
	configPath string
	quiet      bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "flagship",
		Short: "CLI tool for gradual rollouts and scheduled job inspection",
		Long: `Flagship evaluates gradual rollouts locally and inspects the job buckets recorded
by a running flagship server.

Examples:
  flagship eval --rollout 25 --group-id checkout --user-id u-42
  flagship normalize u-42 checkout
  flagship jobs list --name job-retention --env prod
  flagship config set-env prod --base-url https://flags.example.com --api-key s3cret`,
		SilenceUsage: true,
	}

	defaultConfig, _ := cli.DefaultConfigPath()
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "Base URL of the flagship API")
	rootCmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "Admin API key")
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "", "Configured environment to use (defaults to the config's default)")
	rootCmd.PersistentFlags().StringVar(&opts.format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "Path to the CLI config file")
	rootCmd.PersistentFlags().BoolVar(&opts.quiet, "quiet", false, "Suppress output")

	rootCmd.AddCommand(
		newEvalCmd(opts),
		newNormalizeCmd(),
		newJobsCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
