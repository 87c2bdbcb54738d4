package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-core/internal/cli"
	"github.com/TimurManjosov/flagship-core/internal/client"
)

func newJobsCmd(opts *globalOptions) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect scheduled job buckets",
	}

	var (
		name  string
		limit int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List job bucket records",
		Long: `List job bucket records recorded by the server, newest first.

Examples:
  flagship jobs list --env prod
  flagship jobs list --name job-retention --limit 10 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			envCfg, _, err := cfg.Resolve(opts.env, opts.baseURL, opts.apiKey)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
			jobs, err := c.ListJobs(cmd.Context(), name, limit)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}

			if opts.quiet {
				return nil
			}
			if len(jobs) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return err
			}
			return cli.PrintJobs(cmd.OutOrStdout(), jobs, cli.OutputFormat(opts.format))
		},
	}
	listCmd.Flags().StringVar(&name, "name", "", "Only show this job")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum records (1-500, server default when 0)")

	jobsCmd.AddCommand(listCmd)
	return jobsCmd
}
