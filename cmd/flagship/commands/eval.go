package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagship-core/internal/cli"
	"github.com/TimurManjosov/flagship-core/internal/rollout"
)

func newEvalCmd(opts *globalOptions) *cobra.Command {
	var (
		rolloutPct string
		groupID    string
		stickiness string
		userID     string
		sessionID  string
		feature    string
		props      map[string]string
		hashName   string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a gradual rollout locally",
		Long: `Evaluate a gradual rollout for one context without contacting a server.

Examples:
  flagship eval --rollout 25 --group-id checkout --user-id u-42
  flagship eval --rollout 50 --stickiness tenantId --prop tenantId=acme --feature billing
  flagship eval --rollout 10 --stickiness random --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := rollout.ParseParameters(map[string]any{
				rollout.ParamRollout:    rolloutPct,
				rollout.ParamGroupID:    groupID,
				rollout.ParamStickiness: stickiness,
			})
			ctx := rollout.Context{
				UserID:        userID,
				SessionID:     sessionID,
				FeatureToggle: feature,
				Properties:    props,
			}

			res := rollout.NewEvaluator(nil, rollout.HashByName(hashName)).Evaluate(params, ctx)
			if opts.quiet {
				return nil
			}
			return cli.PrintResult(cmd.OutOrStdout(), res, cli.OutputFormat(opts.format))
		},
	}

	cmd.Flags().StringVar(&rolloutPct, "rollout", "0", "Rollout percentage (0-100)")
	cmd.Flags().StringVar(&groupID, "group-id", "", "Group ID (defaults to --feature)")
	cmd.Flags().StringVar(&stickiness, "stickiness", "default", "default, random, or a context property name")
	cmd.Flags().StringVar(&userID, "user-id", "", "User ID")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID")
	cmd.Flags().StringVar(&feature, "feature", "", "Feature toggle name")
	cmd.Flags().StringToStringVar(&props, "prop", nil, "Context property key=value (repeatable)")
	cmd.Flags().StringVar(&hashName, "hash", "murmur3", "Hash function (murmur3, xxhash)")
	return cmd
}

func newNormalizeCmd() *cobra.Command {
	var hashName string

	cmd := &cobra.Command{
		Use:   "normalize <stickinessId> <groupId>",
		Short: "Print the 1..100 slot for an identifier and group",
		Long: `Print the slot a stickiness identifier falls into for a group.
A rollout of N% enables every identifier whose slot is <= N.

Example:
  flagship normalize u-42 checkout`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := rollout.NormalizeWith(rollout.HashByName(hashName), args[0], args[1])
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strconv.Itoa(n))
			return err
		},
	}

	cmd.Flags().StringVar(&hashName, "hash", "murmur3", "Hash function (murmur3, xxhash)")
	return cmd
}
