package commands

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/awsctx"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/pipelines"
)

func newPipelinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipelines",
		Short: "CodePipeline status overview",
	}
	cmd.AddCommand(newPipelinesBranchesCmd())
	return cmd
}

func newPipelinesBranchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branches",
		Short: "Show repository, branch and latest status of every pipeline",
		Long: "Lists pipelines across all accounts in the --profile list " +
			"(comma separated) with their tracked repository and branch.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := awsctx.SplitProfiles(profile)
			if len(profiles) == 0 {
				profiles = []string{""}
			}

			for _, accountProfile := range profiles {
				cfg, err := awsctx.Load(cmd.Context(), accountProfile)
				if err != nil {
					return err
				}
				alias, err := awsctx.AccountAlias(cmd.Context(), iam.NewFromConfig(cfg))
				if err != nil {
					return err
				}

				details, err := pipelines.New(codepipeline.NewFromConfig(cfg)).PipelineDetails(cmd.Context())
				if err != nil {
					return err
				}

				color.Magenta("Account: %s (%s), %d pipelines", alias, accountProfile, len(details))
				pipelines.RenderTable(os.Stdout, details)
				fmt.Println()
			}
			return nil
		},
	}
}
