package commands

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/lambdaops"
)

func newAWSLambdaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "awslambda",
		Short: "Lambda function maintenance",
	}
	cmd.AddCommand(newLambdaDeleteOldVersionsCmd(), newLambdaConcurrencyCmd())
	return cmd
}

func newLambdaDeleteOldVersionsCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "delete-old-versions",
		Short: "Delete old versions of Lambda functions",
		Long: "Lists every function version and removes versions that are neither " +
			"the current version nor referenced by an alias. Without --delete the " +
			"command only prints what would be removed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			return lambdaops.New(lambda.NewFromConfig(cfg)).DeleteOldVersions(cmd.Context(), remove)
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "actually delete the removable versions")
	return cmd
}

func newLambdaConcurrencyCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "concurrency",
		Short: "Write a reserved-concurrency report for all functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			if env == "" {
				env = profile
			}
			filename, err := lambdaops.New(lambda.NewFromConfig(cfg)).WriteConcurrencyReport(cmd.Context(), env)
			if err != nil {
				return err
			}
			fmt.Println("Wrote", filename)
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment name used in the report filename (defaults to the profile)")
	return cmd
}
