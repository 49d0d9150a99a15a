// Package commands wires the CLI surface: one subcommand group per
// operational area, all sharing the --profile flag and the account
// context derived from it.
package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/auth"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/awsctx"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/config"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

var (
	flagProfile string
	flagVerbose bool
	flagQuiet   bool

	profile string
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nvaadm",
		Short:         "Admin utilities for NVA AWS accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(flagVerbose, flagQuiet)

			cfg, err := config.Load(config.DefaultPath())
			if err != nil {
				logger.Get().Warn("ignoring config file", logger.Error(err))
				cfg = &config.Config{}
			}
			profile = cfg.ResolveProfile(flagProfile)
		},
	}

	root.PersistentFlags().StringVar(&flagProfile, "profile", "", "AWS profile to use, e.g. sikt-nva-sandbox")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "only log errors")

	root.AddCommand(
		newAWSLambdaCmd(),
		newCognitoCmd(),
		newCristinCmd(),
		newCustomersCmd(),
		newDLQCmd(),
		newDynamoDBCmd(),
		newHandleCmd(),
		newOrgMigrationCmd(),
		newPipelinesCmd(),
		newPublicationsCmd(),
		newSearchCmd(),
		newSQSCmd(),
		newSWSCmd(),
		newUsersCmd(),
	)
	return root
}

// awsConfig loads the AWS config for the resolved profile.
func awsConfig(ctx context.Context) (aws.Config, error) {
	return awsctx.Load(ctx, profile)
}

// backendClient builds an NVA API client authenticated with the
// account's backend Cognito credentials, and returns the API domain.
func backendClient(ctx context.Context, env *environment.Environment, opts ...httpx.Option) (*httpx.Client, string, error) {
	apiDomain, err := env.APIDomain(ctx)
	if err != nil {
		return nil, "", err
	}
	cognitoURI, err := env.CognitoURI(ctx)
	if err != nil {
		return nil, "", err
	}
	var creds auth.ClientCredentials
	if err := env.SecretJSON(ctx, environment.SecretBackendClientCredentials, &creds); err != nil {
		return nil, "", err
	}
	tokens := auth.NewTokenSource(cognitoURI, creds)
	options := append([]httpx.Option{httpx.WithTokenProvider(tokens)}, opts...)
	return httpx.New(options...), apiDomain, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Println(string(payload))
	return nil
}

// confirm asks a yes/no question on the terminal, defaulting to no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
