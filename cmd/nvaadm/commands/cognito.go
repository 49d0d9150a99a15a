package commands

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/cognitousers"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
)

func newCognitoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cognito",
		Short: "Cognito user pool operations",
	}
	cmd.AddCommand(newCognitoSearchCmd())
	return cmd
}

func newCognitoSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM...",
		Short: "Search users by attribute values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			service := cognitousers.New(cognitoidentityprovider.NewFromConfig(cfg), environment.New(cfg))
			users, err := service.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(users)
		},
	}
}
