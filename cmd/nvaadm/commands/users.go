package commands

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/usersroles"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Users-and-roles registry operations",
	}
	cmd.AddCommand(newUsersSearchCmd())
	return cmd
}

func newUsersSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM...",
		Short: "Search users by their attribute values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			api, apiDomain, err := backendClient(cmd.Context(), environment.New(cfg))
			if err != nil {
				return err
			}
			service := usersroles.New(dynamodb.NewFromConfig(cfg), api, apiDomain)
			users, err := service.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(users)
		},
	}
}
