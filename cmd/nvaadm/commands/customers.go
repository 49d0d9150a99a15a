package commands

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/customers"
)

func newCustomersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Customer registry consistency checks",
	}
	cmd.AddCommand(newCustomersMissingCmd(), newCustomersDuplicatesCmd())
	return cmd
}

func newCustomersMissingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "missing",
		Short: "List customer references in the users table that do not exist in the customers table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			missing, err := customers.New(dynamodb.NewFromConfig(cfg)).ListMissing(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(missing)
		},
	}
}

func newCustomersDuplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "List customers sharing the same Cristin id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			duplicates, err := customers.New(dynamodb.NewFromConfig(cfg)).ListDuplicates(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(duplicates)
		},
	}
}
