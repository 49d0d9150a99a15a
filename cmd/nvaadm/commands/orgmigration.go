package commands

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/orgmigration"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/publications"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/searchapi"
)

func newOrgMigrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organization-migration",
		Short: "Repair publications after an organization identifier change",
	}
	cmd.AddCommand(newOrgMigrationListCmd(), newOrgMigrationUpdateCmd())
	return cmd
}

func newOrgMigrationListCmd() *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:   "list-publications ORGANIZATION-IDENTIFIER",
		Short: "List publications referencing an organization identifier",
		Long: "Searches for publications where the identifier appears as a " +
			"contributor affiliation or as the owner affiliation and writes the " +
			"two identifier lists as a report file for update-publications.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			env := environment.New(cfg)
			apiDomain, err := env.APIDomain(cmd.Context())
			if err != nil {
				return err
			}

			searcher := searchapi.New(searchapi.NewClient(), apiDomain)
			service := orgmigration.New(searcher, nil)
			migrationReport, err := service.ListPublications(cmd.Context(), args[0], filename)
			if err != nil {
				return err
			}
			if filename == "" {
				return printJSON(migrationReport)
			}
			fmt.Printf("Wrote %s (%d contributor hits, %d owner hits)\n",
				filename, len(migrationReport.Contributors), len(migrationReport.Owners))
			return nil
		},
	}
	cmd.Flags().StringVar(&filename, "filename", "report.json", "report file name, empty prints to stdout")
	return cmd
}

func newOrgMigrationUpdateCmd() *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:   "update-publications OLD-IDENTIFIER NEW-IDENTIFIER",
		Short: "Rewrite affiliations listed in a report from the old to the new identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			store, err := publications.NewStore(cmd.Context(), dynamodb.NewFromConfig(cfg))
			if err != nil {
				return err
			}

			service := orgmigration.New(nil, store)
			result, err := service.UpdatePublications(cmd.Context(), filename, args[0], args[1])
			if result != nil {
				fmt.Printf("Updated %d, unchanged %d, failed %d\n",
					result.Updated, result.Unchanged, len(result.Failed))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&filename, "filename", "report.json", "report file from list-publications")
	return cmd
}
