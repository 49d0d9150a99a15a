package commands

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/publications"
)

func newPublicationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publications",
		Short: "Publication registry operations",
	}
	cmd.AddCommand(newPublicationsCopyCmd(), newPublicationsExportCmd())
	return cmd
}

func newPublicationsCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy IDENTIFIER",
		Short: "Copy a publication as a new draft without associated artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			api, apiDomain, err := backendClient(cmd.Context(), environment.New(cfg))
			if err != nil {
				return err
			}
			created, err := publications.NewAPIService(api, apiDomain).Copy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(created)
		},
	}
}

func newPublicationsExportCmd() *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all publications to JSONL batch files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			result, err := publications.Export(cmd.Context(), dynamodb.NewFromConfig(cfg), folder)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d publications from %s to %s (%d batches)\n",
				result.Publications, result.TableName, result.Folder, result.Batches)
			return nil
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "folder to save the exported data")
	cmd.MarkFlagRequired("folder")
	return cmd
}
