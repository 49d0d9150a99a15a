package commands

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/exporter"
)

func newDynamoDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dynamodb",
		Short: "DynamoDB table utilities",
	}
	cmd.AddCommand(newDynamoDBExportCmd())
	return cmd
}

func newDynamoDBExportCmd() *cobra.Command {
	var folder string
	var filters []string
	cmd := &cobra.Command{
		Use:   "export TABLE",
		Short: "Export a table to JSONL batch files",
		Long: "Exports the first table whose name contains TABLE. Filters use the " +
			"form attribute:operator:value, e.g. type:eq:Publication or " +
			"modifiedDate:begins_with:2026, and are AND-combined.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			if folder == "" {
				folder = fmt.Sprintf("dynamodb_export_%s_%s_%s", profile, args[0], time.Now().Format("20060102_150405"))
			}
			result, err := exporter.New(dynamodb.NewFromConfig(cfg)).Export(cmd.Context(), args[0], folder, filters)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d items from %s to %s (%d batches)\n",
				result.Items, result.TableName, result.Folder, result.Batches)
			return nil
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "o", "", "output folder (default dynamodb_export_{profile}_{table}_{timestamp})")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter expression attribute:operator:value, repeatable")
	return cmd
}
