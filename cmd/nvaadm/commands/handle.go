package commands

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/awsctx"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/handleops"
)

func newHandleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handle",
		Short: "Handle migration: prepare task batches and execute them",
	}
	cmd.AddCommand(newHandlePrepareCmd(), newHandleExecuteCmd())
	return cmd
}

func newHandlePrepareCmd() *cobra.Command {
	var customer, resourceOwner, outputFolder string
	var prefixes []string
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Derive handle import tasks for a customer's publications",
		Args:  cobra.NoArgs,
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

			if outputFolder == "" {
				alias, err := awsctx.AccountAlias(cmd.Context(), iam.NewFromConfig(cfg))
				if err != nil {
					return err
				}
				outputFolder = handleops.DefaultOutputFolder(alias, resourceOwner)
			}

			writer := handleops.NewWriter(apiDomain, prefixes)
			result, err := writer.Prepare(cmd.Context(), dynamodb.NewFromConfig(cfg), customer, resourceOwner, outputFolder)
			if err != nil {
				return err
			}

			fmt.Println("Customer:", customer)
			fmt.Println("Output folder:", result.Folder)
			fmt.Printf("Publications: %d, tasks: %d\n", result.Publications, result.Tasks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&customer, "customer", "c", "", "customer UUID, e.g. bb3d0c0c-5065-4623-9b98-5810983c2478")
	cmd.Flags().StringVarP(&resourceOwner, "resource-owner", "r", "", "resource owner id, e.g. ntnu@194.0.0.0")
	cmd.Flags().StringVarP(&outputFolder, "output-folder", "o", "", "output folder (default {alias}-resources-{owner}-handle-tasks)")
	cmd.Flags().StringSliceVar(&prefixes, "prefix", nil, "handle.net prefix eligible for import, e.g. 20.500.12242, repeatable")
	cmd.MarkFlagRequired("customer")
	cmd.MarkFlagRequired("resource-owner")
	cmd.MarkFlagRequired("prefix")
	return cmd
}

func newHandleExecuteCmd() *cobra.Command {
	var inputFolder string
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Run prepared handle task batches against the handle API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			api, apiDomain, err := backendClient(cmd.Context(), environment.New(cfg))
			if err != nil {
				return err
			}

			ledger, err := handleops.OpenLedger(inputFolder)
			if err != nil {
				return err
			}
			defer ledger.Close()

			executor := handleops.NewExecutor(ledger, handleops.NewHandleClient(api, apiDomain), apiDomain)
			return executor.ExecuteFolder(cmd.Context(), inputFolder)
		},
	}
	cmd.Flags().StringVarP(&inputFolder, "input-folder", "i", "", "folder with prepared batch files")
	cmd.MarkFlagRequired("input-folder")
	return cmd
}
