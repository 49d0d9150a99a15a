package commands

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/dlq"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/sqsops"
)

func newDLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Dead-letter queue utilities",
	}
	cmd.AddCommand(newDLQReadCmd(), newDLQPurgeCmd())
	return cmd
}

func newDLQReadCmd() *cobra.Command {
	var queue string
	var count int
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a queue and summarize its messages by sender and body text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			client := sqs.NewFromConfig(cfg)

			queueURL, err := sqsops.New(client).FindQueueURL(cmd.Context(), queue)
			if err != nil {
				return err
			}
			messages, err := dlq.New(client).GetMessages(cmd.Context(), queueURL, count)
			if err != nil {
				return err
			}

			bySender, byBody := dlq.SummarizeMessages(messages)
			fmt.Println("Summary of messages by sender:")
			if err := printJSON(bySender); err != nil {
				return err
			}
			fmt.Println("Summary of messages by body text:")
			return printJSON(byBody)
		},
	}
	cmd.Flags().StringVarP(&queue, "queue", "q", "", "queue name, a unique substring is enough")
	cmd.Flags().IntVarP(&count, "count", "c", 100, "max number of messages to read")
	cmd.MarkFlagRequired("queue")
	return cmd
}

func newDLQPurgeCmd() *cobra.Command {
	var queue, prefix string
	var count int
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete messages whose body starts with a prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			client := sqs.NewFromConfig(cfg)

			queueURL, err := sqsops.New(client).FindQueueURL(cmd.Context(), queue)
			if err != nil {
				return err
			}

			fmt.Println("Target queue:", sqsops.QueueName(queueURL))
			fmt.Println("Prefix to match:", prefix)
			fmt.Println("Max messages to read:", count)

			if !dryRun && !confirm("Purge messages from this queue?") {
				fmt.Println("Aborting...")
				return nil
			}

			result, err := dlq.New(client).Purge(cmd.Context(), queueURL, prefix, count, dryRun)
			if err != nil {
				return err
			}

			if dryRun {
				color.Yellow("DRY RUN - found %d messages to delete:", len(result.Matched))
				bySender, byBody := dlq.SummarizeMessages(result.Matched)
				fmt.Println("Summary by sender:")
				if err := printJSON(bySender); err != nil {
					return err
				}
				fmt.Println("Summary by content:")
				return printJSON(byBody)
			}

			fmt.Printf("Deleted %d messages from %s.\n", result.Deleted, sqsops.QueueName(queueURL))
			return nil
		},
	}
	cmd.Flags().StringVarP(&queue, "queue", "q", "", "queue name, a unique substring is enough")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "body prefix to filter messages by")
	cmd.Flags().IntVarP(&count, "count", "c", 100, "max number of messages to read")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without deleting")
	cmd.MarkFlagRequired("queue")
	cmd.MarkFlagRequired("prefix")
	return cmd
}
