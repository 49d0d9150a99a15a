package commands

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/sqsops"
)

func newSQSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sqs",
		Short: "SQS queue utilities",
	}
	cmd.AddCommand(newSQSListCmd(), newSQSInfoCmd(), newSQSDrainCmd(), newSQSAnalyzeCmd())
	return cmd
}

func newSQSListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [FILTER]",
		Short: "List queues, optionally filtered by a name substring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			urls, err := sqsops.New(sqs.NewFromConfig(cfg)).ListQueueURLs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			for _, url := range urls {
				fmt.Println(sqsops.QueueName(url))
			}
			return nil
		},
	}
}

func newSQSInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info QUEUE",
		Short: "Show queue attributes and dead-letter configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			service := sqsops.New(sqs.NewFromConfig(cfg))

			queueURL, err := service.FindQueueURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			attributes, err := service.QueueAttributes(cmd.Context(), queueURL)
			if err != nil {
				return err
			}

			fmt.Println("Queue:", sqsops.QueueName(queueURL))
			fmt.Println("URL:", queueURL)
			fmt.Println()
			fmt.Println("Message statistics:")
			fmt.Println("  Approximate messages:", attributes["ApproximateNumberOfMessages"])
			fmt.Println("  Messages in flight:", attributes["ApproximateNumberOfMessagesNotVisible"])
			fmt.Println("  Delayed messages:", attributes["ApproximateNumberOfMessagesDelayed"])
			fmt.Println()
			fmt.Println("Queue configuration:")
			fmt.Println("  Visibility timeout:", attributes["VisibilityTimeout"], "seconds")
			fmt.Println("  Message retention:", attributes["MessageRetentionPeriod"], "seconds")
			fmt.Println("  Max message size:", attributes["MaximumMessageSize"], "bytes")
			fmt.Println("  Receive wait time:", attributes["ReceiveMessageWaitTimeSeconds"], "seconds")

			policy, err := sqsops.ParseRedrivePolicy(attributes)
			if err != nil {
				return err
			}
			if policy != nil {
				fmt.Println()
				fmt.Println("Dead letter queue:")
				fmt.Println("  Max receive count:", policy.MaxReceiveCount)
				fmt.Println("  DLQ ARN:", policy.DeadLetterTargetArn)
			}
			return nil
		},
	}
}

func newSQSDrainCmd() *cobra.Command {
	var outputDir string
	var messagesPerFile int
	var deleteAfterWrite, yes bool
	cmd := &cobra.Command{
		Use:   "drain QUEUE",
		Short: "Drain a queue's messages to JSONL files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			service := sqsops.New(sqs.NewFromConfig(cfg))

			queueURL, err := service.FindQueueURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !yes {
				fmt.Println("Queue:", sqsops.QueueName(queueURL))
				fmt.Println("Messages per file:", messagesPerFile)
				fmt.Println("Delete after write:", deleteAfterWrite)
				if deleteAfterWrite {
					color.Red("WARNING: messages will be DELETED from the queue after writing!")
				}
				if !confirm("Proceed with draining the queue?") {
					fmt.Println("Operation cancelled")
					return nil
				}
			}

			summary, err := service.Drain(cmd.Context(), queueURL, sqsops.DrainOptions{
				OutputDir:        outputDir,
				MessagesPerFile:  messagesPerFile,
				DeleteAfterWrite: deleteAfterWrite,
			})
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for JSONL files")
	cmd.Flags().IntVar(&messagesPerFile, "messages-per-file", 1000, "max messages per JSONL file")
	cmd.Flags().BoolVar(&deleteAfterWrite, "delete", false, "delete messages after writing to file (use with caution)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func newSQSAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze FOLDER",
		Short: "Analyze drained queue messages for error patterns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis, err := sqsops.AnalyzeDrainedMessages(args[0])
			if err != nil {
				return err
			}
			if err := printJSON(analysis); err != nil {
				return err
			}
			if top := analysis.TopExceptions(); len(top) > 0 {
				fmt.Println("Top exceptions:")
				for _, name := range top {
					fmt.Printf("  %6d  %s\n", analysis.ByException[name], name)
				}
			}
			return nil
		},
	}
}
