package commands

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/searchapi"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search NVA resources",
	}
	cmd.AddCommand(newSearchPublisherPublicationsCmd())
	return cmd
}

func newSearchPublisherPublicationsCmd() *cobra.Command {
	var pageSize int
	cmd := &cobra.Command{
		Use:   "publisher-publications PUBLISHER-ID",
		Short: "List all publication identifiers for a publisher",
		Long:  "PUBLISHER-ID is the channel register id (publisher UUID).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			apiDomain, err := environment.New(cfg).APIDomain(cmd.Context())
			if err != nil {
				return err
			}

			query := url.Values{
				"aggregation": {"all"},
				"publisher":   {args[0]},
				"order":       {"modifiedDate"},
				"sort":        {"desc"},
			}
			service := searchapi.New(searchapi.NewClient(), apiDomain)
			return service.ForEachHit(cmd.Context(), query, pageSize, func(hit searchapi.Hit) error {
				if hit.Identifier != "" {
					fmt.Println(hit.Identifier)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", searchapi.DefaultPageSize, "number of results per page")
	return cmd
}
