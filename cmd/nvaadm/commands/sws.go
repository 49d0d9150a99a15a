package commands

import (
	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/sws"
)

func newSWSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sws",
		Short: "Search Web Service operations",
	}
	cmd.AddCommand(newSWSGetMappingsCmd())
	return cmd
}

func newSWSGetMappingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-mappings INDEX",
		Short: "Get the mapping configuration of a search index",
		Long:  "INDEX is the name of the search index, e.g. resources or nvi-candidates.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			service, err := sws.NewFromEnvironment(cmd.Context(), environment.New(cfg), profile)
			if err != nil {
				return err
			}
			mappings, err := service.GetMappings(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(mappings)
		},
	}
}
