package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/cristin"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/environment"
)

func newCristinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cristin",
		Short: "Direct Cristin API operations",
	}
	cmd.AddCommand(newCristinAddUserCmd())
	return cmd
}

func newCristinAddUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-user [FILE]",
		Short: "Add a Cristin person from a JSON document",
		Long:  "Reads the person document from FILE, or from stdin when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input io.Reader = os.Stdin
			if len(args) == 1 {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input file: %w", err)
				}
				defer file.Close()
				input = file
			}

			var person cristin.Person
			if err := json.NewDecoder(input).Decode(&person); err != nil {
				return fmt.Errorf("decode person document: %w", err)
			}

			cfg, err := awsConfig(cmd.Context())
			if err != nil {
				return err
			}
			service, err := cristin.NewFromEnvironment(cmd.Context(), environment.New(cfg))
			if err != nil {
				return err
			}
			created, err := service.AddPerson(cmd.Context(), person)
			if err != nil {
				return err
			}
			return printJSON(created)
		},
	}
}
