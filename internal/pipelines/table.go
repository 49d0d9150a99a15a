package pipelines

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// RenderTable writes the pipeline overview as a table, newest
// deployment first. Pipelines without a resolved repository are
// skipped.
func RenderTable(w io.Writer, details []PipelineDetails) {
	sorted := make([]PipelineDetails, len(details))
	copy(sorted, details)
	SortByDeployTime(sorted)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Repository", "Branch", "Build status", "Built at", "Deploy status", "Deployed at", "Summary"})
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, pipeline := range sorted {
		if pipeline.Repository == "Unknown" {
			continue
		}
		table.Append([]string{
			pipeline.Repository,
			pipeline.Branch,
			pipeline.Build.StatusText(),
			pipeline.Build.LastChangeText(),
			pipeline.Deploy.StatusText(),
			pipeline.Deploy.LastChangeText(),
			pipeline.Summary,
		})
	}
	table.Render()
}
