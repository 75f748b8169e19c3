package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ProgramInfo describes a registered program.
type ProgramInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
}

// NewProgramsCommand creates the programs command.
func NewProgramsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "programs",
		Short:         "List runnable programs and their parameters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			var infos []ProgramInfo
			for _, s := range rootOpts.registry().All() {
				infos = append(infos, ProgramInfo{Name: s.Name, Description: s.Description, Params: s.Params})
			}
			if out.Format == "json" {
				return out.Success(infos)
			}
			tw := tabwriter.NewWriter(out.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROGRAM\tPARAMS\tDESCRIPTION")
			for _, p := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, strings.Join(p.Params, ","), p.Description)
			}
			return tw.Flush()
		},
	}
}
