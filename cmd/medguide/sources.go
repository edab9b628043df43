package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FranksOps/medguide/internal/registry"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List supported guideline sites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DOMAIN\tNAME\tSTRATEGY")
		for _, src := range registry.Default().All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", src.Domain, src.Name, src.Strategy)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
