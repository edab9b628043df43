package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/medguide/internal/mcpserver"
	"github.com/FranksOps/medguide/internal/pipeline"
)

var (
	searchDomains    []string
	searchMaxResults int
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search guideline sites and print the extracted guidelines",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchDomains, "domain", "d", nil, "restrict to these guideline domains (repeatable)")
	searchCmd.Flags().IntVarP(&searchMaxResults, "max-results", "n", 0, "maximum guidelines to return, 1 to 5 (default 3)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print documents as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	docs, err := a.orchestrator.Search(cmd.Context(), pipeline.Request{
		Query:      query,
		Domains:    searchDomains,
		MaxResults: searchMaxResults,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}
	_, err = fmt.Fprintln(out, mcpserver.ResultText(query, docs))
	return err
}
