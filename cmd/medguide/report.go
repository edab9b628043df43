package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/medguide/internal/report"
	"github.com/FranksOps/medguide/internal/storage"
)

var (
	reportJSON   bool
	reportDomain string
	reportFailed bool
	reportSince  time.Duration
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise the fetch audit log",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the summary as JSON")
	reportCmd.Flags().StringVar(&reportDomain, "domain", "", "only include fetches for this domain")
	reportCmd.Flags().BoolVar(&reportFailed, "failed", false, "only include failed fetches")
	reportCmd.Flags().DurationVar(&reportSince, "since", 0, "only include fetches newer than this (e.g. 24h)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := openBackend(cmd.Context(), cfg.Audit)
	if err != nil {
		return err
	}
	if backend == nil {
		return errors.New("no audit backend configured; set audit.backend and audit.dsn")
	}
	defer backend.Close()

	filter := storage.Filter{Domain: reportDomain, FailedOnly: reportFailed}
	if reportSince > 0 {
		since := time.Now().Add(-reportSince)
		filter.Since = &since
	}

	records, err := backend.Query(cmd.Context(), filter)
	if err != nil {
		return err
	}

	summary := report.GenerateSummary(records)
	if reportJSON {
		return report.WriteJSON(cmd.OutOrStdout(), summary)
	}
	return report.WriteText(cmd.OutOrStdout(), summary)
}
