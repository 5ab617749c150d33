package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestLimit int

var ingestCmd = &cobra.Command{
	Use:   "ingest <cik>",
	Short: "Ingest one company's ownership, proxy, and annual-report filings",
	Long: `Fetches a company's recent DEF 14A, 13D/13G, and 10-K filings from
SEC EDGAR, extracts ownership, officer, and subsidiary facts, and loads
high-confidence facts into the graph. Low-confidence extractions land
in the review queue.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 20, "maximum filings to process")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	outcomes, err := a.orchestrator.ProcessCompany(ctx, args[0], ingestLimit)
	if err != nil {
		return err
	}

	var succeeded, failed, candidates, loaded, queued int
	for _, o := range outcomes {
		if o.Success {
			succeeded++
		} else {
			failed++
		}
		candidates += o.Candidates
		loaded += o.AutoLoaded
		queued += o.Queued
	}

	fmt.Printf("\nProcessed %d filings: %d succeeded, %d failed\n", len(outcomes), succeeded, failed)
	fmt.Printf("Candidates extracted: %d (auto-loaded %d, queued for review %d)\n", candidates, loaded, queued)
	for _, o := range outcomes {
		status := "✅"
		if !o.Success {
			status = "❌"
		}
		fmt.Printf("  %s %-12s %s  candidates=%d loaded=%d queued=%d\n",
			status, o.Filing.FormType, o.Filing.AccessionNumber, o.Candidates, o.AutoLoaded, o.Queued)
		if o.Error != "" {
			fmt.Printf("      error: %s\n", o.Error)
		}
	}
	if queued > 0 {
		fmt.Printf("\nReview pending items with: edgargraph review list\n")
	}
	return nil
}
