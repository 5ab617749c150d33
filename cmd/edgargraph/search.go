package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corpintel/edgargraph/internal/edgar"
)

var searchLimit int

// search hits only the SEC ticker directory, so it works without Neo4j.
var searchCmd = &cobra.Command{
	Use:   "search <name or ticker>",
	Short: "Search the SEC company directory to find a CIK",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum results to show")
}

func runSearch(cmd *cobra.Command, args []string) error {
	fetcher, err := edgar.NewClient(cfg.Edgar.UserAgent, cfg.Edgar.RequestsPerSecond, cfg.Edgar.Timeout)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results, err := fetcher.SearchCompanies(cmd.Context(), query, searchLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Printf("No companies matched %q\n", query)
		return nil
	}

	fmt.Printf("%-12s %-8s %s\n", "CIK", "TICKER", "NAME")
	for _, r := range results {
		fmt.Printf("%-12s %-8s %s\n", r.CIK, r.Ticker, r.Name)
	}
	fmt.Println("\nIngest one with: edgargraph ingest <cik>")
	return nil
}
