package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corpintel/edgargraph/internal/classify"
	"github.com/corpintel/edgargraph/internal/edgar"
)

var scanLimit int

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a company's event (8-K) or insider (Form 4) filings",
}

var scanEventsCmd = &cobra.Command{
	Use:   "events <cik>",
	Short: "Parse recent 8-K filings into material events and M&A signals",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanEvents,
}

var scanInsiderCmd = &cobra.Command{
	Use:   "insider <cik>",
	Short: "Ingest recent Form 4 filings and classify insider activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanInsider,
}

var (
	scanRecentDays      int
	scanRecentCompanies int
)

var scanRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Discover recent 8-K filers via full-text search and scan them for M&A signals",
	Args:  cobra.NoArgs,
	RunE:  runScanRecent,
}

func init() {
	scanCmd.PersistentFlags().IntVar(&scanLimit, "limit", 20, "maximum filings to scan")
	scanRecentCmd.Flags().IntVar(&scanRecentDays, "days", 3, "how many days back to search")
	scanRecentCmd.Flags().IntVar(&scanRecentCompanies, "max-companies", 25, "cap on companies to scan (0 = all)")
	scanCmd.AddCommand(scanEventsCmd)
	scanCmd.AddCommand(scanInsiderCmd)
	scanCmd.AddCommand(scanRecentCmd)
}

func runScanEvents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	scans, err := a.orchestrator.ScanEvents(ctx, args[0], scanLimit)
	if err != nil {
		return err
	}

	events, maSignals := 0, 0
	for _, s := range scans {
		events += s.Events
		if s.HasMASignal {
			maSignals++
		}
	}
	fmt.Printf("\nScanned %d 8-K filings: %d events stored, %d with M&A signals\n", len(scans), events, maSignals)
	for _, s := range scans {
		if s.Error != "" {
			fmt.Printf("  ❌ %s  error: %s\n", s.Filing.AccessionNumber, s.Error)
			continue
		}
		marker := "  "
		if s.HasMASignal {
			marker = "🚩"
		}
		signal := s.SignalLevel
		if s.CombinedLevel != "" && s.CombinedLevel != s.SignalLevel {
			signal = fmt.Sprintf("%s (insider-adjusted from %s)", s.CombinedLevel, s.SignalLevel)
		}
		fmt.Printf("  %s %s  %s  events=%d signal=%s\n",
			marker, s.Filing.FilingDate, s.Filing.AccessionNumber, s.Events, signal)
		if len(s.MAItems) > 0 {
			fmt.Printf("      M&A items: %s\n", strings.Join(s.MAItems, ", "))
		}
		if s.Summary != "" {
			fmt.Printf("      %s\n", s.Summary)
		}
	}
	return nil
}

func runScanInsider(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	scan, err := a.orchestrator.ScanInsiderTrades(ctx, args[0], scanLimit)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s (%s)\n", scan.CompanyName, scan.CIK)
	fmt.Printf("Form 4 filings: %d found, %d parsed\n", scan.FilingsFound, scan.FilingsParsed)
	fmt.Printf("Transactions stored: %d (queued for review: %d)\n", scan.TransactionsStored, scan.Queued)
	fmt.Printf("Net shares: %+.0f\n", scan.NetShares)
	fmt.Printf("Insider signal: %s", scan.SignalLevel)
	if scan.SignalSummary != "" {
		fmt.Printf(" (%s)", scan.SignalSummary)
	}
	fmt.Println()
	return nil
}

func runScanRecent(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	filers, err := a.fetcher.GetRecent8KFilers(ctx, scanRecentDays)
	if err != nil {
		return err
	}
	if len(filers) == 0 {
		fmt.Println("No 8-K filers found in the requested window")
		return nil
	}
	if scanRecentCompanies > 0 && len(filers) > scanRecentCompanies {
		filers = filers[:scanRecentCompanies]
	}
	fmt.Printf("Scanning %d recent 8-K filers (last %d days)\n\n", len(filers), scanRecentDays)

	type flaggedFiler struct {
		filer edgar.RecentFiler
		level string
	}
	var flagged []flaggedFiler
	for _, filer := range filers {
		scans, err := a.orchestrator.ScanEvents(ctx, filer.CIK, scanLimit)
		if err != nil {
			fmt.Printf("  ❌ %s (%s): %v\n", filer.Name, filer.CIK, err)
			continue
		}
		level := ""
		for _, s := range scans {
			if !s.HasMASignal {
				continue
			}
			l := s.CombinedLevel
			if l == "" {
				l = s.SignalLevel
			}
			if level == "" || classify.LevelPriority(l) < classify.LevelPriority(level) {
				level = l
			}
		}
		if level == "" {
			continue
		}
		flagged = append(flagged, flaggedFiler{filer, level})
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		return classify.LevelPriority(flagged[i].level) < classify.LevelPriority(flagged[j].level)
	})
	for _, f := range flagged {
		fmt.Printf("  🚩 %s (%s)  signal=%s\n", f.filer.Name, f.filer.CIK, f.level)
	}

	fmt.Printf("\n%d of %d companies flagged with M&A signals\n", len(flagged), len(filers))
	return nil
}
