package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show graph contents and review queue counts",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	stats, err := a.queries.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Graph:")
	for _, key := range []string{"companies", "persons", "events", "insider_transactions", "jurisdictions"} {
		fmt.Printf("  %-22s %d\n", key, stats[key])
	}

	queueStats, err := a.queue.Stats()
	if err != nil {
		return err
	}
	fmt.Println("\nReview queue:")
	for _, key := range []string{"pending", "approved", "modified", "rejected", "total"} {
		if count, ok := queueStats[key]; ok {
			fmt.Printf("  %-22s %d\n", key, count)
		}
	}
	return nil
}
