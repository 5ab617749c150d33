package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/corpintel/edgargraph/internal/edgar"
	"github.com/corpintel/edgargraph/internal/graph"
	"github.com/corpintel/edgargraph/internal/models"
	"github.com/corpintel/edgargraph/internal/pipeline"
	"github.com/corpintel/edgargraph/internal/resolve"
	"github.com/corpintel/edgargraph/internal/review"
)

var (
	reviewListLimit int
	reviewListCIK   string
	reviewedBy      string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the queue of extractions awaiting human review",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending review items",
	RunE:  runReviewList,
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve an item and load it into the graph",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewApprove,
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject an item; it will never be loaded",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewReject,
}

func init() {
	reviewListCmd.Flags().IntVar(&reviewListLimit, "limit", 50, "maximum items to show")
	reviewListCmd.Flags().StringVar(&reviewListCIK, "cik", "", "show one company's items, any status")
	reviewCmd.PersistentFlags().StringVar(&reviewedBy, "by", defaultReviewer(), "reviewer name recorded on dispositions")
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewRejectCmd)
}

func defaultReviewer() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "cli"
}

func runReviewList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	var items []review.Item
	if reviewListCIK != "" {
		items, err = a.queue.ByCompany(edgar.NormalizeCIK(reviewListCIK), reviewListLimit)
	} else {
		items, err = a.queue.Pending(reviewListLimit)
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("✅ Review queue is empty")
		return nil
	}

	fmt.Printf("%d items:\n\n", len(items))
	for _, item := range items {
		fmt.Printf("  #%-5d %-10s %-12s %-40s conf=%.2f  %s\n",
			item.ID, item.Status, item.Candidate.Kind, truncateName(item.Candidate.PartyName(), 40),
			item.Confidence, item.Candidate.Citation.Filing.AccessionNumber)
		if item.FailureReason != "" {
			fmt.Printf("         reason: %s\n", item.FailureReason)
		}
	}
	fmt.Println("\nDispose with: edgargraph review approve <id> | review reject <id>")
	return nil
}

func runReviewApprove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	result, err := approveAndLoad(ctx, a.queue, a.linker, a.loader, id, reviewedBy)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Item %d approved and loaded: %d entities created, %d relationships created\n",
		id, result.EntitiesCreated, result.RelationshipsCreated)
	return nil
}

// approveAndLoad resolves the item's party, loads the fact, and only then
// flips the status. Approval is exactly-once, so any failure before the
// status update leaves the item pending and retryable; loads are
// idempotent MERGEs, so a retry after a post-load failure cannot
// double-count.
func approveAndLoad(ctx context.Context, queue *review.Queue, linker *resolve.Linker, loader *graph.Loader, id int64, by string) (models.LoadResult, error) {
	item, err := queue.Get(id)
	if err != nil {
		return models.LoadResult{}, err
	}

	party, err := linker.Resolve(ctx, pipeline.EntityKind(item.Candidate), item.Candidate.PartyName(), resolve.Hints{
		SubjectCIK:      item.Candidate.SubjectCIK,
		AccessionNumber: item.Candidate.Citation.Filing.AccessionNumber,
	})
	if err != nil {
		return models.LoadResult{}, fmt.Errorf("party resolution failed, item %d left pending: %w", id, err)
	}

	result, err := loader.Load(ctx, item.Candidate.Citation.Filing, item.Candidate.SubjectName, []graph.ResolvedCandidate{
		{Candidate: item.Candidate, Party: party},
	})
	if err != nil {
		return models.LoadResult{}, fmt.Errorf("load failed, item %d left pending: %w", id, err)
	}

	if _, err := queue.Approve(id, by); err != nil {
		return result, fmt.Errorf("fact loaded but item %d not marked approved, rerun is safe: %w", id, err)
	}
	return result, nil
}

func runReviewReject(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if err := a.queue.Reject(id, reviewedBy); err != nil {
		return err
	}
	fmt.Printf("Item %d rejected\n", id)
	return nil
}

func truncateName(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
