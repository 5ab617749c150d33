package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corpintel/edgargraph/internal/backfill"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Batch insider-data backfill across companies with M&A signals",
}

var backfillStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the backfill over every company missing insider data",
	Long: `Finds companies that filed M&A-signal 8-Ks but have no insider
transactions in the graph, then scans their Form 4 filings in priority
order. Progress is checkpointed, so an interrupted run resumes where it
left off. Ctrl-C stops gracefully after the current company.`,
	RunE: runBackfillStart,
}

var backfillStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backfill progress and remaining work",
	RunE:  runBackfillStatus,
}

var backfillStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Gracefully stop a running backfill",
	RunE:  runBackfillStop,
}

var backfillResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear backfill checkpoints so the next run starts from scratch",
	RunE:  runBackfillReset,
}

func init() {
	backfillCmd.AddCommand(backfillStartCmd)
	backfillCmd.AddCommand(backfillStatusCmd)
	backfillCmd.AddCommand(backfillStopCmd)
	backfillCmd.AddCommand(backfillResetCmd)
}

func pidFilePath() string {
	return filepath.Join(filepath.Dir(cfg.Backfill.CheckpointPath), "backfill.pid")
}

func runBackfillStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	checkpoint, err := backfill.OpenCheckpoint(cfg.Backfill.CheckpointPath)
	if err != nil {
		return err
	}
	defer checkpoint.Close()

	scheduler := backfill.NewScheduler(a.queries, a.orchestrator, checkpoint, cfg.Backfill, logger)

	receipt, err := scheduler.Start(ctx)
	if err != nil {
		return err
	}
	switch receipt.Status {
	case "no_work":
		fmt.Println("✅ No companies need backfilling")
		return nil
	case "started":
		fmt.Printf("Backfill started: %d companies", receipt.BatchSize)
		if len(receipt.PriorityBreakdown) > 0 {
			var parts []string
			for _, tier := range []string{"high", "medium", "low"} {
				if n := receipt.PriorityBreakdown[tier]; n > 0 {
					parts = append(parts, fmt.Sprintf("%s=%d", tier, n))
				}
			}
			fmt.Printf(" (%s)", strings.Join(parts, ", "))
		}
		fmt.Println()
	}

	// Record the pid so `backfill stop` in another terminal can signal us.
	pidFile := pidFilePath()
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		logger.WithError(err).Warn("Failed to write pid file")
	}
	defer os.Remove(pidFile)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		fmt.Println("\nStopping after current company...")
		scheduler.Stop()
	}()

	scheduler.Wait()

	state := scheduler.Status()
	fmt.Printf("\nBackfill %s: %d/%d companies scanned", state.Status, state.CompaniesScanned, state.TotalCompanies)
	if state.CompaniesSkipped > 0 {
		fmt.Printf(" (%d already done)", state.CompaniesSkipped)
	}
	fmt.Println()
	if len(state.Errors) > 0 {
		fmt.Printf("Failures (%d):\n", len(state.Errors))
		for _, e := range state.Errors {
			fmt.Printf("  ❌ %s\n", e)
		}
	}
	if state.LastError != "" {
		return fmt.Errorf("backfill failed: %s", state.LastError)
	}
	return nil
}

func runBackfillStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	work, err := a.queries.CompaniesMissingInsiderData(ctx)
	if err != nil {
		return err
	}

	checkpoint, err := backfill.OpenCheckpoint(cfg.Backfill.CheckpointPath)
	if err != nil {
		return err
	}
	defer checkpoint.Close()

	done, err := checkpoint.Completed()
	if err != nil {
		return err
	}

	remaining := 0
	for _, company := range work {
		isDone, err := checkpoint.IsDone(company.CIK)
		if err != nil {
			return err
		}
		if !isDone {
			remaining++
		}
	}

	running := "no"
	if pid, err := os.ReadFile(pidFilePath()); err == nil {
		running = fmt.Sprintf("yes (pid %s)", strings.TrimSpace(string(pid)))
	}

	fmt.Printf("Backfill running:     %s\n", running)
	fmt.Printf("Companies completed:  %d\n", len(done))
	fmt.Printf("Companies remaining:  %d\n", remaining)
	return nil
}

func runBackfillStop(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		fmt.Println("No backfill appears to be running")
		return nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("corrupt pid file: %w", err)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal backfill process %d: %w", pid, err)
	}
	fmt.Printf("Sent stop signal to backfill (pid %d); it will finish the current company\n", pid)
	return nil
}

func runBackfillReset(cmd *cobra.Command, args []string) error {
	checkpoint, err := backfill.OpenCheckpoint(cfg.Backfill.CheckpointPath)
	if err != nil {
		return err
	}
	defer checkpoint.Close()

	if err := checkpoint.Reset(); err != nil {
		return err
	}
	fmt.Println("✅ Backfill checkpoints cleared")
	return nil
}
