package backfill

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/corpintel/edgargraph/internal/config"
	"github.com/corpintel/edgargraph/internal/errors"
	"github.com/corpintel/edgargraph/internal/graph"
	"github.com/corpintel/edgargraph/internal/pipeline"
)

// Job states. A job moves idle → in_progress → completed or failed;
// there are no other transitions.
const (
	StatusIdle       = "idle"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrAlreadyRunning is returned by Start while a job is in progress. A
// second start is rejected, never queued.
var ErrAlreadyRunning = errors.New(errors.CategoryConflict, "backfill already running")

// State is a point-in-time snapshot of the job, safe for callers to
// retain.
type State struct {
	Status           string
	TotalCompanies   int
	CompaniesScanned int
	CompaniesSkipped int
	Errors           []string
	LastError        string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// StartReceipt is what a start request returns.
type StartReceipt struct {
	Status            string // "started", "already_running", "no_work"
	BatchSize         int
	PriorityBreakdown map[string]int // tier → company count
}

// WorkSource yields the companies a backfill should cover, ordered by
// descending signal priority. graph.Queries implements it.
type WorkSource interface {
	CompaniesMissingInsiderData(ctx context.Context) ([]graph.CompanyWork, error)
}

// Processor runs the per-company scan. The pipeline orchestrator
// implements it.
type Processor interface {
	ScanInsiderTrades(ctx context.Context, cik string, limit int) (*pipeline.InsiderScan, error)
}

// Scheduler runs the insider-trade scan across every company that has
// M&A signals but no insider data yet. One job at a time; state is
// owned by the scheduler and exposed only as snapshots.
type Scheduler struct {
	work       WorkSource
	proc       Processor
	checkpoint *Checkpoint
	cfg        config.BackfillConfig
	logger     *logrus.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(work WorkSource, proc Processor, checkpoint *Checkpoint, cfg config.BackfillConfig, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Scheduler{
		work:       work,
		proc:       proc,
		checkpoint: checkpoint,
		cfg:        cfg,
		logger:     logger,
		state:      State{Status: StatusIdle},
	}
}

// Start discovers the work batch and launches the job in the
// background. Companies already checkpointed by an earlier run are
// skipped up front.
func (s *Scheduler) Start(ctx context.Context) (*StartReceipt, error) {
	s.mu.Lock()
	if s.state.Status == StatusInProgress {
		s.mu.Unlock()
		return &StartReceipt{Status: "already_running"}, ErrAlreadyRunning
	}
	s.mu.Unlock()

	all, err := s.work.CompaniesMissingInsiderData(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]graph.CompanyWork, 0, len(all))
	skipped := 0
	for _, company := range all {
		if s.checkpoint != nil {
			done, err := s.checkpoint.IsDone(company.CIK)
			if err != nil {
				return nil, err
			}
			if done {
				skipped++
				continue
			}
		}
		batch = append(batch, company)
	}

	if len(batch) == 0 {
		s.logger.WithField("skipped", skipped).Info("Backfill found no work")
		return &StartReceipt{Status: "no_work"}, nil
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.state.Status == StatusInProgress {
		s.mu.Unlock()
		cancel()
		return &StartReceipt{Status: "already_running"}, ErrAlreadyRunning
	}
	s.state = State{
		Status:           StatusInProgress,
		TotalCompanies:   len(batch),
		CompaniesSkipped: skipped,
		StartedAt:        time.Now().UTC(),
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"companies":   len(batch),
		"skipped":     skipped,
		"concurrency": s.cfg.Concurrency,
	}).Info("Backfill started")

	go s.run(runCtx, batch, s.done)

	return &StartReceipt{
		Status:            "started",
		BatchSize:         len(batch),
		PriorityBreakdown: priorityBreakdown(batch),
	}, nil
}

func (s *Scheduler) run(ctx context.Context, batch []graph.CompanyWork, done chan struct{}) {
	defer close(done)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, company := range batch {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := s.scanCompany(gctx, company); err != nil {
				// Fatal errors abort the whole job; a single company's
				// failure is recorded and skipped.
				if errors.IsFatal(err) {
					return err
				}
				s.recordFailure(company.CIK, err)
			}
			if delay := s.cfg.CompanyDelay; delay > 0 {
				select {
				case <-gctx.Done():
				case <-time.After(delay):
				}
			}
			return nil
		})
	}

	err := g.Wait()

	s.mu.Lock()
	s.state.FinishedAt = time.Now().UTC()
	if err != nil {
		s.state.Status = StatusFailed
		s.state.LastError = err.Error()
	} else {
		s.state.Status = StatusCompleted
	}
	final := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"status":   final.Status,
		"scanned":  final.CompaniesScanned,
		"total":    final.TotalCompanies,
		"failures": len(final.Errors),
		"duration": final.FinishedAt.Sub(final.StartedAt).String(),
	}).Info("Backfill finished")
}

func (s *Scheduler) scanCompany(ctx context.Context, company graph.CompanyWork) error {
	if ctx.Err() != nil {
		return nil
	}

	scan, err := s.proc.ScanInsiderTrades(ctx, company.CIK, s.cfg.FilingsPerCompany)
	if err != nil {
		return err
	}

	if s.checkpoint != nil {
		if err := s.checkpoint.MarkDone(company.CIK); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state.CompaniesScanned++
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"cik":          company.CIK,
		"company":      company.Name,
		"transactions": scan.TransactionsStored,
		"signal":       scan.SignalLevel,
	}).Info("Backfill company scanned")
	return nil
}

func (s *Scheduler) recordFailure(cik string, err error) {
	s.logger.WithFields(logrus.Fields{
		"cik":   cik,
		"error": err.Error(),
	}).Warn("Backfill company failed, skipping")

	s.mu.Lock()
	s.state.Errors = append(s.state.Errors, cik+": "+err.Error())
	s.mu.Unlock()
}

// Status returns a consistent snapshot without blocking the job.
func (s *Scheduler) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scheduler) snapshotLocked() State {
	snap := s.state
	snap.Errors = append([]string(nil), s.state.Errors...)
	return snap
}

// Stop requests graceful cancellation: companies already started run to
// completion, no new ones begin. Returns false when no job is running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusInProgress || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Wait blocks until the current job finishes. Returns immediately when
// none was started.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func priorityBreakdown(batch []graph.CompanyWork) map[string]int {
	breakdown := make(map[string]int)
	for _, company := range batch {
		switch company.Priority {
		case 1:
			breakdown["high"]++
		case 2:
			breakdown["medium"]++
		default:
			breakdown["low"]++
		}
	}
	return breakdown
}
