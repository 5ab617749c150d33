package backfill

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpintel/edgargraph/internal/config"
	"github.com/corpintel/edgargraph/internal/errors"
	"github.com/corpintel/edgargraph/internal/graph"
	"github.com/corpintel/edgargraph/internal/pipeline"
)

type fakeWork struct {
	companies []graph.CompanyWork
}

func (w *fakeWork) CompaniesMissingInsiderData(context.Context) ([]graph.CompanyWork, error) {
	return w.companies, nil
}

type fakeProcessor struct {
	mu      sync.Mutex
	scanned []string
	errs    map[string]error

	// started receives each CIK as its scan begins; block, when set,
	// holds every scan until it is closed.
	started chan string
	block   chan struct{}
}

func (p *fakeProcessor) ScanInsiderTrades(ctx context.Context, cik string, _ int) (*pipeline.InsiderScan, error) {
	if p.started != nil {
		p.started <- cik
	}
	if p.block != nil {
		<-p.block
	}
	if err := p.errs[cik]; err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.scanned = append(p.scanned, cik)
	p.mu.Unlock()
	return &pipeline.InsiderScan{CIK: cik, TransactionsStored: 1, SignalLevel: "none"}, nil
}

func (p *fakeProcessor) scannedCIKs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.scanned...)
}

func testCheckpoint(t *testing.T) *Checkpoint {
	t.Helper()
	cp, err := OpenCheckpoint(filepath.Join(t.TempDir(), "backfill.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cp.Close() })
	return cp
}

func workBatch() []graph.CompanyWork {
	return []graph.CompanyWork{
		{CIK: "0000000001", Name: "Alpha Corp", Priority: 1},
		{CIK: "0000000002", Name: "Beta Inc", Priority: 2},
		{CIK: "0000000003", Name: "Gamma LLC", Priority: 3},
	}
}

func testConfig() config.BackfillConfig {
	return config.BackfillConfig{Concurrency: 2, FilingsPerCompany: 10}
}

func TestSchedulerRunsBatch(t *testing.T) {
	proc := &fakeProcessor{}
	cp := testCheckpoint(t)
	s := NewScheduler(&fakeWork{companies: workBatch()}, proc, cp, testConfig(), nil)

	receipt, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "started", receipt.Status)
	assert.Equal(t, 3, receipt.BatchSize)
	assert.Equal(t, map[string]int{"high": 1, "medium": 1, "low": 1}, receipt.PriorityBreakdown)

	s.Wait()

	state := s.Status()
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, 3, state.CompaniesScanned)
	assert.Equal(t, 3, state.TotalCompanies)
	assert.Empty(t, state.Errors)
	assert.ElementsMatch(t, []string{"0000000001", "0000000002", "0000000003"}, proc.scannedCIKs())

	done, err := cp.Completed()
	require.NoError(t, err)
	assert.Len(t, done, 3)
}

func TestSchedulerRejectsConcurrentStart(t *testing.T) {
	proc := &fakeProcessor{
		started: make(chan string, 3),
		block:   make(chan struct{}),
	}
	s := NewScheduler(&fakeWork{companies: workBatch()}, proc, testCheckpoint(t), testConfig(), nil)

	receipt, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, "started", receipt.Status)
	<-proc.started

	second, err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, "already_running", second.Status)

	// The rejected start must not reset progress counters.
	state := s.Status()
	assert.Equal(t, StatusInProgress, state.Status)
	assert.Equal(t, 3, state.TotalCompanies)

	close(proc.block)
	s.Wait()
	assert.Equal(t, StatusCompleted, s.Status().Status)
}

func TestSchedulerSkipsCheckpointedCompanies(t *testing.T) {
	cp := testCheckpoint(t)
	require.NoError(t, cp.MarkDone("0000000002"))

	proc := &fakeProcessor{}
	s := NewScheduler(&fakeWork{companies: workBatch()}, proc, cp, testConfig(), nil)

	receipt, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.BatchSize)

	s.Wait()

	state := s.Status()
	assert.Equal(t, 2, state.CompaniesScanned)
	assert.Equal(t, 1, state.CompaniesSkipped)
	assert.NotContains(t, proc.scannedCIKs(), "0000000002")
}

func TestSchedulerNoWork(t *testing.T) {
	cp := testCheckpoint(t)
	for _, company := range workBatch() {
		require.NoError(t, cp.MarkDone(company.CIK))
	}

	s := NewScheduler(&fakeWork{companies: workBatch()}, &fakeProcessor{}, cp, testConfig(), nil)
	receipt, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "no_work", receipt.Status)
	assert.Equal(t, StatusIdle, s.Status().Status)
}

func TestSchedulerIsolatesCompanyFailures(t *testing.T) {
	proc := &fakeProcessor{
		errs: map[string]error{"0000000002": errors.Transientf(nil, "edgar returned 503")},
	}
	cp := testCheckpoint(t)
	s := NewScheduler(&fakeWork{companies: workBatch()}, proc, cp, testConfig(), nil)

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	s.Wait()

	state := s.Status()
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, 2, state.CompaniesScanned)
	require.Len(t, state.Errors, 1)
	assert.Contains(t, state.Errors[0], "0000000002")

	// Failed companies stay unscanned so a later run retries them.
	done, err := cp.Completed()
	require.NoError(t, err)
	assert.NotContains(t, done, "0000000002")
}

func TestSchedulerFatalErrorFailsJob(t *testing.T) {
	proc := &fakeProcessor{
		errs: map[string]error{"0000000001": errors.Storef(nil, "graph store unreachable")},
	}
	cfg := testConfig()
	cfg.Concurrency = 1
	s := NewScheduler(&fakeWork{companies: workBatch()}, proc, testCheckpoint(t), cfg, nil)

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	s.Wait()

	state := s.Status()
	assert.Equal(t, StatusFailed, state.Status)
	assert.Contains(t, state.LastError, "graph store unreachable")
}

func TestSchedulerGracefulStop(t *testing.T) {
	proc := &fakeProcessor{
		started: make(chan string, 3),
		block:   make(chan struct{}),
	}
	cfg := testConfig()
	cfg.Concurrency = 1
	s := NewScheduler(&fakeWork{companies: workBatch()}, proc, testCheckpoint(t), cfg, nil)

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	<-proc.started

	assert.True(t, s.Stop())
	close(proc.block)
	s.Wait()

	// The in-flight company finishes; the rest never start.
	state := s.Status()
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, 1, state.CompaniesScanned)
}

func TestSchedulerStopWhenIdle(t *testing.T) {
	s := NewScheduler(&fakeWork{}, &fakeProcessor{}, nil, testConfig(), nil)
	assert.False(t, s.Stop())
}

func TestCheckpointRoundTrip(t *testing.T) {
	cp := testCheckpoint(t)

	done, err := cp.IsDone("0000320193")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, cp.MarkDone("0000320193"))
	done, err = cp.IsDone("0000320193")
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, cp.Reset())
	done, err = cp.IsDone("0000320193")
	require.NoError(t, err)
	assert.False(t, done)
}
