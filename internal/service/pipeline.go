package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"debtboard/internal/domain"

	"github.com/google/uuid"
)

const (
	DetailedSnapshotName = "detailed_debts.json"
	SummarySnapshotName  = "summary_debts.json"

	refreshStatusKey = "refresh:last"
)

// Refresh run failure kinds. Each of them aborts the run and leaves the
// previously persisted snapshots untouched.
var (
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrUpstreamAuth      = errors.New("upstream authentication failed")
	ErrUpstreamFetch     = errors.New("upstream fetch failed")
	ErrPageLimitExceeded = errors.New("upstream page limit exceeded")
	ErrPersist           = errors.New("snapshot persist failed")
)

type DebtSource interface {
	Authenticate(ctx context.Context) (string, error)
	ListDebts(ctx context.Context, token string, page, limit int) ([]domain.DebtRecord, error)
}

// SnapshotStore holds whole-blob snapshots with an atomic-replace contract:
// a Get concurrent with a Put sees either the old or the new payload.
type SnapshotStore interface {
	Put(ctx context.Context, name string, payload []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

type NotesCounter interface {
	CountByCustomer(ctx context.Context) (map[string]int, error)
}

type RefreshNotifier interface {
	NotifyRefreshComplete(ctx context.Context, runID string, records, customers int) error
	NotifyRefreshFailed(ctx context.Context, runID string, errMsg string) error
}

type StatusCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RunStatus describes the outcome of one refresh run.
type RunStatus struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Records    int       `json:"records"`
	Customers  int       `json:"customers"`
	Error      string    `json:"error,omitempty"`
}

// PipelineService recomputes both debt snapshots from upstream state:
// fetch, classify, aggregate, enrich with note counts, persist.
type PipelineService struct {
	source DebtSource
	notes  NotesCounter
	store  SnapshotStore
	status StatusCache
	ws     RefreshNotifier

	pageLimit int
	maxPages  int

	now func() time.Time

	running atomic.Bool
}

func NewPipelineService(
	source DebtSource,
	notes NotesCounter,
	store SnapshotStore,
	status StatusCache,
	ws RefreshNotifier,
	pageLimit int,
	maxPages int,
) *PipelineService {
	if pageLimit <= 0 {
		pageLimit = 500
	}
	if maxPages <= 0 {
		maxPages = 200
	}
	return &PipelineService{
		source:    source,
		notes:     notes,
		store:     store,
		status:    status,
		ws:        ws,
		pageLimit: pageLimit,
		maxPages:  maxPages,
		now:       time.Now,
	}
}

// Run executes one refresh. Overlapping invocations are skipped, not queued:
// the scheduled run and a manual trigger must never write the same snapshot
// files concurrently.
func (s *PipelineService) Run(ctx context.Context) (*RunStatus, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer s.running.Store(false)

	status := &RunStatus{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
	}

	log.Printf("[REFRESH] run %s started", status.RunID)

	records, err := s.fetchAll(ctx)
	if err != nil {
		s.finish(ctx, status, err)
		return status, err
	}
	status.Records = len(records)
	log.Printf("[REFRESH] run %s fetched %d records", status.RunID, len(records))

	today := midnight(s.now())

	detailed := make([]domain.DetailedDebt, 0, len(records))
	for _, rec := range records {
		detailed = append(detailed, buildDetailed(rec, today))
	}

	summary := summarize(records)
	s.enrich(ctx, summary)
	status.Customers = len(summary)

	if err := s.persist(ctx, detailed, summary); err != nil {
		s.finish(ctx, status, err)
		return status, err
	}

	s.finish(ctx, status, nil)
	log.Printf("[REFRESH] run %s complete: %d records, %d customers in summary",
		status.RunID, status.Records, status.Customers)

	return status, nil
}

func (s *PipelineService) fetchAll(ctx context.Context) ([]domain.DebtRecord, error) {
	token, err := s.source.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}

	var all []domain.DebtRecord
	for page := 1; ; page++ {
		if page > s.maxPages {
			return nil, fmt.Errorf("%w: still receiving records after %d pages", ErrPageLimitExceeded, s.maxPages)
		}

		items, err := s.source.ListDebts(ctx, token, page, s.pageLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUpstreamFetch, page, err)
		}
		if len(items) == 0 {
			break
		}

		all = append(all, items...)
		log.Printf("[REFRESH] page %d loaded, %d records total", page, len(all))
	}

	return all, nil
}

// enrich fills note counts into the summary. A failing notes lookup degrades
// to zero counts rather than aborting the run.
func (s *PipelineService) enrich(ctx context.Context, summary []domain.CustomerSummary) {
	if s.notes == nil {
		return
	}

	counts, err := s.notes.CountByCustomer(ctx)
	if err != nil {
		log.Printf("[REFRESH] notes count lookup failed, defaulting to 0: %v", err)
		return
	}

	for i := range summary {
		summary[i].NotesCount = counts[summary[i].CustomerID]
	}
}

func (s *PipelineService) persist(ctx context.Context, detailed []domain.DetailedDebt, summary []domain.CustomerSummary) error {
	detailedJSON, err := json.Marshal(detailed)
	if err != nil {
		return fmt.Errorf("%w: marshal detailed: %v", ErrPersist, err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: marshal summary: %v", ErrPersist, err)
	}

	if err := s.store.Put(ctx, DetailedSnapshotName, detailedJSON); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.store.Put(ctx, SummarySnapshotName, summaryJSON); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	return nil
}

// finish records the run outcome in the status cache and notifies connected
// dashboards. Both are best-effort.
func (s *PipelineService) finish(ctx context.Context, status *RunStatus, runErr error) {
	status.FinishedAt = s.now()
	if runErr != nil {
		status.Error = runErr.Error()
		log.Printf("[REFRESH] run %s aborted, previous snapshots kept: %v", status.RunID, runErr)
	}

	if s.status != nil {
		if data, err := json.Marshal(status); err == nil {
			if err := s.status.Set(ctx, refreshStatusKey, string(data), 0); err != nil {
				log.Printf("[REFRESH] status cache write failed: %v", err)
			}
		}
	}

	if s.ws == nil {
		return
	}
	if runErr != nil {
		_ = s.ws.NotifyRefreshFailed(ctx, status.RunID, runErr.Error())
	} else {
		_ = s.ws.NotifyRefreshComplete(ctx, status.RunID, status.Records, status.Customers)
	}
}

// LastStatus returns the most recent run outcome, if any was recorded.
func (s *PipelineService) LastStatus(ctx context.Context) (*RunStatus, error) {
	if s.status == nil {
		return nil, errors.New("status cache not configured")
	}

	data, err := s.status.Get(ctx, refreshStatusKey)
	if err != nil {
		return nil, errors.New("no refresh has been recorded yet")
	}

	var status RunStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to parse refresh status: %w", err)
	}

	return &status, nil
}
