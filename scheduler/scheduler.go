package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"dns-price-bot/models"
	"dns-price-bot/services"
	"dns-price-bot/storage"
	"dns-price-bot/utils"
)

// ErrCycleInProgress is returned by CheckNow while another cycle is running.
var ErrCycleInProgress = errors.New("a check is already in progress")

type Fetcher interface {
	FetchListing(ctx context.Context) ([]*models.ListingItem, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, snapshot []*models.ListingItem) (*models.ChangeSet, error)
}

// Gate decides whether a scheduled cycle may notify.
type Gate interface {
	ShouldNotify(ctx context.Context, now time.Time) (bool, error)
}

type Subscribers interface {
	All(ctx context.Context) ([]int64, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, changes *models.ChangeSet, subscribers []int64, opts services.DispatchOptions) *models.DeliveryReport
}

// Deps are the collaborators of one cycle. Snapshots is optional.
type Deps struct {
	Fetcher     Fetcher
	Reconciler  Reconciler
	Gate        Gate
	Subscribers Subscribers
	Dispatcher  Dispatcher
	Snapshots   storage.SnapshotWriter
}

type Config struct {
	Interval time.Duration
	Backoff  time.Duration
}

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	default:
		return "idle"
	}
}

// Status is a point-in-time view for status queries.
type Status struct {
	State      string              `json:"state"`
	NextRun    *time.Time          `json:"next_run,omitempty"`
	LastReport *models.CycleReport `json:"last_report,omitempty"`
}

// Scheduler runs fetch -> reconcile -> notify cycles, one at a time.
type Scheduler struct {
	deps   Deps
	cfg    Config
	clock  clockwork.Clock
	logger *utils.Logger

	cycleMu sync.Mutex // held for the whole of a cycle
	state   atomic.Int32

	mu      sync.RWMutex
	last    *models.CycleReport
	nextRun time.Time
}

func New(deps Deps, cfg Config, clock clockwork.Clock, logger *utils.Logger) *Scheduler {
	return &Scheduler{deps: deps, cfg: cfg, clock: clock, logger: logger}
}

// Run starts a cycle immediately, then one every Interval. A failed cycle is retried after
// Backoff. Run returns only when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started: interval %v, backoff %v", s.cfg.Interval, s.cfg.Backoff)
	defer func() {
		s.cycleMu.Lock()
		s.state.Store(int32(StateIdle))
		s.cycleMu.Unlock()
	}()

	for {
		wait, err := s.runScheduled(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("Check failed: %v", err)
		}
		s.logger.Info("Next check in %v", wait)

		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Scheduler stopped")
			return ctx.Err()
		case <-timer.Chan():
		}
	}
}

// runScheduled runs one cycle and, still holding the gate, moves to Sleeping
// with the next run time set.
func (s *Scheduler) runScheduled(ctx context.Context) (time.Duration, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	wait := s.cfg.Interval
	_, err := s.cycle(ctx, models.TriggerScheduled, 0)
	if err != nil {
		wait = s.cfg.Backoff
	}

	next := s.clock.Now().Add(wait)
	s.mu.Lock()
	s.nextRun = next
	s.mu.Unlock()
	s.state.Store(int32(StateSleeping))
	return wait, err
}

// CheckNow runs a cycle for one subscriber, who alone receives the changes it finds.
// Quiet hours do not apply and the periodic timer is left alone.
func (s *Scheduler) CheckNow(ctx context.Context, requester int64) (*models.CycleReport, error) {
	if !s.cycleMu.TryLock() {
		s.logger.Warn("Manual check by %d rejected: cycle in progress", requester)
		return nil, ErrCycleInProgress
	}
	defer s.cycleMu.Unlock()
	s.logger.Info("Manual check requested by %d", requester)
	return s.cycle(ctx, models.TriggerManual, requester)
}

func (s *Scheduler) cycle(ctx context.Context, trigger models.Trigger, requester int64) (report *models.CycleReport, err error) {
	prev := s.state.Swap(int32(StateRunning))
	report = &models.CycleReport{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: s.clock.Now(),
	}
	defer func() {
		report.FinishedAt = s.clock.Now()
		if err != nil {
			report.Error = err.Error()
		}
		s.mu.Lock()
		s.last = report
		s.mu.Unlock()
		s.state.Store(prev)
	}()

	items, err := s.deps.Fetcher.FetchListing(ctx)
	if err != nil {
		return report, err
	}
	report.Fetched = len(items)

	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.WriteSnapshot(items); err != nil {
			s.logger.Warn("Failed to export snapshot: %v", err)
		}
	}

	changes, err := s.deps.Reconciler.Reconcile(ctx, items)
	if err != nil {
		return report, err
	}
	report.Changes = changes
	report.Added = len(changes.Added)
	report.Updated = len(changes.Updated)
	report.Removed = len(changes.Removed)

	if !changes.HasChanges() {
		s.logger.Info("No changes detected")
		return report, nil
	}

	now := s.clock.Now()
	var (
		recipients []int64
		opts       = services.DispatchOptions{At: now}
	)
	if trigger == models.TriggerManual {
		recipients = []int64{requester}
	} else {
		ok, gerr := s.deps.Gate.ShouldNotify(ctx, now)
		if gerr != nil {
			s.logger.Warn("Failed to read quiet hours state, sending anyway: %v", gerr)
			ok = true
		}
		if !ok {
			report.Suppressed = true
			s.logger.Info("Quiet hours: %d new and %d removed items not sent", report.Added, report.Removed)
			return report, nil
		}
		recipients, err = s.deps.Subscribers.All(ctx)
		if err != nil {
			return report, err
		}
		opts.Summary = true
		s.logger.Info("Sending automatic notifications to %d users", len(recipients))
	}

	delivery := s.deps.Dispatcher.Dispatch(ctx, changes, recipients, opts)
	report.Delivery = delivery
	report.Sent = delivery.Sent()
	report.Failed = len(delivery.Failed())
	return report, nil
}

// State returns the current state of the scheduler.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// LastReport returns the report of the most recent cycle, or nil.
func (s *Scheduler) LastReport() *models.CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{State: s.State().String(), LastReport: s.last}
	if !s.nextRun.IsZero() {
		next := s.nextRun
		st.NextRun = &next
	}
	return st
}
