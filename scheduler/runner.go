package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aweist/probables-watcher/models"
	"github.com/aweist/probables-watcher/notifier"
	"github.com/aweist/probables-watcher/parser"
	"github.com/aweist/probables-watcher/reconcile"
	"github.com/aweist/probables-watcher/report"
	"github.com/aweist/probables-watcher/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fetcher retrieves the full current list of probable starters.
type Fetcher interface {
	FetchProbables(ctx context.Context) ([]models.RawAssignment, error)
}

// Ledger keeps an audit trail of runs.
type Ledger interface {
	RecordRun(run models.Run) error
	CleanupOldRuns(before time.Time) (int, error)
}

type Runner struct {
	fetcher   Fetcher
	store     *storage.SnapshotStore
	ledger    Ledger
	parser    *parser.ProbablesParser
	notifiers []notifier.Notifier
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

type RunnerConfig struct {
	Fetcher   Fetcher
	Store     *storage.SnapshotStore
	Ledger    Ledger
	Notifiers []notifier.Notifier
	Location  *time.Location
	Now       func() time.Time
	Logger    *zap.Logger
}

// Result summarizes one completed run.
type Result struct {
	Run      models.Run
	Diff     models.Diff
	Decision Decision
}

func NewRunner(config RunnerConfig) *Runner {
	loc := config.Location
	if loc == nil {
		loc = time.Local
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		fetcher:   config.Fetcher,
		store:     config.Store,
		ledger:    config.Ledger,
		parser:    parser.NewProbablesParser(loc),
		notifiers: config.Notifiers,
		loc:       loc,
		now:       now,
		logger:    logger,
	}
}

// Run executes the job once: refresh the snapshot, diff it, and notify if the gate allows.
func (r *Runner) Run(ctx context.Context, manual bool) (*Result, error) {
	now := r.now().In(r.loc)
	run := models.Run{
		ID:        uuid.NewString(),
		StartedAt: now,
		Manual:    manual,
	}
	logger := r.logger.With(zap.String("run_id", run.ID), zap.Bool("manual", manual))
	logger.Info("Starting probables run", zap.Time("now", now))

	if err := r.store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	before, after, diff, err := r.refresh(ctx, now, logger)
	if err != nil {
		return nil, err
	}
	run.Fetched = len(after)
	run.Added = len(diff.Added)
	run.Deleted = len(diff.Deleted)
	run.Moved = len(diff.Moved)
	logger.Info("Reconciled snapshot",
		zap.Int("before", len(before)),
		zap.Int("after", len(after)),
		zap.Int("added", run.Added),
		zap.Int("deleted", run.Deleted),
		zap.Int("moved", run.Moved))

	decision := Decide(now, diff, manual)
	run.ScheduledWindow = decision.ScheduledWindow
	result := &Result{Run: run, Diff: diff, Decision: decision}

	if !decision.ShouldNotify {
		logger.Info("No changes outside the report window, skipping notification")
		return result, r.record(&result.Run, logger)
	}

	result.Run.Subject = decision.Subject(now)
	if err := r.notify(ctx, result.Run.Subject, diff, after, logger); err != nil {
		result.Run.Error = err.Error()
		if recErr := r.record(&result.Run, logger); recErr != nil {
			logger.Error("Error recording failed run", zap.Error(recErr))
		}
		return result, err
	}
	result.Run.Notified = len(r.notifiers) > 0

	return result, r.record(&result.Run, logger)
}

// refresh prunes, reads the prior window, fetches, upserts and reconciles inside
// a single transaction. Rows the feed withdrew are dropped once they have been
// diffed. Any failure rolls the whole step back. The returned after is the full
// fetched set, beyond-window rows included.
func (r *Runner) refresh(ctx context.Context, now time.Time, logger *zap.Logger) ([]models.Assignment, []models.Assignment, models.Diff, error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, nil, models.Diff{}, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil {
			logger.Warn("Rollback failed", zap.Error(err))
		}
	}()

	pruned, err := tx.Prune(ctx, now)
	if err != nil {
		return nil, nil, models.Diff{}, err
	}
	logger.Debug("Pruned expired games", zap.Int64("rows", pruned))

	before, err := tx.ReadWindow(ctx, now)
	if err != nil {
		return nil, nil, models.Diff{}, err
	}

	records, err := r.fetcher.FetchProbables(ctx)
	if err != nil {
		return nil, nil, models.Diff{}, fmt.Errorf("fetching probables: %w", err)
	}

	after, err := r.parser.ParseAssignments(records)
	if err != nil {
		return nil, nil, models.Diff{}, fmt.Errorf("parsing probables: %w", err)
	}

	// Starts beyond the window are held back until they enter it, so they are
	// compared against a stored window that can contain them.
	var tracked []models.Assignment
	for _, a := range after {
		if storage.WithinHorizon(a.GameDate, now) {
			tracked = append(tracked, a)
		}
	}

	for _, a := range tracked {
		if err := tx.Upsert(ctx, a); err != nil {
			return nil, nil, models.Diff{}, err
		}
	}

	diff := reconcile.Reconcile(before, tracked, now)

	withdrawn := reconcile.Withdrawn(before, tracked, now)
	for _, w := range withdrawn {
		if err := tx.Delete(ctx, w.Key()); err != nil {
			return nil, nil, models.Diff{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, models.Diff{}, err
	}
	logger.Info("Probables updated",
		zap.Int("records", len(records)),
		zap.Int("rows", len(after)),
		zap.Int("beyond_window", len(after)-len(tracked)),
		zap.Int("withdrawn", len(withdrawn)))

	return before, after, diff, nil
}

func (r *Runner) notify(ctx context.Context, subject string, diff models.Diff, after []models.Assignment, logger *zap.Logger) error {
	if len(r.notifiers) == 0 {
		logger.Warn("No notifiers configured, report not delivered", zap.String("subject", subject))
		return nil
	}

	body, err := report.Render(report.Select(diff, after))
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	for _, n := range r.notifiers {
		if err := n.Send(ctx, subject, body); err != nil {
			return fmt.Errorf("sending %s notification: %w", n.GetType(), err)
		}
		logger.Info("Sent notification", zap.String("type", n.GetType()), zap.String("subject", subject))
	}
	return nil
}

// record writes the run to the ledger and trims entries older than a month.
func (r *Runner) record(run *models.Run, logger *zap.Logger) error {
	if r.ledger == nil {
		return nil
	}
	if err := r.ledger.RecordRun(*run); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	n, err := r.ledger.CleanupOldRuns(run.StartedAt.AddDate(0, -1, 0))
	if err != nil {
		return fmt.Errorf("cleaning up old runs: %w", err)
	}
	if n > 0 {
		logger.Debug("Cleaned up old runs", zap.Int("runs", n))
	}
	return nil
}
