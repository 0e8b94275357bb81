package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aweist/probables-watcher/models"
	"github.com/aweist/probables-watcher/notifier"
	"github.com/aweist/probables-watcher/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	records []models.RawAssignment
	err     error
	calls   int
}

func (f *fakeFetcher) FetchProbables(ctx context.Context) ([]models.RawAssignment, error) {
	f.calls++
	return f.records, f.err
}

type fakeNotifier struct {
	subjects []string
	bodies   []string
	err      error
}

func (n *fakeNotifier) Send(ctx context.Context, subject, htmlBody string) error {
	if n.err != nil {
		return n.err
	}
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, htmlBody)
	return nil
}

func (n *fakeNotifier) GetType() string { return "fake" }

func raw(teamID int, abb, gameDate, pitcherID string) models.RawAssignment {
	return models.RawAssignment{
		TeamID:          models.FlexInt(teamID),
		AbbName:         models.FlexString(abb),
		GameDate:        models.FlexString(gameDate),
		IsHome:          true,
		OpponentAbbName: "BOS",
		PitcherID:       models.FlexString(pitcherID),
		PitcherName:     models.FlexString("Pitcher " + pitcherID),
	}
}

type harness struct {
	store    *storage.SnapshotStore
	ledger   *storage.RunLedger
	fetcher  *fakeFetcher
	notifier *fakeNotifier
	now      time.Time
	runner   *Runner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewSnapshotStore(filepath.Join(dir, "probables.db"), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ledger, err := storage.NewRunLedger(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	h := &harness{
		store:    store,
		ledger:   ledger,
		fetcher:  &fakeFetcher{},
		notifier: &fakeNotifier{},
		now:      time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
	}
	h.runner = NewRunner(RunnerConfig{
		Fetcher:   h.fetcher,
		Store:     store,
		Ledger:    ledger,
		Notifiers: []notifier.Notifier{h.notifier},
		Location:  time.UTC,
		Now:       func() time.Time { return h.now },
	})
	return h
}

func TestRunner_FirstRunReportsAdditions(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []models.RawAssignment{raw(147, "NYY", "2024-05-02T19:05:00", "P1")}

	result, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Len(t, result.Diff.Added, 1)
	assert.True(t, result.Decision.ShouldNotify)
	assert.Equal(t, []string{"2024-05-01 | Update"}, h.notifier.subjects)
	assert.Contains(t, h.notifier.bodies[0], "<h2>Added - 2024-05-02 (Thursday)</h2>")
	assert.True(t, result.Run.Notified)

	window, err := h.store.Window(context.Background(), h.now)
	require.NoError(t, err)
	assert.Len(t, window, 1)

	runs, err := h.ledger.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Added)
	assert.Equal(t, "2024-05-01 | Update", runs[0].Subject)
}

func TestRunner_UnchangedRunOutsideWindowIsQuiet(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []models.RawAssignment{raw(147, "NYY", "2024-05-02T19:05:00", "P1")}

	_, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)

	result, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, result.Decision.ShouldNotify)
	assert.Len(t, h.notifier.subjects, 1, "second identical run sends nothing")

	runs, err := h.ledger.GetAllRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.False(t, runs[0].Notified)
}

func TestRunner_MorningReportWithoutChanges(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []models.RawAssignment{raw(147, "NYY", "2024-05-02T19:05:00", "P1")}
	_, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)

	h.now = time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	result, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.False(t, result.Decision.HasChanges)
	assert.Equal(t, "2024-05-02 | Report", h.notifier.subjects[len(h.notifier.subjects)-1])
}

func TestRunner_MoveDoesNotNotify(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []models.RawAssignment{raw(147, "NYY", "2024-05-02T19:05:00", "P1")}
	_, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)

	h.fetcher.records = []models.RawAssignment{raw(147, "NYY", "2024-05-03T19:05:00", "P1")}
	result, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Len(t, result.Diff.Moved, 1)
	assert.False(t, result.Decision.ShouldNotify)

	_, err = h.runner.Run(context.Background(), true)
	require.NoError(t, err)
	last := h.notifier.bodies[len(h.notifier.bodies)-1]
	assert.Contains(t, last, "Probables Grid")
}

func TestRunner_FetchFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []models.RawAssignment{raw(147, "NYY", "2024-04-20T19:05:00", "old")}
	h.now = time.Date(2024, 4, 20, 14, 0, 0, 0, time.UTC)
	_, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)

	h.now = time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	h.fetcher.err = errors.New("connection refused")
	_, err = h.runner.Run(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching probables")

	// the prune ran inside the failed transaction, so the expired row is still there
	window, err := h.store.Window(context.Background(), time.Date(2024, 4, 20, 14, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, window, 1)
	assert.Len(t, h.notifier.subjects, 1)
}

func TestRunner_ParseFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []models.RawAssignment{raw(147, "NYY", "not a date", "P1")}

	_, err := h.runner.Run(context.Background(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing probables")
	assert.Empty(t, h.notifier.subjects)
}

func TestRunner_NotificationFailureIsFatalAndRecorded(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []models.RawAssignment{raw(147, "NYY", "2024-05-02T19:05:00", "P1")}
	h.notifier.err = errors.New("smtp down")

	result, err := h.runner.Run(context.Background(), false)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Run.Notified)

	runs, err := h.ledger.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "smtp down")

	// persistence is not undone by a failed email
	window, err := h.store.Window(context.Background(), h.now)
	require.NoError(t, err)
	assert.Len(t, window, 1)
}

func TestRunner_WithdrawnRowReportedOnce(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []models.RawAssignment{
		raw(147, "NYY", "2024-05-02T19:05:00", "P1"),
		raw(111, "BOS", "2024-05-02T19:05:00", "P2"),
	}
	_, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)

	h.fetcher.records = h.fetcher.records[:1]
	result, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, result.Diff.Deleted, 1)
	assert.Equal(t, "BOS", result.Diff.Deleted[0].AbbName)

	result, err = h.runner.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, result.Diff.Deleted)
	assert.False(t, result.Decision.ShouldNotify)
}

func TestRunner_StartBeyondWindowIsAddedOnceWhenItEntersIt(t *testing.T) {
	h := newHarness(t)
	h.fetcher.records = []models.RawAssignment{
		raw(147, "NYY", "2024-05-02T19:05:00", "P1"),
		raw(111, "BOS", "2024-05-13T19:10:00", "P2"),
	}

	result, err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, result.Diff.Added, 1)
	assert.Equal(t, "P1", result.Diff.Added[0].PitcherID)
	assert.Equal(t, 2, result.Run.Fetched)
	assert.Contains(t, h.notifier.bodies[0], "Pitcher P2", "the grid shows the full feed")

	result, err = h.runner.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, result.Diff.Added, "a start beyond the window is not re-added every run")
	assert.False(t, result.Decision.ShouldNotify)

	h.now = time.Date(2024, 5, 3, 14, 0, 0, 0, time.UTC)
	result, err = h.runner.Run(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, result.Diff.Added, 1)
	assert.Equal(t, "P2", result.Diff.Added[0].PitcherID)
	assert.Equal(t, "2024-05-03 | Update", h.notifier.subjects[len(h.notifier.subjects)-1])

	result, err = h.runner.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, result.Diff.Added)
	assert.Len(t, h.notifier.subjects, 2)
}
