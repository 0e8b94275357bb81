package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/aweist/probables-watcher/models"
	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	// RetentionDays is how long a game stays in the table after first pitch.
	RetentionDays = 7
	// WindowDaysBack and WindowDaysAhead bound the comparison window around today.
	WindowDaysBack  = 1
	WindowDaysAhead = 10
)

const selectColumns = `team_id, league, division, short_name, abb_name, game_date, dh,
	away_team_id, home_team_id, is_home, opponent_id, opponent_abb_name,
	pitcher_id, pitcher_name, pitcher_name_slug, pitcher_throws, notes`

const upsertSQL = `
INSERT INTO probables (` + selectColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (team_id, game_date, dh) DO UPDATE SET
    league = excluded.league,
    division = excluded.division,
    short_name = excluded.short_name,
    abb_name = excluded.abb_name,
    away_team_id = excluded.away_team_id,
    home_team_id = excluded.home_team_id,
    is_home = excluded.is_home,
    opponent_id = excluded.opponent_id,
    opponent_abb_name = excluded.opponent_abb_name,
    pitcher_id = excluded.pitcher_id,
    pitcher_name = excluded.pitcher_name,
    pitcher_name_slug = excluded.pitcher_name_slug,
    pitcher_throws = excluded.pitcher_throws,
    notes = excluded.notes;
`

const windowSQL = `SELECT ` + selectColumns + ` FROM probables
WHERE date(game_date) >= date(?) AND date(game_date) <= date(?)
ORDER BY game_date, team_id, dh`

// SnapshotStore keeps the latest known probable starters keyed by team, game date and doubleheader slot.
type SnapshotStore struct {
	db  *sql.DB
	loc *time.Location
}

// SnapshotTx is the single transaction a run prunes, reads and upserts through.
type SnapshotTx struct {
	tx  *sql.Tx
	loc *time.Location
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func NewSnapshotStore(dbPath string, loc *time.Location) (*SnapshotStore, error) {
	if loc == nil {
		loc = time.Local
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", dbPath, err)
	}
	// Limit SQLite to a single open connection to avoid "database is locked" errors
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database %q: %w", dbPath, err)
	}

	return &SnapshotStore{db: db, loc: loc}, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// EnsureSchema brings the table and its unique index up to date. It is a no-op
// when the schema is already current.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	migrationFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("accessing migrations: %w", err)
	}

	source, err := iofs.New(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	// Closing the migrate instance would close the shared *sql.DB, so it is left open.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return ctx.Err()
}

func (s *SnapshotStore) Begin(ctx context.Context) (*SnapshotTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &SnapshotTx{tx: tx, loc: s.loc}, nil
}

// Window returns the stored comparison window outside of any run transaction.
func (s *SnapshotStore) Window(ctx context.Context, now time.Time) ([]models.Assignment, error) {
	return readWindow(ctx, s.db, s.loc, now)
}

func (t *SnapshotTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback is safe to call after Commit.
func (t *SnapshotTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// Prune deletes every game that started more than RetentionDays before now.
func (t *SnapshotTx) Prune(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.In(t.loc).AddDate(0, 0, -RetentionDays).Format(models.GameDateLayout)

	res, err := t.tx.ExecContext(ctx, `DELETE FROM probables WHERE game_date < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning games before %s: %w", cutoff, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned games: %w", err)
	}
	return n, nil
}

// ReadWindow returns every row whose calendar date lies between yesterday and ten days out.
func (t *SnapshotTx) ReadWindow(ctx context.Context, now time.Time) ([]models.Assignment, error) {
	return readWindow(ctx, t.tx, t.loc, now)
}

func (t *SnapshotTx) Upsert(ctx context.Context, a models.Assignment) error {
	_, err := t.tx.ExecContext(ctx, upsertSQL,
		a.TeamID, a.League, a.Division, a.ShortName, a.AbbName,
		a.GameDate.In(t.loc).Format(models.GameDateLayout), a.DH,
		a.AwayTeamID, a.HomeTeamID, boolToInt(a.IsHome), a.OpponentID, a.OpponentAbbName,
		a.PitcherID, a.PitcherName, a.PitcherNameSlug, a.PitcherThrows, a.Notes,
	)
	if err != nil {
		return fmt.Errorf("upserting team %d on %s: %w", a.TeamID, a.GameDate.Format(models.GameDateLayout), err)
	}
	return nil
}

// Delete removes the row with the given natural key, if present.
func (t *SnapshotTx) Delete(ctx context.Context, key models.AssignmentKey) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM probables WHERE team_id = ? AND game_date = ? AND dh = ?`,
		key.TeamID, key.GameDate, key.DH)
	if err != nil {
		return fmt.Errorf("deleting team %d on %s: %w", key.TeamID, key.GameDate, err)
	}
	return nil
}

// WithinHorizon reports whether gameDate falls on or before the last calendar
// day of the window around now, in now's location.
func WithinHorizon(gameDate, now time.Time) bool {
	last := now.AddDate(0, 0, WindowDaysAhead).Format("2006-01-02")
	return gameDate.In(now.Location()).Format("2006-01-02") <= last
}

func readWindow(ctx context.Context, q queryer, loc *time.Location, now time.Time) ([]models.Assignment, error) {
	now = now.In(loc)
	from := now.AddDate(0, 0, -WindowDaysBack).Format("2006-01-02")
	to := now.AddDate(0, 0, WindowDaysAhead).Format("2006-01-02")

	rows, err := q.QueryContext(ctx, windowSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying window %s..%s: %w", from, to, err)
	}
	defer rows.Close()

	assignments := []models.Assignment{}
	for rows.Next() {
		var (
			a        models.Assignment
			gameDate string
		)
		if err := rows.Scan(
			&a.TeamID, &a.League, &a.Division, &a.ShortName, &a.AbbName, &gameDate, &a.DH,
			&a.AwayTeamID, &a.HomeTeamID, &a.IsHome, &a.OpponentID, &a.OpponentAbbName,
			&a.PitcherID, &a.PitcherName, &a.PitcherNameSlug, &a.PitcherThrows, &a.Notes,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		a.GameDate, err = time.ParseInLocation(models.GameDateLayout, gameDate, loc)
		if err != nil {
			return nil, fmt.Errorf("parsing stored game date %q: %w", gameDate, err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return assignments, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
