package models

import (
	"time"
)

// GameDateLayout is the wall-clock layout used by the upstream API and the snapshot table.
const GameDateLayout = "2006-01-02T15:04:05"

// RawAssignment is one record of the upstream probables feed, keyed exactly as the API sends it.
type RawAssignment struct {
	TeamID          FlexInt    `json:"TeamId"`
	League          FlexString `json:"League"`
	Division        FlexString `json:"Division"`
	ShortName       FlexString `json:"ShortName"`
	AbbName         FlexString `json:"AbbName"`
	GameDate        FlexString `json:"GameDate"`
	DH              FlexInt    `json:"dh"`
	AwayTeamID      FlexInt    `json:"AwayTeamId"`
	HomeTeamID      FlexInt    `json:"HomeTeamId"`
	IsHome          FlexBool   `json:"isHome"`
	OpponentID      FlexInt    `json:"OpponentId"`
	OpponentAbbName FlexString `json:"OpponentAbbName"`
	PitcherID       FlexString `json:"teamSPPlayerId"`
	PitcherName     FlexString `json:"teamSPPlayerName"`
	PitcherNameSlug FlexString `json:"teamSPPlayerNameRoute"`
	PitcherThrows   FlexString `json:"Throws"`
	Notes           FlexString `json:"notes"`
}

// Assignment is a team's probable starter for one game.
type Assignment struct {
	TeamID          int       `json:"team_id"`
	League          string    `json:"league"`
	Division        string    `json:"division"`
	ShortName       string    `json:"short_name"`
	AbbName         string    `json:"abb_name"`
	GameDate        time.Time `json:"game_date"`
	DH              int       `json:"dh"`
	AwayTeamID      int       `json:"away_team_id"`
	HomeTeamID      int       `json:"home_team_id"`
	IsHome          bool      `json:"is_home"`
	OpponentID      int       `json:"opponent_id"`
	OpponentAbbName string    `json:"opponent_abb_name"`
	PitcherID       string    `json:"pitcher_id"`
	PitcherName     string    `json:"pitcher_name"`
	PitcherNameSlug string    `json:"pitcher_name_slug"`
	PitcherThrows   string    `json:"pitcher_throws"`
	Notes           string    `json:"notes"`
}

// AssignmentKey is the natural key of an Assignment row.
type AssignmentKey struct {
	TeamID   int
	GameDate string
	DH       int
}

func (a Assignment) Key() AssignmentKey {
	return AssignmentKey{
		TeamID:   a.TeamID,
		GameDate: a.GameDate.Format(GameDateLayout),
		DH:       a.DH,
	}
}

// Opponent returns the opponent abbreviation, prefixed with "@" for road games.
func (a Assignment) Opponent() string {
	if a.IsHome {
		return a.OpponentAbbName
	}
	return "@" + a.OpponentAbbName
}

// Move is a pitcher whose start shifted to a nearby date.
type Move struct {
	PitcherID         string    `json:"pitcher_id"`
	PitcherName       string    `json:"pitcher_name"`
	Team              string    `json:"team"`
	OldDate           time.Time `json:"old_date"`
	OldOpponent       string    `json:"old_opponent"`
	NewDate           time.Time `json:"new_date"`
	NewOpponent       string    `json:"new_opponent"`
	DateUnchanged     bool      `json:"date_unchanged"`
	OpponentUnchanged bool      `json:"opponent_unchanged"`
}

// Diff is the change set between two snapshots.
type Diff struct {
	Added   []Assignment
	Deleted []Assignment
	Moved   []Move
}

func (d Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Deleted) > 0
}

// Run is one ledger entry describing an invocation of the job.
type Run struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	Manual          bool      `json:"manual"`
	Fetched         int       `json:"fetched"`
	Added           int       `json:"added"`
	Deleted         int       `json:"deleted"`
	Moved           int       `json:"moved"`
	ScheduledWindow bool      `json:"scheduled_window"`
	Notified        bool      `json:"notified"`
	Subject         string    `json:"subject,omitempty"`
	Error           string    `json:"error,omitempty"`
}
