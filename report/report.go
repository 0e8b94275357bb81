// Package report selects and renders the sections of the probables email.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/aweist/probables-watcher/models"
)

type SectionKind string

const (
	SectionGrid    SectionKind = "grid"
	SectionMoved   SectionKind = "moved"
	SectionAdded   SectionKind = "added"
	SectionDeleted SectionKind = "deleted"
)

const (
	tbd       = "TBD"
	unchanged = "-"
)

type Section struct {
	Kind  SectionKind
	Title string
	Grid  *Grid
	Moves []MoveRow
	Days  []DayTable
}

// Grid is one row per team, grouped by division, with a column per game date.
type Grid struct {
	Dates  []time.Time
	Groups []DivisionGroup
}

type DivisionGroup struct {
	Name  string
	Teams []TeamRow
}

type TeamRow struct {
	Team  string
	Cells []string
}

type DayTable struct {
	Date time.Time
	Rows []AssignmentRow
}

type AssignmentRow struct {
	Name     string
	Team     string
	Opponent string
}

type MoveRow struct {
	Pitcher     string
	Team        string
	OldDate     string
	OldOpponent string
	NewDate     string
	NewOpponent string
}

// Select picks the sections to render: the full grid always comes first, then
// Moved, Added and Deleted, each left out when empty.
func Select(diff models.Diff, after []models.Assignment) []Section {
	sections := []Section{{Kind: SectionGrid, Title: "Probables Grid", Grid: BuildGrid(after)}}

	if len(diff.Moved) > 0 {
		sections = append(sections, Section{Kind: SectionMoved, Title: "Moved", Moves: moveRows(diff.Moved)})
	}
	if len(diff.Added) > 0 {
		sections = append(sections, Section{Kind: SectionAdded, Title: "Added", Days: dayTables(diff.Added)})
	}
	if len(diff.Deleted) > 0 {
		sections = append(sections, Section{Kind: SectionDeleted, Title: "Deleted", Days: dayTables(diff.Deleted)})
	}
	return sections
}

func BuildGrid(rows []models.Assignment) *Grid {
	grid := &Grid{}

	dateSet := make(map[time.Time]bool)
	byTeam := make(map[int][]models.Assignment)
	for _, r := range rows {
		day := calendarDay(r.GameDate)
		if !dateSet[day] {
			dateSet[day] = true
			grid.Dates = append(grid.Dates, day)
		}
		byTeam[r.TeamID] = append(byTeam[r.TeamID], r)
	}
	sort.Slice(grid.Dates, func(i, j int) bool { return grid.Dates[i].Before(grid.Dates[j]) })

	for _, d := range Divisions {
		group := DivisionGroup{Name: d.Name}
		for _, id := range d.TeamIDs {
			if games, ok := byTeam[id]; ok {
				group.Teams = append(group.Teams, teamRow(games, grid.Dates))
			}
		}
		if len(group.Teams) > 0 {
			grid.Groups = append(grid.Groups, group)
		}
	}

	// Teams missing from the static table are grouped by their own division text.
	others := make(map[string][]TeamRow)
	for id, games := range byTeam {
		if _, known := divisionOf[id]; known {
			continue
		}
		name := strings.TrimSpace(games[0].League + " " + games[0].Division)
		if name == "" {
			name = "Other"
		}
		others[name] = append(others[name], teamRow(games, grid.Dates))
	}
	names := make([]string, 0, len(others))
	for name := range others {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		teams := others[name]
		sort.Slice(teams, func(i, j int) bool { return teams[i].Team < teams[j].Team })
		grid.Groups = append(grid.Groups, DivisionGroup{Name: name, Teams: teams})
	}

	return grid
}

func teamRow(games []models.Assignment, dates []time.Time) TeamRow {
	sorted := append([]models.Assignment(nil), games...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].GameDate.Equal(sorted[j].GameDate) {
			return sorted[i].GameDate.Before(sorted[j].GameDate)
		}
		return sorted[i].DH < sorted[j].DH
	})

	row := TeamRow{Team: sorted[0].AbbName, Cells: make([]string, len(dates))}
	for i, day := range dates {
		var parts []string
		for _, g := range sorted {
			if calendarDay(g.GameDate).Equal(day) {
				parts = append(parts, cellText(g))
			}
		}
		row.Cells[i] = strings.Join(parts, " / ")
	}
	return row
}

func cellText(a models.Assignment) string {
	name := a.PitcherName
	if name == "" {
		name = tbd
	}
	return name + " (" + a.Opponent() + ")"
}

func dayTables(rows []models.Assignment) []DayTable {
	var tables []DayTable
	index := make(map[time.Time]int)

	for _, r := range rows {
		day := calendarDay(r.GameDate)
		pos, ok := index[day]
		if !ok {
			pos = len(tables)
			index[day] = pos
			tables = append(tables, DayTable{Date: day})
		}
		name := r.PitcherName
		if name == "" {
			name = tbd
		}
		tables[pos].Rows = append(tables[pos].Rows, AssignmentRow{
			Name:     name,
			Team:     r.AbbName,
			Opponent: r.Opponent(),
		})
	}

	sort.SliceStable(tables, func(i, j int) bool { return tables[i].Date.Before(tables[j].Date) })
	return tables
}

func moveRows(moves []models.Move) []MoveRow {
	rows := make([]MoveRow, 0, len(moves))
	for _, m := range moves {
		row := MoveRow{
			Pitcher:     m.PitcherName,
			Team:        m.Team,
			OldDate:     m.OldDate.Format("Mon 01/02 15:04"),
			OldOpponent: m.OldOpponent,
			NewDate:     m.NewDate.Format("Mon 01/02 15:04"),
			NewOpponent: m.NewOpponent,
		}
		if m.DateUnchanged {
			row.NewDate = unchanged + " " + m.NewDate.Format("15:04")
		}
		if m.OpponentUnchanged {
			row.NewOpponent = unchanged
		}
		rows = append(rows, row)
	}
	return rows
}

// calendarDay keys a game by its local date. UTC midnight keeps map keys comparable.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
