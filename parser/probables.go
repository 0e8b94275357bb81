package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/aweist/probables-watcher/models"
)

type ProbablesParser struct {
	loc *time.Location
}

func NewProbablesParser(loc *time.Location) *ProbablesParser {
	if loc == nil {
		loc = time.Local
	}
	return &ProbablesParser{loc: loc}
}

// ParseAssignments converts upstream records into assignments. Records sharing a
// natural key collapse to the last one seen, matching how the store upserts them.
func (p *ProbablesParser) ParseAssignments(records []models.RawAssignment) ([]models.Assignment, error) {
	assignments := []models.Assignment{}
	index := make(map[models.AssignmentKey]int)

	for i, r := range records {
		a, err := p.toAssignment(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		key := a.Key()
		if pos, ok := index[key]; ok {
			assignments[pos] = a
			continue
		}
		index[key] = len(assignments)
		assignments = append(assignments, a)
	}

	return assignments, nil
}

func (p *ProbablesParser) toAssignment(r models.RawAssignment) (models.Assignment, error) {
	if r.TeamID == 0 {
		return models.Assignment{}, fmt.Errorf("missing TeamId")
	}

	gameDate, err := p.parseGameDate(string(r.GameDate))
	if err != nil {
		return models.Assignment{}, err
	}

	return models.Assignment{
		TeamID:          int(r.TeamID),
		League:          strings.TrimSpace(string(r.League)),
		Division:        strings.TrimSpace(string(r.Division)),
		ShortName:       strings.TrimSpace(string(r.ShortName)),
		AbbName:         strings.TrimSpace(string(r.AbbName)),
		GameDate:        gameDate,
		DH:              int(r.DH),
		AwayTeamID:      int(r.AwayTeamID),
		HomeTeamID:      int(r.HomeTeamID),
		IsHome:          bool(r.IsHome),
		OpponentID:      int(r.OpponentID),
		OpponentAbbName: strings.TrimSpace(string(r.OpponentAbbName)),
		PitcherID:       strings.TrimSpace(string(r.PitcherID)),
		PitcherName:     strings.TrimSpace(string(r.PitcherName)),
		PitcherNameSlug: strings.TrimSpace(string(r.PitcherNameSlug)),
		PitcherThrows:   strings.TrimSpace(string(r.PitcherThrows)),
		Notes:           string(r.Notes),
	}, nil
}

// parseGameDate accepts the upstream wall-clock layout, tolerating fractional
// seconds and a trailing offset, and pins the result to the parser's location.
func (p *ProbablesParser) parseGameDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing GameDate")
	}

	if t, err := time.ParseInLocation(models.GameDateLayout, s, p.loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, p.loc); err == nil {
		return t.Truncate(time.Second), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(p.loc).Truncate(time.Second), nil
	}

	return time.Time{}, fmt.Errorf("invalid GameDate %q", s)
}
