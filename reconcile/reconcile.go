// Package reconcile computes what changed between two snapshots of probable starters.
//
// Added and Deleted are keyed on (team, game date, doubleheader slot). Moved is
// keyed on the pitcher: the same pitcher listed on a different date within
// MoveWindowDays of the old one.
package reconcile

import (
	"sort"
	"time"

	"github.com/aweist/probables-watcher/models"
)

// MoveWindowDays is the exclusive upper bound on the day gap of a move. Larger
// gaps are unrelated reassignments, not moves.
const MoveWindowDays = 5

// Reconcile diffs the stored window against the freshly fetched set. Rows dated
// before the start of now's calendar day are never reported as added or deleted.
func Reconcile(before, after []models.Assignment, now time.Time) models.Diff {
	beforeKeys := indexByKey(before)
	afterKeys := indexByKey(after)

	startOfDay := truncateDay(now)
	moved, movedKeys := findMoves(before, after, startOfDay)

	diff := models.Diff{
		Added:   []models.Assignment{},
		Deleted: []models.Assignment{},
		Moved:   moved,
	}

	for _, a := range after {
		key := a.Key()
		if _, ok := beforeKeys[key]; ok {
			continue
		}
		if a.GameDate.Before(startOfDay) || movedKeys.after[key] {
			continue
		}
		diff.Added = append(diff.Added, a)
	}

	for _, b := range before {
		key := b.Key()
		if _, ok := afterKeys[key]; ok {
			continue
		}
		if b.GameDate.Before(startOfDay) || movedKeys.before[key] {
			continue
		}
		diff.Deleted = append(diff.Deleted, b)
	}

	sortAssignments(diff.Added)
	sortAssignments(diff.Deleted)
	return diff
}

// Withdrawn returns the rows of before that the fetch no longer lists and that
// are not yet in the past. These are removed from the store once reported.
func Withdrawn(before, after []models.Assignment, now time.Time) []models.Assignment {
	afterKeys := indexByKey(after)
	startOfDay := truncateDay(now)

	withdrawn := []models.Assignment{}
	for _, b := range before {
		if _, ok := afterKeys[b.Key()]; ok {
			continue
		}
		if b.GameDate.Before(startOfDay) {
			continue
		}
		withdrawn = append(withdrawn, b)
	}
	return withdrawn
}

type moveEndpoints struct {
	before map[models.AssignmentKey]bool
	after  map[models.AssignmentKey]bool
}

// findMoves pairs each pitcher's upcoming rows across snapshots. Starts dated
// before startOfDay have already been played and never pair. Dates present on
// both sides are unchanged starts; what remains is paired closest gap first and
// kept when the gap is under MoveWindowDays.
func findMoves(before, after []models.Assignment, startOfDay time.Time) ([]models.Move, moveEndpoints) {
	endpoints := moveEndpoints{
		before: make(map[models.AssignmentKey]bool),
		after:  make(map[models.AssignmentKey]bool),
	}
	moves := []models.Move{}

	beforeByPitcher := groupByPitcher(before, startOfDay)
	afterByPitcher := groupByPitcher(after, startOfDay)

	for pitcherID, olds := range beforeByPitcher {
		news, ok := afterByPitcher[pitcherID]
		if !ok {
			continue
		}

		olds, news = dropUnchanged(olds, news)
		for _, p := range pairNearest(olds, news) {
			old, cur := olds[p.old], news[p.cur]

			moves = append(moves, models.Move{
				PitcherID:         pitcherID,
				PitcherName:       pitcherName(old, cur),
				Team:              cur.AbbName,
				OldDate:           old.GameDate,
				OldOpponent:       old.Opponent(),
				NewDate:           cur.GameDate,
				NewOpponent:       cur.Opponent(),
				DateUnchanged:     dayGap(old.GameDate, cur.GameDate) == 0,
				OpponentUnchanged: old.Opponent() == cur.Opponent(),
			})
			endpoints.before[old.Key()] = true
			endpoints.after[cur.Key()] = true
		}
	}

	sort.SliceStable(moves, func(i, j int) bool {
		if !moves[i].OldDate.Equal(moves[j].OldDate) {
			return moves[i].OldDate.Before(moves[j].OldDate)
		}
		return moves[i].Team < moves[j].Team
	})
	return moves, endpoints
}

type pair struct {
	old, cur int
	gap      int
}

// pairNearest matches old and new starts one to one, smallest day gap first.
// Pairs at or beyond MoveWindowDays are never formed.
func pairNearest(olds, news []models.Assignment) []pair {
	var candidates []pair
	for i, o := range olds {
		for j, n := range news {
			gap := absDays(dayGap(o.GameDate, n.GameDate))
			if gap >= MoveWindowDays {
				continue
			}
			candidates = append(candidates, pair{old: i, cur: j, gap: gap})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.gap != cb.gap {
			return ca.gap < cb.gap
		}
		if !olds[ca.old].GameDate.Equal(olds[cb.old].GameDate) {
			return olds[ca.old].GameDate.Before(olds[cb.old].GameDate)
		}
		return news[ca.cur].GameDate.Before(news[cb.cur].GameDate)
	})

	usedOld := make(map[int]bool)
	usedNew := make(map[int]bool)
	var pairs []pair
	for _, c := range candidates {
		if usedOld[c.old] || usedNew[c.cur] {
			continue
		}
		usedOld[c.old] = true
		usedNew[c.cur] = true
		pairs = append(pairs, c)
	}
	return pairs
}

// dropUnchanged removes starts whose exact game time appears on both sides.
func dropUnchanged(olds, news []models.Assignment) ([]models.Assignment, []models.Assignment) {
	matched := make(map[int]bool)
	var keptOld []models.Assignment

	for _, o := range olds {
		found := false
		for j, n := range news {
			if !matched[j] && o.GameDate.Equal(n.GameDate) {
				matched[j] = true
				found = true
				break
			}
		}
		if !found {
			keptOld = append(keptOld, o)
		}
	}

	var keptNew []models.Assignment
	for j, n := range news {
		if !matched[j] {
			keptNew = append(keptNew, n)
		}
	}
	return keptOld, keptNew
}

func groupByPitcher(rows []models.Assignment, startOfDay time.Time) map[string][]models.Assignment {
	grouped := make(map[string][]models.Assignment)
	for _, r := range rows {
		if r.PitcherID == "" || r.GameDate.Before(startOfDay) {
			continue
		}
		grouped[r.PitcherID] = append(grouped[r.PitcherID], r)
	}
	for id := range grouped {
		sortAssignments(grouped[id])
	}
	return grouped
}

func indexByKey(rows []models.Assignment) map[models.AssignmentKey]models.Assignment {
	index := make(map[models.AssignmentKey]models.Assignment, len(rows))
	for _, r := range rows {
		index[r.Key()] = r
	}
	return index
}

func pitcherName(old, cur models.Assignment) string {
	if cur.PitcherName != "" {
		return cur.PitcherName
	}
	return old.PitcherName
}

func sortAssignments(rows []models.Assignment) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.GameDate.Equal(b.GameDate) {
			return a.GameDate.Before(b.GameDate)
		}
		if a.AbbName != b.AbbName {
			return a.AbbName < b.AbbName
		}
		return a.DH < b.DH
	})
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayGap counts calendar days from a to b, ignoring the time of day and DST.
func dayGap(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func absDays(d int) int {
	if d < 0 {
		return -d
	}
	return d
}
