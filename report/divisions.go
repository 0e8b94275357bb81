package report

// Division is a fixed grouping of teams for the probables grid.
type Division struct {
	Name    string
	TeamIDs []int
}

// Divisions lists MLB divisions in display order, teams ordered alphabetically
// by abbreviation within each.
var Divisions = []Division{
	{Name: "AL East", TeamIDs: []int{110, 111, 147, 139, 141}},    // BAL BOS NYY TB TOR
	{Name: "AL Central", TeamIDs: []int{145, 114, 116, 118, 142}}, // CWS CLE DET KC MIN
	{Name: "AL West", TeamIDs: []int{133, 117, 108, 136, 140}},    // ATH HOU LAA SEA TEX
	{Name: "NL East", TeamIDs: []int{144, 146, 121, 143, 120}},    // ATL MIA NYM PHI WSH
	{Name: "NL Central", TeamIDs: []int{112, 113, 158, 134, 138}}, // CHC CIN MIL PIT STL
	{Name: "NL West", TeamIDs: []int{109, 115, 119, 135, 137}},    // ARI COL LAD SD SF
}

var divisionOf = func() map[int]int {
	m := make(map[int]int)
	for i, d := range Divisions {
		for _, id := range d.TeamIDs {
			m[id] = i
		}
	}
	return m
}()
