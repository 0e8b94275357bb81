package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/aweist/probables-watcher/models"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestPrintWindow(t *testing.T) {
	rows := []models.Assignment{
		{
			AbbName:         "NYY",
			GameDate:        time.Date(2025, 6, 11, 19, 5, 0, 0, time.UTC),
			OpponentAbbName: "BOS",
			IsHome:          true,
			PitcherName:     "Gerrit Cole",
			PitcherThrows:   "R",
		},
		{
			AbbName:         "SEA",
			GameDate:        time.Date(2025, 6, 12, 22, 10, 0, 0, time.UTC),
			OpponentAbbName: "HOU",
			DH:              1,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printWindow(&buf, rows))

	out := buf.String()
	assert.Contains(t, out, "Gerrit Cole")
	assert.Contains(t, out, "Wed 06/11")
	assert.Contains(t, out, "@HOU")
	assert.Contains(t, out, "TBD")
}

func TestPrintWindow_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printWindow(&buf, nil))
	assert.Contains(t, buf.String(), "No probables stored")
}

func TestPrintRuns(t *testing.T) {
	started := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	runs := []models.Run{
		{ID: "1", StartedAt: started, ScheduledWindow: true, Notified: true, Subject: "2025-06-10 | Report"},
		{ID: "2", StartedAt: started.Add(time.Hour), Manual: true, Error: "smtp down"},
		{ID: "3", StartedAt: started.Add(2 * time.Hour), Fetched: 30},
	}

	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, runs))

	out := buf.String()
	assert.Contains(t, out, "2025-06-10 | Report")
	assert.Contains(t, out, "sent")
	assert.Contains(t, out, "error: smtp down")
	assert.Contains(t, out, "manual")
	assert.Contains(t, out, "quiet")
	assert.Contains(t, out, "poll")
}

func TestRunStatus(t *testing.T) {
	tests := []struct {
		name string
		run  models.Run
		want string
	}{
		{"error wins", models.Run{Error: "boom", Notified: true}, "error: boom"},
		{"notified", models.Run{Notified: true}, "sent"},
		{"quiet", models.Run{}, "quiet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runStatus(tt.run))
		})
	}
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))

	l, err = newLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	_, err = newLogger("loud", false)
	assert.Error(t, err)
}
