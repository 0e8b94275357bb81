package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/aweist/probables-watcher/models"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	sentColor   = color.New(color.FgGreen)
	quietColor  = color.New(color.FgHiBlack)
	manualColor = color.New(color.FgCyan)
)

func printWindow(w io.Writer, rows []models.Assignment) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No probables stored in the current window.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Date", "Time", "Team", "Opp", "DH", "Pitcher", "Throws"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, a := range rows {
		pitcher := a.PitcherName
		if pitcher == "" {
			pitcher = "TBD"
		}
		data = append(data, []string{
			a.GameDate.Format("Mon 01/02"),
			a.GameDate.Format("15:04"),
			a.AbbName,
			a.Opponent(),
			strconv.Itoa(a.DH),
			pitcher,
			a.PitcherThrows,
		})
	}

	if err := table.Bulk(data); err != nil {
		return fmt.Errorf("building table: %w", err)
	}
	return table.Render()
}

func printRuns(w io.Writer, runs []models.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Started", "Mode", "Fetched", "Added", "Deleted", "Moved", "Status", "Subject"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, r := range runs {
		data = append(data, []string{
			r.StartedAt.Format("2006-01-02 15:04:05"),
			runMode(r),
			strconv.Itoa(r.Fetched),
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Deleted),
			strconv.Itoa(r.Moved),
			runStatus(r),
			r.Subject,
		})
	}

	if err := table.Bulk(data); err != nil {
		return fmt.Errorf("building table: %w", err)
	}
	return table.Render()
}

func runMode(r models.Run) string {
	switch {
	case r.Manual:
		return manualColor.Sprint("manual")
	case r.ScheduledWindow:
		return "window"
	default:
		return "poll"
	}
}

func runStatus(r models.Run) string {
	switch {
	case r.Error != "":
		return errorColor.Sprint("error: " + r.Error)
	case r.Notified:
		return sentColor.Sprint("sent")
	default:
		return quietColor.Sprint("quiet")
	}
}
