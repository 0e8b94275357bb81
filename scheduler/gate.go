package scheduler

import (
	"time"

	"github.com/aweist/probables-watcher/models"
)

const (
	FramingUpdate = "Update"
	FramingReport = "Report"
)

// The daily report goes out between 07:00 and 09:00, both ends inclusive.
const (
	reportWindowStart = 7 * time.Hour
	reportWindowEnd   = 9 * time.Hour
)

// Decision is the outcome of the scheduling gate for one run.
type Decision struct {
	ScheduledWindow bool
	HasChanges      bool
	ShouldNotify    bool
	Framing         string
}

// Decide reports whether this run should send an email. Moves alone never
// trigger one.
func Decide(now time.Time, diff models.Diff, manual bool) Decision {
	d := Decision{
		ScheduledWindow: manual || inReportWindow(now),
		HasChanges:      diff.HasChanges(),
	}
	d.ShouldNotify = d.ScheduledWindow || d.HasChanges

	d.Framing = FramingReport
	if d.HasChanges {
		d.Framing = FramingUpdate
	}
	return d
}

// Subject formats the email subject line, e.g. "2024-05-01 | Update".
func (d Decision) Subject(now time.Time) string {
	return now.Format("2006-01-02") + " | " + d.Framing
}

func inReportWindow(now time.Time) bool {
	// wall-clock offset, so DST transition days still open at 07:00
	sinceMidnight := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second +
		time.Duration(now.Nanosecond())
	return sinceMidnight >= reportWindowStart && sinceMidnight <= reportWindowEnd
}
