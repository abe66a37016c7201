package domain

import "time"

// DayKeyFormat is the calendar-day key for rollups (date only, no zone).
const DayKeyFormat = "2006-01-02"

// DailyStat is the rollup of login activity for one calendar day. Created
// lazily on the first login of the day and never deleted by the service
// (pruning old days is a retention concern outside this core).
type DailyStat struct {
	Date          string // DayKeyFormat
	TotalLogins   int
	MobileLogins  int
	DesktopLogins int
	UniqueUserIDs []string
}

// DayKey returns the calendar-day key for t rendered in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyFormat)
}
