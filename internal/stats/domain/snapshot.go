package domain

import "time"

// Snapshot is the point-in-time result of a stats query: who is online now,
// plus today's rollup. "Today" fields are zero when no rollup row exists yet.
type Snapshot struct {
	CurrentOnline    int       `json:"currentOnline"`
	CurrentMobile    int       `json:"currentMobile"`
	CurrentDesktop   int       `json:"currentDesktop"`
	TodayLogins      int       `json:"todayLogins"`
	TodayMobile      int       `json:"todayMobile"`
	TodayDesktop     int       `json:"todayDesktop"`
	TodayUniqueUsers int       `json:"todayUniqueUsers"`
	Date             string    `json:"date"`
	GeneratedAt      time.Time `json:"updatedAt"`
}
