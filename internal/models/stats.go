package models

// StatsOverview aggregates platform totals for the stats dashboard.
type StatsOverview struct {
	Users         int64 `json:"users"`
	Videos        int64 `json:"videos"`
	Views         int64 `json:"views"`
	Likes         int64 `json:"likes"`
	Comments      int64 `json:"comments"`
	Subscriptions int64 `json:"subscriptions"`
}

// DailyCount is the number of events on a calendar day (YYYY-MM-DD).
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}
