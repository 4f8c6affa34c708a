package model

// Session is the per-account state shared between the worker, the logger and
// the console UI. It lives for a single run.
type Session struct {
	AccIdx        int
	Name          string
	Provider      string
	RunID         string
	WAFStatus     string
	BalanceStatus string
	CheckInStatus string
	Balance       string
	LastResult    string
}
