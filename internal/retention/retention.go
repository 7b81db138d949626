package retention

import "time"

// DateFormat is the canonical bucket date layout used throughout the store.
const DateFormat = "2006-01-02"

// IsRetained reports whether a unix timestamp falls inside the retained
// window: the calendar date of ts (process-local timezone) must equal now's
// date or now's date minus one day. There is no other retention rule.
func IsRetained(ts float64, now time.Time) bool {
	d := time.Unix(int64(ts), 0)
	if sameDate(d, now) {
		return true
	}
	return sameDate(d, now.AddDate(0, 0, -1))
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Window is the set of calendar dates currently eligible for retrieval.
type Window struct {
	Today     string
	Yesterday string
}

// At computes the retention window for the given wall-clock time.
func At(now time.Time) Window {
	return Window{
		Today:     now.Format(DateFormat),
		Yesterday: now.AddDate(0, 0, -1).Format(DateFormat),
	}
}

// Dates returns the window's dates, newest first.
func (w Window) Dates() []string {
	return []string{w.Today, w.Yesterday}
}

// Contains reports whether a formatted bucket date is inside the window.
func (w Window) Contains(date string) bool {
	return date == w.Today || date == w.Yesterday
}
