package model

import "time"

// PlaceholderPrinterName is the value a fresh config ships with.
const PlaceholderPrinterName = "YOUR_PRINTER_NAME_HERE"

// Station is the presence record of one till/printer pairing.
type Station struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	PrinterName string       `json:"printerName"`
	Online      bool         `json:"online"`
	LastPing    time.Time    `json:"lastPing"`
	TempDir     string       `json:"tempDir,omitempty"`
	Stats       StationStats `json:"stats"`
}

type StationStats struct {
	TotalPrinted  int        `json:"totalPrinted"`
	TodayPrinted  int        `json:"todayPrinted"`
	LastPrintedAt *time.Time `json:"lastPrintedAt"`
}

// Stale reports whether the station claims to be online but has not pinged
// within maxAge. Such a station is presumed dead.
func (s Station) Stale(now time.Time, maxAge time.Duration) bool {
	return s.Online && now.Sub(s.LastPing) > maxAge
}

// CountPrinted folds one successful print at `at` into the stats. The daily
// counter restarts on the first print of a new calendar day in at's location.
func (st StationStats) CountPrinted(at time.Time) StationStats {
	if st.LastPrintedAt == nil || !sameDay(*st.LastPrintedAt, at) {
		st.TodayPrinted = 0
	}
	st.TotalPrinted++
	st.TodayPrinted++
	t := at
	st.LastPrintedAt = &t
	return st
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
