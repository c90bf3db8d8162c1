package models

import "time"

// RegionStatus define market region open state
type RegionStatus string

const (
	RegionStatusOpen   RegionStatus = "OPEN"
	RegionStatusClosed RegionStatus = "CLOSED"
)

// Region is one tradable market region with its calendar identity and
// capture configuration.
type Region struct {
	ID                 string
	Name               string
	Timezone           string
	TradedSymbol       string
	Active             bool
	CaptureEnabled     bool
	OpenCaptureEnabled bool
	// EvaluationWindow zero means the engine default applies.
	EvaluationWindow time.Duration
}

// Location resolves the region timezone.
func (r Region) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

// TradingDay formats ts as the region-local calendar day key.
func (r Region) TradingDay(ts time.Time) string {
	loc, err := r.Location()
	if err != nil {
		loc = time.UTC
	}
	return ts.In(loc).Format("2006-01-02")
}

// RegionTransition is one observed open/close edge.
type RegionTransition struct {
	RegionID  string
	NewStatus RegionStatus
	Timestamp time.Time
}
