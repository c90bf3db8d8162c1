package interfaces

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	database "gitlab.com/teomiscia/openingbell/database/models"
	"gitlab.com/teomiscia/openingbell/models"
)

// ErrDuplicateSession reports a capture that found the (region,
// trading day) key already taken. Callers treat it as the session
// having been captured before, not as a failure.
var ErrDuplicateSession = errors.New("session already captured for region and trading day")

// Resolution is one grading verdict for a pending session.
type Resolution struct {
	Outcome models.Outcome
	Price   decimal.NullDecimal
	Reason  string
	At      time.Time
}

// SessionFilter narrows history queries. Zero-valued fields match
// everything.
type SessionFilter struct {
	Region  string
	Outcome models.Outcome
	From    time.Time
	To      time.Time
}

// HitRateReport counts graded sessions by outcome.
type HitRateReport struct {
	Total     int64
	Worked    int64
	DidntWork int64
	Expired   int64
	NoEntry   int64
	Errors    int64
	Pending   int64
}

// Rate is the share of decided brackets that reached their target.
func (r HitRateReport) Rate() float64 {
	decided := r.Worked + r.DidntWork
	if decided == 0 {
		return 0
	}
	return float64(r.Worked) / float64(decided)
}

// SessionStore persists captured sessions and their grading history.
type SessionStore interface {
	// FindSession returns the session for the key, or nil when none
	// has been captured.
	FindSession(region string, tradingDay string) (*database.Session, error)
	// CreateSession inserts a session with its snapshots atomically.
	// It returns ErrDuplicateSession when the key is already taken.
	CreateSession(session *database.Session) error
	// ResolveSession applies a verdict to a still-pending session.
	// It reports false when the session was already terminal, which
	// callers must treat as losing a benign race.
	ResolveSession(sessionID uint, res Resolution) (bool, error)
	// PendingSessions lists sessions awaiting grading, snapshots
	// preloaded.
	PendingSessions() ([]database.Session, error)
	// SetTheoreticalOutcome grades one snapshot's paper bracket.
	SetTheoreticalOutcome(snapshotID uint, outcome models.Outcome) error
	RecordCaptureFailure(region string, tradingDay string, reason string) error
	SaveIntradayStats(stats []database.IntradayStat) error
	Sessions(filter SessionFilter) ([]database.Session, error)
	HitRate(region string, since time.Time) (HitRateReport, error)
}
