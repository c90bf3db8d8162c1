package database

import (
	"sort"
	"sync"
	"time"

	database "gitlab.com/teomiscia/openingbell/database/models"
	"gitlab.com/teomiscia/openingbell/interfaces"
	"gitlab.com/teomiscia/openingbell/models"
)

// MemoryStore keeps sessions in process memory. It backs runs with
// database recording disabled and the test suites, with the same
// idempotency and immutability rules as the MySQL store.
type MemoryStore struct {
	mu             sync.Mutex
	nextSessionID  uint
	nextSnapshotID uint
	sessions       map[uint]*database.Session
	byKey          map[string]uint
	failures       []database.CaptureFailure
	stats          map[string]database.IntradayStat
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[uint]*database.Session{},
		byKey:    map[string]uint{},
		stats:    map[string]database.IntradayStat{},
	}
}

func sessionKey(region string, tradingDay string) string {
	return region + "|" + tradingDay
}

func copySession(s *database.Session) database.Session {
	out := *s
	out.Snapshots = make([]database.InstrumentSnapshot, len(s.Snapshots))
	copy(out.Snapshots, s.Snapshots)
	return out
}

func (ms *MemoryStore) FindSession(region string, tradingDay string) (*database.Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id, ok := ms.byKey[sessionKey(region, tradingDay)]
	if !ok {
		return nil, nil
	}
	session := copySession(ms.sessions[id])
	return &session, nil
}

func (ms *MemoryStore) CreateSession(session *database.Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := sessionKey(session.Region, session.TradingDay)
	if _, taken := ms.byKey[key]; taken {
		return interfaces.ErrDuplicateSession
	}

	ms.nextSessionID++
	session.ID = ms.nextSessionID
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	for i := range session.Snapshots {
		ms.nextSnapshotID++
		session.Snapshots[i].ID = ms.nextSnapshotID
		session.Snapshots[i].SessionID = session.ID
	}

	stored := copySession(session)
	ms.sessions[session.ID] = &stored
	ms.byKey[key] = session.ID
	return nil
}

func (ms *MemoryStore) ResolveSession(sessionID uint, res interfaces.Resolution) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	session, ok := ms.sessions[sessionID]
	if !ok || models.Outcome(session.Outcome) != models.OutcomePending {
		return false, nil
	}
	session.Outcome = string(res.Outcome)
	session.ResolutionPrice = res.Price
	session.ResolutionReason = res.Reason
	resolvedAt := res.At
	session.ResolvedAt = &resolvedAt
	session.UpdatedAt = time.Now()
	return true, nil
}

func (ms *MemoryStore) PendingSessions() ([]database.Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var pending []database.Session
	for _, session := range ms.sessions {
		if models.Outcome(session.Outcome) == models.OutcomePending {
			pending = append(pending, copySession(session))
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}

func (ms *MemoryStore) SetTheoreticalOutcome(snapshotID uint, outcome models.Outcome) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, session := range ms.sessions {
		for i := range session.Snapshots {
			snap := &session.Snapshots[i]
			if snap.ID != snapshotID {
				continue
			}
			if models.Outcome(snap.TheoreticalOutcome) == models.OutcomePending {
				snap.TheoreticalOutcome = string(outcome)
			}
			return nil
		}
	}
	return nil
}

func (ms *MemoryStore) RecordCaptureFailure(region string, tradingDay string, reason string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.failures = append(ms.failures, database.CaptureFailure{
		Region:     region,
		TradingDay: tradingDay,
		Reason:     reason,
	})
	return nil
}

// CaptureFailures returns the recorded audit entries. Not part of the
// store interface; the suites use it to assert on aborted captures.
func (ms *MemoryStore) CaptureFailures() []database.CaptureFailure {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]database.CaptureFailure, len(ms.failures))
	copy(out, ms.failures)
	return out
}

func (ms *MemoryStore) SaveIntradayStats(stats []database.IntradayStat) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, stat := range stats {
		key := stat.Region + "|" + stat.TradingDay + "|" + stat.Symbol
		ms.stats[key] = stat
	}
	return nil
}

// IntradayStats returns the saved summaries, ordered by symbol within
// region and day. Test helper, like CaptureFailures.
func (ms *MemoryStore) IntradayStats() []database.IntradayStat {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var out []database.IntradayStat
	for _, stat := range ms.stats {
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		if out[i].TradingDay != out[j].TradingDay {
			return out[i].TradingDay < out[j].TradingDay
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func (ms *MemoryStore) Sessions(filter interfaces.SessionFilter) ([]database.Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var out []database.Session
	for _, session := range ms.sessions {
		if filter.Region != "" && session.Region != filter.Region {
			continue
		}
		if filter.Outcome != "" && session.Outcome != string(filter.Outcome) {
			continue
		}
		if !filter.From.IsZero() && session.OpenedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !session.OpenedAt.Before(filter.To) {
			continue
		}
		out = append(out, copySession(session))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (ms *MemoryStore) HitRate(region string, since time.Time) (interfaces.HitRateReport, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var report interfaces.HitRateReport
	for _, session := range ms.sessions {
		if region != "" && session.Region != region {
			continue
		}
		if session.OpenedAt.Before(since) {
			continue
		}
		report.Total++
		switch models.Outcome(session.Outcome) {
		case models.OutcomeWorked:
			report.Worked++
		case models.OutcomeDidntWork:
			report.DidntWork++
		case models.OutcomeExpired:
			report.Expired++
		case models.OutcomeNoEntry:
			report.NoEntry++
		case models.OutcomeError:
			report.Errors++
		case models.OutcomePending:
			report.Pending++
		}
	}
	return report, nil
}
