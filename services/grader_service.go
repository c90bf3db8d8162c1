package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	database "gitlab.com/teomiscia/openingbell/database/models"
	"gitlab.com/teomiscia/openingbell/helpers"
	"gitlab.com/teomiscia/openingbell/interfaces"
	"gitlab.com/teomiscia/openingbell/metrics"
	"gitlab.com/teomiscia/openingbell/models"
)

// OutcomeGraderService runs one grading goroutine per pending session.
// A grader polls the traded instrument until the target or stop is
// touched, the window expires, or the feed proves unusable. Graders
// outlive region closes and stop only on verdict or engine shutdown;
// whatever is still pending at shutdown is re-attached on the next
// boot.
type OutcomeGraderService struct {
	store    interfaces.SessionStore
	provider interfaces.QuoteProvider

	pollInterval    time.Duration
	maxReadFailures int

	mu          sync.Mutex
	graders     map[uint]context.CancelFunc
	theoretical map[uint]context.CancelFunc
	wg          sync.WaitGroup
}

func NewOutcomeGraderService(store interfaces.SessionStore, provider interfaces.QuoteProvider,
	pollInterval time.Duration, maxReadFailures int) *OutcomeGraderService {
	return &OutcomeGraderService{
		store:           store,
		provider:        provider,
		pollInterval:    pollInterval,
		maxReadFailures: maxReadFailures,
		graders:         map[uint]context.CancelFunc{},
		theoretical:     map[uint]context.CancelFunc{},
	}
}

// StartGrader spawns the grading loop for a pending session. Starting
// an already-graded or already-watched session is a no-op.
func (ogs *OutcomeGraderService) StartGrader(ctx context.Context, session database.Session) {
	if models.Outcome(session.Outcome) != models.OutcomePending {
		return
	}

	ogs.mu.Lock()
	if _, running := ogs.graders[session.ID]; running {
		ogs.mu.Unlock()
		return
	}
	graderCtx, cancel := context.WithCancel(ctx)
	ogs.graders[session.ID] = cancel
	ogs.wg.Add(1)
	ogs.mu.Unlock()

	metrics.ActiveGraders.Inc()
	go ogs.grade(graderCtx, session)
}

// ReattachPending restarts graders for sessions that were still
// pending when the previous process stopped.
func (ogs *OutcomeGraderService) ReattachPending(ctx context.Context) error {
	pending, err := ogs.store.PendingSessions()
	if err != nil {
		return err
	}
	for _, session := range pending {
		helpers.Logger.Infoln(fmt.Sprintf("Re-attaching grader to pending session %d (%s %s)",
			session.ID, session.Region, session.TradingDay))
		ogs.StartGrader(ctx, session)
		ogs.StartTheoreticalGrader(ctx, session)
	}
	return nil
}

// Running reports the number of live grading goroutines.
func (ogs *OutcomeGraderService) Running() int {
	ogs.mu.Lock()
	defer ogs.mu.Unlock()
	return len(ogs.graders) + len(ogs.theoretical)
}

// Wait blocks until every grader has returned or the timeout elapses.
func (ogs *OutcomeGraderService) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		ogs.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (ogs *OutcomeGraderService) grade(ctx context.Context, session database.Session) {
	defer func() {
		if r := recover(); r != nil {
			helpers.Logger.Errorln(fmt.Sprintf("Recovered. Error grading session %d (%s %s): %v",
				session.ID, session.Region, session.TradingDay, r))
			ogs.resolve(session, interfaces.Resolution{
				Outcome: models.OutcomeError,
				Reason:  fmt.Sprintf("grader panic: %v", r),
				At:      time.Now(),
			})
		}
		ogs.mu.Lock()
		delete(ogs.graders, session.ID)
		ogs.mu.Unlock()
		metrics.ActiveGraders.Dec()
		ogs.wg.Done()
	}()

	side := models.EntrySide(session.EntrySide)
	deadline := session.Deadline()
	failures := 0

	ticker := time.NewTicker(ogs.pollInterval)
	defer ticker.Stop()

	for {
		// The window is checked before the quote, so a touch seen
		// after the deadline never beats EXPIRED.
		if !time.Now().Before(deadline) {
			ogs.resolve(session, interfaces.Resolution{
				Outcome: models.OutcomeExpired,
				Reason:  "evaluation window elapsed",
				At:      time.Now(),
			})
			return
		}

		quote, err := ogs.provider.GetQuote(ctx, session.Symbol)
		var mark decimal.Decimal
		if err == nil {
			var usable bool
			if mark, usable = quote.Mark(side); !usable {
				err = fmt.Errorf("quote for %s carries no usable mark", session.Symbol)
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				helpers.Logger.Debugln(fmt.Sprintf("Grader for session %d detaching, left pending", session.ID))
				return
			}
			failures++
			helpers.Logger.Warnln(fmt.Sprintf("Session %d: quote read %d/%d failed: %v",
				session.ID, failures, ogs.maxReadFailures, err))
			if failures >= ogs.maxReadFailures {
				ogs.resolve(session, interfaces.Resolution{
					Outcome: models.OutcomeError,
					Reason:  fmt.Sprintf("%d consecutive quote reads failed: %v", failures, err),
					At:      time.Now(),
				})
				return
			}
		} else {
			failures = 0
			if outcome, hit := firstTouch(side, mark, session.Target.Decimal, session.Stop.Decimal); hit {
				reason := "target touched first"
				if outcome == models.OutcomeDidntWork {
					reason = "stop touched first"
				}
				ogs.resolve(session, interfaces.Resolution{
					Outcome: outcome,
					Price:   decimal.NewNullDecimal(mark),
					Reason:  reason,
					At:      time.Now(),
				})
				return
			}
		}

		select {
		case <-ctx.Done():
			helpers.Logger.Debugln(fmt.Sprintf("Grader for session %d detaching, left pending", session.ID))
			return
		case <-ticker.C:
		}
	}
}

// firstTouch grades one mark against the bracket. The target is
// checked before the stop, so a mark that has blown through both in a
// single poll counts as worked.
func firstTouch(side models.EntrySide, mark decimal.Decimal, target decimal.Decimal,
	stop decimal.Decimal) (models.Outcome, bool) {

	switch side {
	case models.EntrySideBuy:
		if mark.GreaterThanOrEqual(target) {
			return models.OutcomeWorked, true
		}
		if mark.LessThanOrEqual(stop) {
			return models.OutcomeDidntWork, true
		}
	case models.EntrySideSell:
		if mark.LessThanOrEqual(target) {
			return models.OutcomeWorked, true
		}
		if mark.GreaterThanOrEqual(stop) {
			return models.OutcomeDidntWork, true
		}
	}
	return models.OutcomePending, false
}

func (ogs *OutcomeGraderService) resolve(session database.Session, res interfaces.Resolution) {
	applied, err := ogs.store.ResolveSession(session.ID, res)
	if err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("Could not resolve session %d (%s %s): %v",
			session.ID, session.Region, session.TradingDay, err))
		return
	}
	if !applied {
		helpers.Logger.Debugln(fmt.Sprintf("Session %d already terminal, dropping %s verdict",
			session.ID, res.Outcome))
		return
	}

	metrics.SessionsResolved.WithLabelValues(session.Region, string(res.Outcome)).Inc()

	var marker string
	switch res.Outcome {
	case models.OutcomeWorked:
		marker = "✅"
	case models.OutcomeDidntWork:
		marker = "❌"
	case models.OutcomeExpired:
		marker = "⏰"
	default:
		marker = "⚠️"
	}
	price := "-"
	if res.Price.Valid {
		price = res.Price.Decimal.String()
	}
	helpers.Logger.Infoln(
		fmt.Sprintf("%s **%s: Session %s graded %s**\n", marker, session.Region, session.TradingDay, res.Outcome) +
			fmt.Sprintf("%s %s entry %s target %s stop %s\n", session.EntrySide, session.Symbol,
				session.EntryPrice.Decimal.String(), session.Target.Decimal.String(), session.Stop.Decimal.String()) +
			fmt.Sprintf("Resolution price: %s\n", price) +
			fmt.Sprintf("Reason: %s", res.Reason))
}

// StartTheoreticalGrader watches the paper brackets of a session's
// snapshots. It is analytics-only: failures skip a cycle instead of
// producing an ERROR, and remaining brackets expire with the window.
func (ogs *OutcomeGraderService) StartTheoreticalGrader(ctx context.Context, session database.Session) {
	var pending []database.InstrumentSnapshot
	for _, snap := range session.Snapshots {
		if snap.Symbol == database.TotalSymbol {
			continue
		}
		if models.EntrySide(snap.TheoreticalSide) == models.EntrySideNone {
			continue
		}
		if models.Outcome(snap.TheoreticalOutcome) == models.OutcomePending {
			pending = append(pending, snap)
		}
	}
	if len(pending) == 0 {
		return
	}

	ogs.mu.Lock()
	if _, running := ogs.theoretical[session.ID]; running {
		ogs.mu.Unlock()
		return
	}
	theoCtx, cancel := context.WithCancel(ctx)
	ogs.theoretical[session.ID] = cancel
	ogs.wg.Add(1)
	ogs.mu.Unlock()

	go ogs.gradeTheoretical(theoCtx, session, pending)
}

func (ogs *OutcomeGraderService) gradeTheoretical(ctx context.Context, session database.Session,
	pending []database.InstrumentSnapshot) {

	defer func() {
		if r := recover(); r != nil {
			helpers.Logger.Errorln(fmt.Sprintf("Recovered. Error in theoretical grading of session %d: %v",
				session.ID, r))
		}
		ogs.mu.Lock()
		delete(ogs.theoretical, session.ID)
		ogs.mu.Unlock()
		ogs.wg.Done()
	}()

	deadline := session.Deadline()
	ticker := time.NewTicker(ogs.pollInterval)
	defer ticker.Stop()

	for {
		if !time.Now().Before(deadline) {
			for _, snap := range pending {
				if err := ogs.store.SetTheoreticalOutcome(snap.ID, models.OutcomeExpired); err != nil {
					helpers.Logger.Errorln(fmt.Sprintf("Could not expire theoretical bracket %d: %v", snap.ID, err))
				}
			}
			return
		}

		var remaining []database.InstrumentSnapshot
		for _, snap := range pending {
			side := models.EntrySide(snap.TheoreticalSide)
			quote, err := ogs.provider.GetQuote(ctx, snap.Symbol)
			if err != nil {
				remaining = append(remaining, snap)
				continue
			}
			mark, usable := quote.Mark(side)
			if !usable {
				remaining = append(remaining, snap)
				continue
			}
			outcome, hit := firstTouch(side, mark, snap.TheoreticalTarget.Decimal, snap.TheoreticalStop.Decimal)
			if !hit {
				remaining = append(remaining, snap)
				continue
			}
			if err := ogs.store.SetTheoreticalOutcome(snap.ID, outcome); err != nil {
				helpers.Logger.Errorln(fmt.Sprintf("Could not grade theoretical bracket %d: %v", snap.ID, err))
			}
		}
		pending = remaining
		if len(pending) == 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
