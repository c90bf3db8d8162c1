package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	database "gitlab.com/teomiscia/openingbell/database/models"
	"gitlab.com/teomiscia/openingbell/helpers"
	"gitlab.com/teomiscia/openingbell/interfaces"
	"gitlab.com/teomiscia/openingbell/metrics"
	"gitlab.com/teomiscia/openingbell/models"
	"gitlab.com/teomiscia/openingbell/signals"
)

// SessionCaptureService freezes the market at a region open: it
// classifies every tracked instrument, grades the composite, prices
// the traded bracket from the instrument's tick economics and hands
// the pending session to the graders.
type SessionCaptureService struct {
	store      interfaces.SessionStore
	provider   interfaces.QuoteProvider
	graders    *OutcomeGraderService
	classifier *signals.Classifier
	bands      models.CompositeBands

	instruments []models.Instrument
	bySymbol    map[string]models.Instrument

	fixedDollarRisk decimal.Decimal
	defaultWindow   time.Duration
	fetchAttempts   int
	fetchBackoff    time.Duration
}

func NewSessionCaptureService(store interfaces.SessionStore, provider interfaces.QuoteProvider,
	graders *OutcomeGraderService, instruments []models.Instrument, bands models.CompositeBands,
	fixedDollarRisk decimal.Decimal, defaultWindow time.Duration,
	fetchAttempts int, fetchBackoff time.Duration) *SessionCaptureService {

	bySymbol := make(map[string]models.Instrument, len(instruments))
	for _, inst := range instruments {
		bySymbol[inst.Symbol] = inst
	}

	return &SessionCaptureService{
		store:           store,
		provider:        provider,
		graders:         graders,
		classifier:      signals.NewClassifier(instruments, models.DefaultSignalWeights),
		bands:           bands,
		instruments:     instruments,
		bySymbol:        bySymbol,
		fixedDollarRisk: fixedDollarRisk,
		defaultWindow:   defaultWindow,
		fetchAttempts:   fetchAttempts,
		fetchBackoff:    fetchBackoff,
	}
}

// CaptureOpen runs the capture contract for one region open event. It
// is idempotent: a second call for the same region trading day finds
// the existing session and leaves without side effects.
func (scs *SessionCaptureService) CaptureOpen(ctx context.Context, region models.Region, openedAt time.Time) error {
	tradingDay := region.TradingDay(openedAt)

	existing, err := scs.store.FindSession(region.ID, tradingDay)
	if err != nil {
		return fmt.Errorf("capture %s %s: %w", region.ID, tradingDay, err)
	}
	if existing != nil {
		helpers.Logger.Debugln(fmt.Sprintf("%s: session for %s already captured, skipping", region.ID, tradingDay))
		return nil
	}

	if !region.CaptureEnabled || !region.OpenCaptureEnabled {
		helpers.Logger.Debugln(fmt.Sprintf("%s: capture disabled, ignoring open of %s", region.ID, tradingDay))
		return nil
	}

	quotes, err := scs.fetchQuotes(ctx)
	if err != nil {
		return scs.abortCapture(region, tradingDay,
			fmt.Sprintf("quote fetch failed after %d attempts: %v", scs.fetchAttempts, err))
	}

	rows := make([]signals.Classification, 0, len(scs.instruments))
	for _, inst := range scs.instruments {
		quote := quotes[inst.Symbol]
		var change *decimal.Decimal
		if delta, ok := quote.Change(); ok {
			change = &delta
		} else {
			helpers.Logger.Warnln(fmt.Sprintf("%s: no usable change for %s, grading NONE", region.ID, inst.Symbol))
		}
		rows = append(rows, scs.classifier.Classify(inst.Symbol, change))
	}

	composite := signals.ComputeComposite(rows, scs.bands)

	side := composite.Signal.Side()
	if side != models.EntrySideNone {
		if _, ok := quotes[region.TradedSymbol].Touch(side); !ok {
			return scs.abortCapture(region, tradingDay,
				fmt.Sprintf("no usable entry price for traded instrument %s", region.TradedSymbol))
		}
	}

	session := scs.buildSession(region, tradingDay, openedAt, quotes, rows, composite)

	if err := scs.store.CreateSession(session); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateSession) {
			helpers.Logger.Debugln(fmt.Sprintf("%s: lost capture race for %s, session already stored", region.ID, tradingDay))
			return nil
		}
		return fmt.Errorf("capture %s %s: %w", region.ID, tradingDay, err)
	}

	metrics.SessionsCaptured.WithLabelValues(region.ID, string(composite.Signal)).Inc()
	scs.announceCapture(region, session)

	if models.Outcome(session.Outcome) == models.OutcomePending && scs.graders != nil {
		scs.graders.StartGrader(ctx, *session)
		scs.graders.StartTheoreticalGrader(ctx, *session)
	}
	return nil
}

// fetchQuotes reads the whole universe as a unit, so every snapshot in
// a capture comes from the same successful attempt.
func (scs *SessionCaptureService) fetchQuotes(ctx context.Context) (map[string]models.Quote, error) {
	var quotes map[string]models.Quote
	err := helpers.Retry(ctx, scs.fetchAttempts, scs.fetchBackoff, func() error {
		attempt := make(map[string]models.Quote, len(scs.instruments))
		for _, inst := range scs.instruments {
			quote, err := scs.provider.GetQuote(ctx, inst.Symbol)
			if err != nil {
				return fmt.Errorf("%s: %w", inst.Symbol, err)
			}
			attempt[inst.Symbol] = quote
		}
		quotes = attempt
		return nil
	})
	return quotes, err
}

func (scs *SessionCaptureService) abortCapture(region models.Region, tradingDay string, reason string) error {
	if err := scs.store.RecordCaptureFailure(region.ID, tradingDay, reason); err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("%s: could not record capture failure: %v", region.ID, err))
	}
	metrics.CaptureFailures.WithLabelValues(region.ID).Inc()
	helpers.Logger.Errorln(fmt.Sprintf("%s: capture for %s aborted: %s", region.ID, tradingDay, reason))
	return fmt.Errorf("capture %s %s: %s", region.ID, tradingDay, reason)
}

func (scs *SessionCaptureService) buildSession(region models.Region, tradingDay string, openedAt time.Time,
	quotes map[string]models.Quote, rows []signals.Classification, composite signals.CompositeResult) *database.Session {

	window := region.EvaluationWindow
	if window <= 0 {
		window = scs.defaultWindow
	}

	session := &database.Session{
		Region:          region.ID,
		TradingDay:      tradingDay,
		OpenedAt:        openedAt,
		CompositeSignal: string(composite.Signal),
		CompositeScore:  composite.Score,
		Symbol:          region.TradedSymbol,
		WindowSeconds:   int64(window / time.Second),
	}

	side := composite.Signal.Side()
	session.EntrySide = string(side)
	if side == models.EntrySideNone {
		// A HOLD composite never opens a bracket.
		session.Outcome = string(models.OutcomeNoEntry)
		session.ResolutionReason = "composite graded " + string(composite.Signal)
	} else {
		traded := scs.bySymbol[region.TradedSymbol]
		entry, _ := quotes[region.TradedSymbol].Touch(side)
		target, stop, ticks := bracketFor(traded, side, entry, scs.fixedDollarRisk)
		session.EntryPrice = decimal.NewNullDecimal(entry)
		session.Target = decimal.NewNullDecimal(target)
		session.Stop = decimal.NewNullDecimal(stop)
		session.RiskTicks = ticks
		session.Outcome = string(models.OutcomePending)
	}

	for _, row := range rows {
		quote := quotes[row.Symbol]
		snapshot := database.InstrumentSnapshot{
			Symbol:          row.Symbol,
			Bid:             quote.Bid,
			Ask:             quote.Ask,
			Last:            quote.Last,
			Spread:          quote.Spread(),
			Signal:          string(row.Signal),
			StatValue:       row.StatValue,
			SignalWeight:    row.SignalWeight,
			TheoreticalSide: string(models.EntrySideNone),
		}
		theoSide := row.Signal.Side()
		if entry, ok := quote.Touch(theoSide); theoSide != models.EntrySideNone && ok {
			inst := scs.bySymbol[row.Symbol]
			target, stop, _ := bracketFor(inst, theoSide, entry, scs.fixedDollarRisk)
			snapshot.TheoreticalSide = string(theoSide)
			snapshot.TheoreticalEntry = decimal.NewNullDecimal(entry)
			snapshot.TheoreticalTarget = decimal.NewNullDecimal(target)
			snapshot.TheoreticalStop = decimal.NewNullDecimal(stop)
			snapshot.TheoreticalOutcome = string(models.OutcomePending)
		}
		session.Snapshots = append(session.Snapshots, snapshot)
	}

	// Synthetic aggregate row: composite verdict and score, no prices.
	session.Snapshots = append(session.Snapshots, database.InstrumentSnapshot{
		Symbol:          database.TotalSymbol,
		Signal:          string(composite.Signal),
		StatValue:       composite.Score,
		SignalWeight:    models.DefaultSignalWeights[composite.Signal],
		TheoreticalSide: string(models.EntrySideNone),
	})

	return session
}

// bracketFor spans the risk budget symmetrically around the entry:
// the tick count is frozen here and never recomputed during grading.
func bracketFor(inst models.Instrument, side models.EntrySide, entry decimal.Decimal,
	dollarRisk decimal.Decimal) (target decimal.Decimal, stop decimal.Decimal, ticks int64) {

	ticks = inst.RiskTicks(dollarRisk)
	offset := inst.TickOffset(ticks)
	if side == models.EntrySideBuy {
		return entry.Add(offset), entry.Sub(offset), ticks
	}
	return entry.Sub(offset), entry.Add(offset), ticks
}

func (scs *SessionCaptureService) announceCapture(region models.Region, session *database.Session) {
	header := fmt.Sprintf("🔔 **%s: Session captured (%s)**\n", region.Name, session.TradingDay) +
		fmt.Sprintf("Composite: %s (score %s)\n", session.CompositeSignal, session.CompositeScore.String())

	if models.Outcome(session.Outcome) == models.OutcomeNoEntry {
		helpers.Logger.Infoln(header + fmt.Sprintf("No entry for %s", session.Symbol))
		return
	}

	traded := scs.bySymbol[session.Symbol]
	helpers.Logger.Infoln(header +
		fmt.Sprintf("%s %s @ %s\n", session.EntrySide, session.Symbol, traded.FormatPrice(session.EntryPrice.Decimal)) +
		fmt.Sprintf("Target: %s (%d ticks)\n", traded.FormatPrice(session.Target.Decimal), session.RiskTicks) +
		fmt.Sprintf("Stop: %s\n", traded.FormatPrice(session.Stop.Decimal)) +
		fmt.Sprintf("Window: %s", session.Window()))
}
