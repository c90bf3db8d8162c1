package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database2 "gitlab.com/teomiscia/openingbell/database"
	"gitlab.com/teomiscia/openingbell/interfaces"
	"gitlab.com/teomiscia/openingbell/models"
	"gitlab.com/teomiscia/openingbell/providers/paper"
)

func newRegionFixture(regions []models.Region) (*database2.MemoryStore, *paper.PaperService,
	*OutcomeGraderService, *RegionStatsService, *RegionLifecycleService) {

	store := database2.NewMemoryStore()
	paperService := paper.NewPaperService()
	graders := NewOutcomeGraderService(store, paperService, 5*time.Millisecond, 3)
	capture := NewSessionCaptureService(store, paperService, graders, testInstruments(),
		models.DefaultCompositeBands(), decimal.NewFromInt(100), time.Hour, 2, time.Millisecond)
	stats := NewRegionStatsService(store, paperService, testInstruments(), 2*time.Millisecond)
	coordinator := NewRegionLifecycleService(paperService, capture, stats, regions, time.Minute)
	return store, paperService, graders, stats, coordinator
}

func scriptBullishTape(paperService *paper.PaperService) {
	paperService.SetQuote("YM", 47380, 47388, 47385, 47185)
	paperService.SetQuote("NQ", 16029.75, 16030.25, 16030, 16000)
}

func TestRegionOpenEdgeCapturesOnce(t *testing.T) {
	store, paperService, _, stats, coordinator := newRegionFixture([]models.Region{testRegion()})
	scriptBullishTape(paperService)
	paperService.SetStatus("japan", models.RegionStatusClosed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, coordinator.Start(ctx))
	defer coordinator.Stop()

	openAt := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	coordinator.Observe("japan", models.RegionStatusOpen, openAt)

	session, err := store.FindSession("japan", "2026-02-02")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, string(models.OutcomePending), session.Outcome)
	assert.True(t, stats.Monitoring("japan"))

	// a repeated OPEN reading is not an edge
	coordinator.Observe("japan", models.RegionStatusOpen, openAt.Add(time.Minute))
	sessions, err := store.Sessions(interfaces.SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestRegionSeedObservationDoesNotCapture(t *testing.T) {
	store, paperService, _, stats, coordinator := newRegionFixture([]models.Region{testRegion()})
	scriptBullishTape(paperService)
	// the engine boots mid-session: the region is already open
	paperService.SetStatus("japan", models.RegionStatusOpen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, coordinator.Start(ctx))
	defer coordinator.Stop()

	sessions, err := store.Sessions(interfaces.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
	// the day is still tracked
	assert.True(t, stats.Monitoring("japan"))
}

func TestRegionCloseFinalizesStatsAndSparesGraders(t *testing.T) {
	store, paperService, graders, stats, coordinator := newRegionFixture([]models.Region{testRegion()})
	scriptBullishTape(paperService)
	paperService.SetStatus("japan", models.RegionStatusClosed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, coordinator.Start(ctx))
	defer coordinator.Stop()

	openAt := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	coordinator.Observe("japan", models.RegionStatusOpen, openAt)
	require.GreaterOrEqual(t, graders.Running(), 1)

	// give the stats monitor a few sampling cycles
	time.Sleep(50 * time.Millisecond)
	coordinator.Observe("japan", models.RegionStatusClosed, openAt.Add(6*time.Hour))

	assert.False(t, stats.Monitoring("japan"))
	rows := store.IntradayStats()
	require.Len(t, rows, 2)
	assert.Equal(t, "NQ", rows[0].Symbol)
	assert.Equal(t, "YM", rows[1].Symbol)
	assert.True(t, rows[1].Close.Equal(decimal.NewFromInt(47385)), rows[1].Close.String())

	// the session's evaluation window outlives the region close
	assert.GreaterOrEqual(t, graders.Running(), 1)
	assert.Equal(t, string(models.OutcomePending), sessionOutcome(store, "japan", "2026-02-02"))
}

func TestRegionInactiveIsNeverPolled(t *testing.T) {
	region := testRegion()
	region.Active = false
	store, paperService, _, stats, coordinator := newRegionFixture([]models.Region{region})
	scriptBullishTape(paperService)
	paperService.SetStatus("japan", models.RegionStatusOpen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, coordinator.Start(ctx))
	defer coordinator.Stop()

	assert.False(t, stats.Monitoring("japan"))
	sessions, err := store.Sessions(interfaces.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRegionUnknownTransitionIgnored(t *testing.T) {
	store, paperService, _, _, coordinator := newRegionFixture([]models.Region{testRegion()})
	scriptBullishTape(paperService)
	paperService.SetStatus("japan", models.RegionStatusClosed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, coordinator.Start(ctx))
	defer coordinator.Stop()

	coordinator.HandleTransition(models.RegionTransition{
		RegionID:  "mars",
		NewStatus: models.RegionStatusOpen,
		Timestamp: time.Now(),
	})

	sessions, err := store.Sessions(interfaces.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRegionCaptureFailureDoesNotStopLifecycle(t *testing.T) {
	store, paperService, _, stats, coordinator := newRegionFixture([]models.Region{testRegion()})
	// quotes never arrive: the capture aborts, the region keeps running
	paperService.FailQuotes("YM", 100)
	paperService.FailQuotes("NQ", 100)
	paperService.SetStatus("japan", models.RegionStatusClosed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, coordinator.Start(ctx))
	defer coordinator.Stop()

	coordinator.Observe("japan", models.RegionStatusOpen, time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC))

	assert.True(t, stats.Monitoring("japan"))
	failures := store.CaptureFailures()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Reason, "quote fetch failed")
}
