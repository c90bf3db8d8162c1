package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gitlab.com/teomiscia/openingbell/helpers"
	"gitlab.com/teomiscia/openingbell/interfaces"
	"gitlab.com/teomiscia/openingbell/metrics"
	"gitlab.com/teomiscia/openingbell/models"
)

// RegionLifecycleService polls the calendar for every active region and
// turns status edges into engine actions: an open edge starts the
// region's stats monitor and fires the session capture, a close edge
// finalizes the stats. Graders are deliberately left alone on close,
// their evaluation windows outlive the region.
type RegionLifecycleService struct {
	calendar interfaces.RegionCalendar
	capture  *SessionCaptureService
	stats    *RegionStatsService
	regions  []models.Region
	interval time.Duration

	ctx  context.Context
	cron *cron.Cron

	mu         sync.Mutex
	lastStatus map[string]models.RegionStatus
}

func NewRegionLifecycleService(calendar interfaces.RegionCalendar, capture *SessionCaptureService,
	stats *RegionStatsService, regions []models.Region, interval time.Duration) *RegionLifecycleService {
	return &RegionLifecycleService{
		calendar:   calendar,
		capture:    capture,
		stats:      stats,
		regions:    regions,
		interval:   interval,
		lastStatus: map[string]models.RegionStatus{},
	}
}

// Start runs one immediate poll to seed the edge detector, then keeps
// polling on the configured interval.
func (rls *RegionLifecycleService) Start(ctx context.Context) error {
	rls.ctx = ctx
	rls.Poll()

	rls.cron = cron.New()
	if _, err := rls.cron.AddFunc("@every "+rls.interval.String(), rls.Poll); err != nil {
		return err
	}
	rls.cron.Start()
	return nil
}

// Stop halts polling and waits for an in-flight poll to finish.
func (rls *RegionLifecycleService) Stop() {
	if rls.cron == nil {
		return
	}
	<-rls.cron.Stop().Done()
}

// Poll reads every active region's calendar status once.
func (rls *RegionLifecycleService) Poll() {
	for _, region := range rls.regions {
		if !region.Active {
			continue
		}
		status, err := rls.calendar.Status(rls.ctx, region.ID)
		if err != nil {
			helpers.Logger.Warnln(fmt.Sprintf("%s: calendar status read failed: %v", region.ID, err))
			continue
		}
		rls.Observe(region.ID, status, time.Now())
	}
}

// Observe feeds one status reading into the edge detector. The first
// reading for a region only seeds it: an already-open region gets its
// stats monitor so the day is tracked, but no capture fires off a
// seed.
func (rls *RegionLifecycleService) Observe(regionID string, status models.RegionStatus, ts time.Time) {
	region, ok := rls.regionByID(regionID)
	if !ok {
		helpers.Logger.Warnln(fmt.Sprintf("Status reading for unknown region %s ignored", regionID))
		return
	}

	rls.mu.Lock()
	prev, seen := rls.lastStatus[region.ID]
	rls.lastStatus[region.ID] = status
	rls.mu.Unlock()

	if !seen {
		if status == models.RegionStatusOpen {
			rls.stats.StartMonitor(rls.ctx, region, ts)
		}
		return
	}
	if prev == status {
		return
	}

	rls.HandleTransition(models.RegionTransition{RegionID: region.ID, NewStatus: status, Timestamp: ts})
}

// HandleTransition applies one open/close edge.
func (rls *RegionLifecycleService) HandleTransition(t models.RegionTransition) {
	region, ok := rls.regionByID(t.RegionID)
	if !ok {
		helpers.Logger.Warnln(fmt.Sprintf("Transition for unknown region %s ignored", t.RegionID))
		return
	}

	rls.mu.Lock()
	rls.lastStatus[region.ID] = t.NewStatus
	rls.mu.Unlock()

	metrics.RegionTransitions.WithLabelValues(region.ID, string(t.NewStatus)).Inc()

	switch t.NewStatus {
	case models.RegionStatusOpen:
		rls.onOpen(region, t.Timestamp)
	case models.RegionStatusClosed:
		rls.onClose(region)
	}
}

func (rls *RegionLifecycleService) onOpen(region models.Region, openedAt time.Time) {
	helpers.Logger.Infoln(fmt.Sprintf("🟢 **%s: Region open** (%s)", region.Name, region.TradingDay(openedAt)))

	rls.stats.StartMonitor(rls.ctx, region, openedAt)
	if err := rls.capture.CaptureOpen(rls.ctx, region, openedAt); err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("%s: open capture failed: %v", region.ID, err))
	}
}

func (rls *RegionLifecycleService) onClose(region models.Region) {
	helpers.Logger.Infoln(fmt.Sprintf("🔴 **%s: Region closed**", region.Name))
	rls.stats.StopAndFinalize(region.ID)
}

func (rls *RegionLifecycleService) regionByID(id string) (models.Region, bool) {
	for _, region := range rls.regions {
		if region.ID == id {
			return region, true
		}
	}
	return models.Region{}, false
}
