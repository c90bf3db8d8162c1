package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"gitlab.com/teomiscia/openingbell/config"
	"gitlab.com/teomiscia/openingbell/database"
	"gitlab.com/teomiscia/openingbell/helpers"
	"gitlab.com/teomiscia/openingbell/interfaces"
	"gitlab.com/teomiscia/openingbell/metrics"
	"gitlab.com/teomiscia/openingbell/models"
	"gitlab.com/teomiscia/openingbell/providers/binance"
	"gitlab.com/teomiscia/openingbell/providers/calendar"
	"gitlab.com/teomiscia/openingbell/providers/paper"
	"gitlab.com/teomiscia/openingbell/services"
)

func main() {
	app := &cli.App{
		Name:  "openingbell",
		Usage: "captures market region opens, grades the composite signal and follows every session to its outcome",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "conf", Value: "conf.env", Usage: "environment file to load"},
			&cli.StringFlag{Name: "instruments", Usage: "instrument registry file, overrides instrumentsFile"},
			&cli.StringFlag{Name: "regions", Usage: "region registry file, overrides regionsFile"},
			&cli.BoolFlag{Name: "sim", Usage: "run against the paper market instead of live feeds"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		helpers.Logger.Errorln(err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if err := godotenv.Load(c.String("conf")); err != nil {
		helpers.Logger.Debugln(fmt.Sprintf("No environment file at %s, relying on the environment", c.String("conf")))
	}

	settings := config.LoadSettings()
	if path := c.String("instruments"); path != "" {
		settings.InstrumentsFile = path
	}
	if path := c.String("regions"); path != "" {
		settings.RegionsFile = path
	}

	instruments, err := config.LoadInstruments(settings.InstrumentsFile)
	if err != nil {
		return err
	}
	regions, err := config.LoadRegions(settings.RegionsFile, instruments)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	helpers.Logger.Infoln("🖖🏻 Opening Bell started")

	sim := c.Bool("sim")

	var store interfaces.SessionStore
	if settings.DatabaseEnabled && !sim {
		dbService, err := database.NewDBService(settings.DatabaseHost, settings.DatabasePort,
			settings.DatabaseName, settings.DatabaseUser, settings.DatabasePassword)
		if err != nil {
			return err
		}
		store = dbService
	} else {
		store = database.NewMemoryStore()
	}

	var provider interfaces.QuoteProvider
	var regionCalendar interfaces.RegionCalendar

	if sim {
		paperService := paper.NewPaperService()
		seedPaperMarket(paperService, instruments, regions)
		go paperService.Simulate(ctx, symbolsOf(instruments), 1*time.Second)
		go cycleRegions(ctx, paperService, regions)
		provider = paperService
		regionCalendar = paperService
	} else {
		binanceService := binance.NewBinanceService()
		for _, inst := range instruments {
			go binanceService.QuoteMonitor(ctx, inst.Symbol)
		}
		provider = binanceService
		regionCalendar = calendar.NewCalendarService(settings.CalendarBaseURL,
			settings.CalendarAPIKey, settings.CalendarTimeout)
	}

	graders := services.NewOutcomeGraderService(store, provider,
		settings.GraderPollInterval, settings.GraderMaxReadFailures)
	capture := services.NewSessionCaptureService(store, provider, graders, instruments,
		models.DefaultCompositeBands(), settings.FixedDollarRisk, settings.EvaluationWindow,
		settings.CaptureFetchAttempts, settings.CaptureFetchBackoff)
	stats := services.NewRegionStatsService(store, provider, instruments, settings.StatsPollInterval)
	coordinator := services.NewRegionLifecycleService(regionCalendar, capture, stats,
		regions, settings.RegionPollInterval)

	if err := graders.ReattachPending(ctx); err != nil {
		helpers.Logger.Warnln(fmt.Sprintf("Could not re-attach pending sessions: %v", err))
	}
	if err := coordinator.Start(ctx); err != nil {
		return err
	}

	metricsServer := metrics.Serve(settings.MetricsAddr)

	<-ctx.Done()
	helpers.Logger.Infoln("Shutting down")

	coordinator.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	if !graders.Wait(10 * time.Second) {
		helpers.Logger.Warnln("Graders still detaching at shutdown deadline")
	}
	return nil
}

func symbolsOf(instruments []models.Instrument) []string {
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
	}
	return symbols
}

// seedPaperMarket scripts a starting tape and daily history for every
// instrument so a sim run has prices from the first poll.
func seedPaperMarket(paperService *paper.PaperService, instruments []models.Instrument, regions []models.Region) {
	for i, inst := range instruments {
		base := 100.0 * float64(i+1)
		tick := inst.TickSize.InexactFloat64()
		if tick <= 0 {
			tick = 0.01
		}
		paperService.SetQuote(inst.Symbol, base-tick, base+tick, base, base*0.995)

		closes := make([]float64, 30)
		for d := range closes {
			closes[d] = base * (0.97 + 0.002*float64(d))
		}
		paperService.SetDailyCloses(inst.Symbol, closes...)
	}
	for _, region := range regions {
		paperService.SetStatus(region.ID, models.RegionStatusClosed)
	}
}

// cycleRegions toggles the paper calendar between open and closed so a
// sim run exercises capture, grading and the close path without a real
// calendar service behind it.
func cycleRegions(ctx context.Context, paperService *paper.PaperService, regions []models.Region) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(15 * time.Second):
	}

	open := true
	for {
		for _, region := range regions {
			status := models.RegionStatusClosed
			if open {
				status = models.RegionStatusOpen
			}
			paperService.SetStatus(region.ID, status)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Minute):
		}
		open = !open
	}
}
