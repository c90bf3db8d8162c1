package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/teomiscia/openingbell/helpers"
)

var (
	SessionsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openingbell_sessions_captured_total",
			Help: "Sessions captured, by region and composite signal.",
		},
		[]string{"region", "signal"},
	)
	SessionsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openingbell_sessions_resolved_total",
			Help: "Sessions resolved, by region and outcome.",
		},
		[]string{"region", "outcome"},
	)
	CaptureFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openingbell_capture_failures_total",
			Help: "Captures aborted before a session row was written.",
		},
		[]string{"region"},
	)
	ActiveGraders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "openingbell_active_graders",
			Help: "Outcome grader goroutines currently running.",
		},
	)
	RegionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openingbell_region_transitions_total",
			Help: "Region open/close edges observed, by region and status.",
		},
		[]string{"region", "status"},
	)
)

func init() {
	prometheus.MustRegister(SessionsCaptured, SessionsResolved, CaptureFailures,
		ActiveGraders, RegionTransitions)
}

// Serve exposes /metrics on addr. The server runs until Shutdown is
// called on the returned instance.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			helpers.Logger.Errorln("metrics server: " + err.Error())
		}
	}()
	return server
}
