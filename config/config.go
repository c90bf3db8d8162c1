package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gitlab.com/teomiscia/openingbell/helpers"
)

// Settings is the engine configuration, resolved once at startup.
// Every value has a documented default so a bare environment still
// yields a runnable engine; malformed values fall back with a warning
// instead of aborting.
type Settings struct {
	DatabaseEnabled  bool
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	FixedDollarRisk       decimal.Decimal
	EvaluationWindow      time.Duration
	GraderPollInterval    time.Duration
	GraderMaxReadFailures int
	RegionPollInterval    time.Duration
	StatsPollInterval     time.Duration
	CaptureFetchAttempts  int
	CaptureFetchBackoff   time.Duration

	CalendarBaseURL string
	CalendarAPIKey  string
	CalendarTimeout time.Duration

	MetricsAddr string

	InstrumentsFile string
	RegionsFile     string
}

// LoadSettings reads the environment once and returns the resolved
// configuration.
func LoadSettings() Settings {
	return Settings{
		DatabaseEnabled:  envBool("enableDatabaseRecording", false),
		DatabaseHost:     envString("databaseHost", "127.0.0.1"),
		DatabasePort:     envString("databasePort", "3306"),
		DatabaseName:     envString("databaseName", "openingbell"),
		DatabaseUser:     envString("databaseUser", "root"),
		DatabasePassword: envString("databasePassword", ""),

		FixedDollarRisk:       envDecimal("fixedDollarRisk", "100"),
		EvaluationWindow:      envDuration("evaluationWindow", "4h"),
		GraderPollInterval:    envDuration("graderPollInterval", "2s"),
		GraderMaxReadFailures: envInt("graderMaxReadFailures", 5),
		RegionPollInterval:    envDuration("regionPollInterval", "1m"),
		StatsPollInterval:     envDuration("statsPollInterval", "15s"),
		CaptureFetchAttempts:  envInt("captureFetchAttempts", 3),
		CaptureFetchBackoff:   envDuration("captureFetchBackoff", "2s"),

		CalendarBaseURL: envString("calendarBaseURL", "http://127.0.0.1:8976"),
		CalendarAPIKey:  envString("calendarAPIKey", ""),
		CalendarTimeout: envDuration("calendarTimeout", "10s"),

		MetricsAddr: envString("metricsAddr", ":2112"),

		InstrumentsFile: envString("instrumentsFile", "instruments.yml"),
		RegionsFile:     envString("regionsFile", "regions.yml"),
	}
}

func envString(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		helpers.Logger.Warnln("config: invalid bool for " + key + ": " + v)
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		helpers.Logger.Warnln("config: invalid int for " + key + ": " + v)
		return fallback
	}
	return parsed
}

// envDuration accepts extended duration strings such as "1d" or "4h30m".
func envDuration(key string, fallback string) time.Duration {
	def, _ := str2duration.ParseDuration(fallback)
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := str2duration.ParseDuration(v)
	if err != nil {
		helpers.Logger.Warnln("config: invalid duration for " + key + ": " + v)
		return def
	}
	return parsed
}

func envDecimal(key string, fallback string) decimal.Decimal {
	def, _ := decimal.NewFromString(fallback)
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := decimal.NewFromString(v)
	if err != nil {
		helpers.Logger.Warnln("config: invalid decimal for " + key + ": " + v)
		return def
	}
	return parsed
}
