package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"gitlab.com/teomiscia/openingbell/helpers"
	"gitlab.com/teomiscia/openingbell/models"
)

type instrumentsFile struct {
	Instruments []instrumentSpec `yaml:"instruments"`
}

type instrumentSpec struct {
	Symbol           string         `yaml:"symbol"`
	Description      string         `yaml:"description"`
	TickSize         float64        `yaml:"tick_size"`
	TickValue        float64        `yaml:"tick_value"`
	DisplayPrecision int32          `yaml:"display_precision"`
	BearHedge        bool           `yaml:"bear_hedge"`
	CompositeWeight  *float64       `yaml:"composite_weight"`
	Thresholds       *thresholdSpec `yaml:"thresholds"`
}

type thresholdSpec struct {
	StrongBuy  float64 `yaml:"strong_buy"`
	Buy        float64 `yaml:"buy"`
	Hold       float64 `yaml:"hold"`
	Sell       float64 `yaml:"sell"`
	StrongSell float64 `yaml:"strong_sell"`
}

type regionsFile struct {
	Regions []regionSpec `yaml:"regions"`
}

type regionSpec struct {
	ID                 string `yaml:"id"`
	Name               string `yaml:"name"`
	Timezone           string `yaml:"timezone"`
	TradedSymbol       string `yaml:"traded_symbol"`
	Active             *bool  `yaml:"active"`
	CaptureEnabled     *bool  `yaml:"capture_enabled"`
	OpenCaptureEnabled *bool  `yaml:"open_capture_enabled"`
	EvaluationWindow   string `yaml:"evaluation_window"`
}

// LoadInstruments reads the instrument registry. Missing weights and
// thresholds resolve to defaults with a warning; broken tick economics
// are an error because every bracket depends on them.
func LoadInstruments(path string) ([]models.Instrument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruments registry: %w", err)
	}

	var file instrumentsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse instruments registry: %w", err)
	}
	if len(file.Instruments) == 0 {
		return nil, fmt.Errorf("instruments registry %s lists no instruments", path)
	}

	seen := map[string]bool{}
	var instruments []models.Instrument
	for _, spec := range file.Instruments {
		if spec.Symbol == "" {
			return nil, fmt.Errorf("instruments registry %s: entry without symbol", path)
		}
		if seen[spec.Symbol] {
			return nil, fmt.Errorf("instruments registry %s: duplicate symbol %s", path, spec.Symbol)
		}
		seen[spec.Symbol] = true
		if spec.TickSize <= 0 || spec.TickValue <= 0 {
			return nil, fmt.Errorf("instrument %s: tick_size and tick_value must be positive", spec.Symbol)
		}

		weight := decimal.NewFromInt(1)
		if spec.CompositeWeight != nil {
			weight = decimal.NewFromFloat(*spec.CompositeWeight)
		} else {
			helpers.Logger.Warnln("instrument " + spec.Symbol + ": no composite_weight configured, defaulting to 1")
		}

		thresholds := models.DefaultSignalThresholds()
		if spec.Thresholds != nil {
			thresholds = models.SignalThresholds{
				StrongBuy:  decimal.NewFromFloat(spec.Thresholds.StrongBuy),
				Buy:        decimal.NewFromFloat(spec.Thresholds.Buy),
				Hold:       decimal.NewFromFloat(spec.Thresholds.Hold),
				Sell:       decimal.NewFromFloat(spec.Thresholds.Sell),
				StrongSell: decimal.NewFromFloat(spec.Thresholds.StrongSell),
			}
			if err := checkThresholdOrder(spec.Symbol, thresholds); err != nil {
				return nil, err
			}
		} else {
			helpers.Logger.Warnln("instrument " + spec.Symbol + ": no thresholds configured, defaulting to sign-of-change grading")
		}

		instruments = append(instruments, models.Instrument{
			Symbol:           spec.Symbol,
			Description:      spec.Description,
			TickSize:         decimal.NewFromFloat(spec.TickSize),
			TickValue:        decimal.NewFromFloat(spec.TickValue),
			DisplayPrecision: spec.DisplayPrecision,
			BearHedge:        spec.BearHedge,
			CompositeWeight:  weight,
			Thresholds:       thresholds,
		})
	}
	return instruments, nil
}

func checkThresholdOrder(symbol string, t models.SignalThresholds) error {
	ordered := t.StrongSell.LessThanOrEqual(t.Sell) &&
		t.Sell.LessThanOrEqual(t.Hold) &&
		t.Hold.LessThanOrEqual(t.Buy) &&
		t.Buy.LessThanOrEqual(t.StrongBuy)
	if !ordered {
		return fmt.Errorf("instrument %s: thresholds must be ordered strong_sell <= sell <= hold <= buy <= strong_buy", symbol)
	}
	return nil
}

// LoadRegions reads the region registry and checks each region against
// the known instruments. Lifecycle flags default to enabled when
// omitted.
func LoadRegions(path string, instruments []models.Instrument) ([]models.Region, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions registry: %w", err)
	}

	var file regionsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse regions registry: %w", err)
	}
	if len(file.Regions) == 0 {
		return nil, fmt.Errorf("regions registry %s lists no regions", path)
	}

	known := map[string]bool{}
	for _, inst := range instruments {
		known[inst.Symbol] = true
	}

	seen := map[string]bool{}
	var regions []models.Region
	for _, spec := range file.Regions {
		if spec.ID == "" {
			return nil, fmt.Errorf("regions registry %s: entry without id", path)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("regions registry %s: duplicate region %s", path, spec.ID)
		}
		seen[spec.ID] = true
		if !known[spec.TradedSymbol] {
			return nil, fmt.Errorf("region %s: traded_symbol %q is not a tracked instrument", spec.ID, spec.TradedSymbol)
		}

		region := models.Region{
			ID:                 spec.ID,
			Name:               spec.Name,
			Timezone:           spec.Timezone,
			TradedSymbol:       spec.TradedSymbol,
			Active:             boolOrDefault(spec.Active, true),
			CaptureEnabled:     boolOrDefault(spec.CaptureEnabled, true),
			OpenCaptureEnabled: boolOrDefault(spec.OpenCaptureEnabled, true),
		}
		if _, err := region.Location(); err != nil {
			return nil, fmt.Errorf("region %s: unknown timezone %q", spec.ID, spec.Timezone)
		}
		if spec.EvaluationWindow != "" {
			window, err := str2duration.ParseDuration(spec.EvaluationWindow)
			if err != nil {
				return nil, fmt.Errorf("region %s: invalid evaluation_window %q", spec.ID, spec.EvaluationWindow)
			}
			region.EvaluationWindow = window
		}
		regions = append(regions, region)
	}
	return regions, nil
}

func boolOrDefault(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
