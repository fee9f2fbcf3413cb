// Package screener runs the per-symbol fetch and filter pipeline.
package screener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"DipScreener/internal/calculator"
	"DipScreener/internal/collector"
	"DipScreener/internal/commentary"
	"DipScreener/internal/logger"
	"DipScreener/internal/model"
)

// MinChartBars is the history a detail chart needs.
const MinChartBars = 50

// breadthDays covers the last two sessions across weekends and holidays.
const breadthDays = 10

// Summary counts what happened to each requested symbol.
type Summary struct {
	Requested    int `json:"requested"`
	Fetched      int `json:"fetched"`
	Insufficient int `json:"insufficient"`
	Failed       int `json:"failed"`
	Matched      int `json:"matched"`
}

// SourceUnavailable reports whether every requested symbol failed to fetch,
// which points at the data source rather than the filters.
func (s Summary) SourceUnavailable() bool {
	return s.Requested > 0 && s.Failed == s.Requested
}

// NoMatches reports a normal scan that found nothing.
func (s Summary) NoMatches() bool {
	return s.Matched == 0 && !s.SourceUnavailable()
}

// Report is the outcome of one Scan call.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Filters    string
	Results    []model.ScanResult
	Summary    Summary
	Breadth    *model.Breadth // set when extras are enabled
}

// Screener fetches bars through a Collector and evaluates filters on them.
type Screener struct {
	collector *collector.Collector
	params    calculator.Params
	scanDays  int
	chartDays int

	// OnResult, when set, receives every matching row as soon as it is produced.
	OnResult func(model.ScanResult)

	now func() time.Time
}

// New creates a Screener. scanDays and chartDays are calendar-day windows.
func New(c *collector.Collector, params calculator.Params, scanDays, chartDays int) *Screener {
	return &Screener{
		collector: c,
		params:    params,
		scanDays:  scanDays,
		chartDays: chartDays,
		now:       time.Now,
	}
}

// Scan evaluates every symbol and returns the rows that pass the enabled
// filters. Per-symbol failures are counted and skipped. On cancellation the
// rows gathered so far are returned with ctx.Err().
func (s *Screener) Scan(ctx context.Context, symbols []string, cfg FilterConfig) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params := s.params
	params.VolumeWindow = cfg.VolumeWindow
	params.Extras = cfg.Extras
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	symbols = dedup(symbols)
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Filters:   cfg.Describe(),
		Results:   []model.ScanResult{},
		Summary:   Summary{Requested: len(symbols)},
	}
	logger.Info("scan %s started: %d symbols, filters %s", report.RunID, len(symbols), report.Filters)

	var fetched []model.PriceSeries
	finish := func() {
		if cfg.Extras {
			b := calculator.BreadthRatio(fetched)
			report.Breadth = &b
		}
		report.FinishedAt = s.now()
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			finish()
			return report, err
		}

		series, err := s.collector.Fetch(ctx, symbol, s.scanDays)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				finish()
				return report, ctxErr
			}
			report.Summary.Failed++
			logger.Warn("skip %s: %v", symbol, err)
			continue
		}
		report.Summary.Fetched++
		if cfg.Extras {
			fetched = append(fetched, series)
		}

		result, ok, err := safeEvaluate(series, cfg, params)
		if err != nil {
			if errors.Is(err, collector.ErrInsufficientData) {
				report.Summary.Insufficient++
				logger.Debug("skip %s: %v", symbol, err)
			} else {
				report.Summary.Failed++
				logger.Warn("skip %s: %v", symbol, err)
			}
			continue
		}
		if !ok {
			continue
		}
		report.Results = append(report.Results, result)
		report.Summary.Matched++
		if s.OnResult != nil {
			s.OnResult(result)
		}
	}

	finish()
	if report.Summary.SourceUnavailable() {
		logger.Warn("scan %s: all %d symbols failed, data source may be unavailable", report.RunID, report.Summary.Requested)
	}
	logger.Info("scan %s finished: %d matched, %d fetched, %d insufficient, %d failed",
		report.RunID, report.Summary.Matched, report.Summary.Fetched, report.Summary.Insufficient, report.Summary.Failed)
	return report, nil
}

// Detail fetches the chart window of one symbol and computes the full
// indicator table.
func (s *Screener) Detail(ctx context.Context, symbol string, extras bool) (*model.IndicatorTable, error) {
	series, err := s.collector.Fetch(ctx, symbol, s.chartDays)
	if err != nil {
		return nil, err
	}
	if series.Len() < MinChartBars {
		return nil, fmt.Errorf("%s: %d bars, need %d: %w", symbol, series.Len(), MinChartBars, collector.ErrInsufficientData)
	}
	params := s.params
	params.Extras = extras
	return calculator.BuildTable(series, params)
}

// Breadth fetches the latest bars of symbols and computes the breadth ratio.
func (s *Screener) Breadth(ctx context.Context, symbols []string) (model.Breadth, error) {
	var universe []model.PriceSeries
	for _, symbol := range dedup(symbols) {
		series, err := s.collector.Fetch(ctx, symbol, breadthDays)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.Breadth{}, ctxErr
			}
			logger.Warn("breadth: skip %s: %v", symbol, err)
			continue
		}
		universe = append(universe, series)
	}
	return calculator.BreadthRatio(universe), nil
}

func safeEvaluate(series model.PriceSeries, cfg FilterConfig, params calculator.Params) (result model.ScanResult, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate %s: panic: %v", series.Symbol, r)
		}
	}()
	return Evaluate(series, cfg, params)
}

// Evaluate computes the scan fields of one series and applies the filters.
// It returns ok=false when the symbol does not qualify.
func Evaluate(series model.PriceSeries, cfg FilterConfig, params calculator.Params) (model.ScanResult, bool, error) {
	n := series.Len()
	if n < cfg.MinBars {
		return model.ScanResult{}, false, fmt.Errorf("%s: %d bars, need %d: %w", series.Symbol, n, cfg.MinBars, collector.ErrInsufficientData)
	}
	table, err := calculator.BuildTable(series, params)
	if err != nil {
		return model.ScanResult{}, false, err
	}

	last := series.Bars[n-1]
	prevClose := series.Bars[n-2].Close
	changePct := 0.0
	if prevClose != 0 {
		changePct = (last.Close - prevClose) / prevClose * 100
	}
	avgVolume := table.AvgVolume[n-1]
	volumeRatio := 0.0
	if avgVolume > 0 {
		volumeRatio = last.Volume / avgVolume
	}

	result := model.ScanResult{
		Symbol:      series.Symbol,
		AsOf:        last.Date(),
		Close:       last.Close,
		ChangePct:   changePct,
		MA20:        table.MA20[n-1],
		MA50:        table.MA50[n-1],
		MA200:       table.MA200[n-1],
		Volume:      last.Volume,
		AvgVolume:   avgVolume,
		VolumeRatio: volumeRatio,
		RSI:         table.RSI[n-1],
	}

	var outcomes []bool
	if cfg.UseMA {
		outcomes = append(outcomes, maProximity(result.Close, cfg.MATolerance, cfg.MAMode, result.MA20, result.MA50, result.MA200))
	}
	if cfg.UseVolume {
		outcomes = append(outcomes, volumeRatio >= cfg.VolumeRatioThreshold)
	}
	if cfg.UseRSI {
		outcomes = append(outcomes, rsiPasses(result.RSI, cfg.RSIThreshold, cfg.RSIMode))
	}
	if cfg.CeilingChangeThreshold != nil {
		outcomes = append(outcomes, changePct >= *cfg.CeilingChangeThreshold)
	}
	if !combine(cfg.Combine, outcomes) {
		return model.ScanResult{}, false, nil
	}

	if cfg.Commentary {
		result.Commentary = commentary.Generate(commentary.FromTable(table, volumeRatio)).String()
	}
	return result, true, nil
}

func dedup(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
