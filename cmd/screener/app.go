package main

import (
	"fmt"
	"strings"
	"time"

	"DipScreener/internal/calculator"
	"DipScreener/internal/collector"
	"DipScreener/internal/config"
	"DipScreener/internal/logger"
	"DipScreener/internal/recorder"
	"DipScreener/internal/refdata"
	"DipScreener/internal/screener"
	"DipScreener/internal/universe"
)

// App holds the wired components shared by all subcommands.
type App struct {
	Config   *config.Config
	Filter   screener.FilterConfig
	Screener *screener.Screener
	Universe universe.Source
	Refs     *refdata.Loader
}

// newApp loads and validates configuration and wires the screening stack.
func newApp(cfgPath, logLevel string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	filter := filterConfig(cfg.Filter)
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	params := indicatorParams(cfg.Indicators)
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("indicator settings: %w", err)
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("data source: %s", fetcher.Name())

	col := collector.NewCollector(fetcher, cfg.DataSource.RequestDelay)
	return &App{
		Config:   cfg,
		Filter:   filter,
		Screener: screener.New(col, params, cfg.DataSource.ScanDays, cfg.DataSource.ChartDays),
		Universe: newUniverse(cfg),
		Refs:     refdata.NewLoader(referenceOptions(cfg.Reference)),
	}, nil
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	ds := cfg.DataSource
	switch ds.Provider {
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Proxy, ds.Timeout), nil
	case "rest":
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.Timeout), nil
	case "alpaca":
		return collector.NewAlpacaFetcher(ds.APIKey, ds.APISecret), nil
	case "mock":
		return &collector.MockFetcher{Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown data source provider %q", ds.Provider)
	}
}

func newUniverse(cfg *config.Config) universe.Source {
	u := cfg.Universe
	suffix := cfg.DataSource.Suffix
	if u.Source == "html" {
		return universe.NewCached(universe.NewHTMLSource(u.URL, u.Selector, suffix), u.TTL)
	}
	return universe.NewStaticSource(suffix, u.Symbols...)
}

func filterConfig(f config.Filter) screener.FilterConfig {
	return screener.FilterConfig{
		UseMA:                  f.UseMA,
		MATolerance:            f.MATolerance,
		MAMode:                 screener.MAMode(strings.ToLower(f.MAMode)),
		UseVolume:              f.UseVolume,
		VolumeRatioThreshold:   f.VolumeRatioThreshold,
		VolumeWindow:           f.VolumeWindow,
		UseRSI:                 f.UseRSI,
		RSIThreshold:           f.RSIThreshold,
		RSIMode:                screener.RSIMode(strings.ToLower(f.RSIMode)),
		CeilingChangeThreshold: f.CeilingChangeThreshold,
		Combine:                screener.Combine(strings.ToLower(f.Combine)),
		MinBars:                f.MinBars,
		Commentary:             f.Commentary,
		Extras:                 f.Extras,
	}
}

func indicatorParams(ind config.Indicators) calculator.Params {
	p := calculator.DefaultParams()
	p.RSIPeriod = ind.RSIPeriod
	p.MACDFast = ind.MACDFast
	p.MACDSlow = ind.MACDSlow
	p.MACDSignal = ind.MACDSignal
	p.BollingerWindow = ind.BollingerWindow
	p.BollingerK = ind.BollingerK
	p.SupertrendPeriod = ind.SupertrendPeriod
	p.SupertrendMultiplier = ind.SupertrendMultiplier
	return p
}

func referenceOptions(r config.Reference) refdata.Options {
	delim := ','
	if r.LotsDelimiter != "" {
		delim = []rune(r.LotsDelimiter)[0]
	}
	return refdata.Options{
		FreeFloatPath:  r.FreeFloatPath,
		FreeFloatSheet: r.FreeFloatSheet,
		FreeFloatCode:  r.FreeFloatCodeColumn,
		FreeFloatValue: r.FreeFloatValueColumn,
		LotsPath:       r.LotsPath,
		LotsCode:       r.LotsCodeColumn,
		LotsValue:      r.LotsValueColumn,
		LotsDelimiter:  delim,
	}
}

// refStore returns the reference tables, or nil when they cannot be read.
func (a *App) refStore() *refdata.Store {
	store, err := a.Refs.Store()
	if err != nil {
		logger.Warn("reference data unavailable, columns will read N/A: %v", err)
		return nil
	}
	return store
}

// newRecorder opens the SQLite audit log, falling back to a no-op recorder.
func (a *App) newRecorder() recorder.Recorder {
	path := a.Config.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return rec
}

// location resolves the schedule timezone, falling back to local time.
func (a *App) location() *time.Location {
	loc, err := time.LoadLocation(a.Config.Schedule.Timezone)
	if err != nil {
		logger.Warn("unknown timezone %q, using local time: %v", a.Config.Schedule.Timezone, err)
		return time.Local
	}
	return loc
}
