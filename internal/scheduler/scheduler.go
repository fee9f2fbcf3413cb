package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"DipScreener/internal/logger"
	"DipScreener/internal/notifier"
	"DipScreener/internal/recorder"
	"DipScreener/internal/refdata"
	"DipScreener/internal/screener"
	"DipScreener/internal/universe"
)

// ErrScanInProgress is returned when a scan is requested while another runs.
var ErrScanInProgress = errors.New("scan already in progress")

// Scheduler runs the daily scan and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Screener *screener.Screener
	Universe universe.Source
	Refs     *refdata.Loader
	Filter   screener.FilterConfig
	Suffix   string
	Notifier notifier.Sender
	Recorder recorder.Recorder
	Ctx      context.Context

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler whose cron expressions have a seconds
// field and are evaluated in loc.
func NewScheduler(ctx context.Context, scr *screener.Screener, src universe.Source, refs *refdata.Loader,
	filter screener.FilterConfig, suffix string, sender notifier.Sender, rec recorder.Recorder, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Screener: scr,
		Universe: src,
		Refs:     refs,
		Filter:   filter,
		Suffix:   suffix,
		Notifier: sender,
		Recorder: rec,
		Ctx:      ctx,
	}
}

// Register adds the daily scan job.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job, including
// scans started with RunScanAsync.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	logger.Info("scheduler stopped")
}

// RunScanAsync runs RunScanNow in the background. Stop waits for it.
func (s *Scheduler) RunScanAsync(ctx context.Context, trigger recorder.Trigger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.RunScanNow(ctx, trigger); err != nil {
			logger.Error("%s scan: %v", trigger, err)
		}
	}()
}

func (s *Scheduler) scanTask() {
	if _, err := s.RunScanNow(s.Ctx, recorder.TriggerCron); err != nil {
		logger.Error("scheduled scan: %v", err)
	}
}

// RunScanNow scans the universe, records the run and sends the report.
// Only one scan runs at a time.
func (s *Scheduler) RunScanNow(ctx context.Context, trigger recorder.Trigger) (*screener.Report, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	logger.Info("running scan (%s)", trigger)
	symbols, err := s.Universe.Symbols(ctx)
	if err != nil {
		err = fmt.Errorf("load universe: %w", err)
		s.trySend(ctx, notifier.FormatError(err))
		return nil, err
	}

	rep, err := s.Screener.Scan(ctx, symbols, s.Filter)
	if rep == nil {
		s.trySend(ctx, notifier.FormatError(err))
		return nil, err
	}
	if recErr := s.Recorder.RecordScan(recorder.NewScanRun(rep, trigger, err)); recErr != nil {
		logger.Error("record scan %s: %v", rep.RunID, recErr)
	}
	if err != nil {
		return rep, err
	}
	s.trySend(ctx, notifier.FormatScanReport(rep, s.refs()))
	return rep, nil
}

// HandleCommand processes a chat command and returns the reply. Replies to
// /scan are sent by the scan itself.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	// "/scan@MyBot" in group chats
	cmd := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])

	switch cmd {
	case "/scan":
		if _, err := s.RunScanNow(ctx, recorder.TriggerTelegram); err != nil {
			if errors.Is(err, ErrScanInProgress) {
				return "A scan is already running, results will follow."
			}
			logger.Error("manual scan: %v", err)
		}
		return ""
	case "/symbol":
		if len(fields) < 2 {
			return "Usage: /symbol CODE"
		}
		symbol := universe.Normalize(fields[1], s.Suffix)
		table, err := s.Screener.Detail(ctx, symbol, s.Filter.Extras)
		if err != nil {
			logger.Warn("symbol detail %s: %v", symbol, err)
			return notifier.FormatError(err)
		}
		return notifier.FormatSymbolDetail(table, s.refs())
	case "/breadth":
		symbols, err := s.Universe.Symbols(ctx)
		if err != nil {
			return notifier.FormatError(fmt.Errorf("load universe: %w", err))
		}
		b, err := s.Screener.Breadth(ctx, symbols)
		if err != nil {
			return notifier.FormatError(err)
		}
		return notifier.FormatBreadth(b)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) refs() *refdata.Store {
	if s.Refs == nil {
		return nil
	}
	store, err := s.Refs.Store()
	if err != nil {
		logger.Warn("reference data unavailable: %v", err)
		return nil
	}
	return store
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, text); err != nil {
		logger.Error("send notification: %v", err)
	}
}
