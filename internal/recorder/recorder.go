package recorder

import (
	"math"
	"time"

	"DipScreener/internal/screener"
)

// Trigger names what started a scan run.
type Trigger string

const (
	TriggerCLI      Trigger = "cli"
	TriggerCron     Trigger = "cron"
	TriggerTelegram Trigger = "telegram"
)

// ScanRun is the audit row of one screening pass. Result rows themselves
// are not persisted.
type ScanRun struct {
	RunID             string
	Trigger           Trigger
	StartedAt         time.Time
	FinishedAt        time.Time
	Filters           string
	Requested         int
	Fetched           int
	Insufficient      int
	Failed            int
	Matched           int
	BreadthRatio      *float64 // nil when breadth was not computed or undefined
	SourceUnavailable bool
	Error             string
}

// NewScanRun summarizes rep for the audit log. err is the error returned by
// the scan, if any (e.g. cancellation).
func NewScanRun(rep *screener.Report, trigger Trigger, err error) *ScanRun {
	run := &ScanRun{
		RunID:             rep.RunID,
		Trigger:           trigger,
		StartedAt:         rep.StartedAt,
		FinishedAt:        rep.FinishedAt,
		Filters:           rep.Filters,
		Requested:         rep.Summary.Requested,
		Fetched:           rep.Summary.Fetched,
		Insufficient:      rep.Summary.Insufficient,
		Failed:            rep.Summary.Failed,
		Matched:           rep.Summary.Matched,
		SourceUnavailable: rep.Summary.SourceUnavailable(),
	}
	if b := rep.Breadth; b != nil && b.Valid() && !math.IsNaN(b.Ratio) {
		ratio := b.Ratio
		run.BreadthRatio = &ratio
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}

// Recorder persists scan-run history.
type Recorder interface {
	RecordScan(run *ScanRun) error
	RecentScans(limit int) ([]ScanRun, error)
	Close() error
}
