package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"DipScreener/internal/calculator"
	"DipScreener/internal/collector"
	"DipScreener/internal/recorder"
	"DipScreener/internal/screener"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type staticSource struct {
	symbols []string
	err     error
}

func (s staticSource) Symbols(context.Context) ([]string, error) { return s.symbols, s.err }

func newTestScheduler(t *testing.T, src staticSource, fetcher *collector.MockFetcher) (*Scheduler, *fakeSender, *recorder.SQLiteRecorder) {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rec.Close() })

	scr := screener.New(collector.NewCollector(fetcher, 0), calculator.DefaultParams(), 90, 120)
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), scr, src, nil, screener.DefaultFilterConfig(), ".IS", sender, rec, time.UTC)
	return s, sender, rec
}

func TestRegister(t *testing.T) {
	s, _, _ := newTestScheduler(t, staticSource{}, &collector.MockFetcher{Price: 100})
	if err := s.Register("0 30 18 * * 1-5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(s.Cron.Entries()))
	}
	if err := s.Register("not a cron"); err == nil {
		t.Error("expected error for invalid expression")
	}
}

func TestRunScanNow_RecordsAndSends(t *testing.T) {
	fetcher := &collector.MockFetcher{Price: 100, Errors: map[string]error{"BAD.IS": errors.New("timeout")}}
	s, sender, rec := newTestScheduler(t, staticSource{symbols: []string{"THYAO.IS", "BAD.IS"}}, fetcher)

	rep, err := s.RunScanNow(context.Background(), recorder.TriggerCLI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Summary.Requested != 2 || rep.Summary.Failed != 1 {
		t.Errorf("unexpected summary %+v", rep.Summary)
	}

	msgs := sender.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "requested 2") {
		t.Fatalf("expected one report message, got %q", msgs)
	}

	runs, err := rec.RecentScans(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != rep.RunID || runs[0].Trigger != recorder.TriggerCLI {
		t.Errorf("unexpected runs %+v", runs)
	}
}

func TestRunScanNow_UniverseFailure(t *testing.T) {
	s, sender, rec := newTestScheduler(t, staticSource{err: errors.New("page down")}, &collector.MockFetcher{Price: 100})

	if _, err := s.RunScanNow(context.Background(), recorder.TriggerCron); err == nil {
		t.Fatal("expected error")
	}
	msgs := sender.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "page down") {
		t.Errorf("expected error notice, got %q", msgs)
	}
	if runs, _ := rec.RecentScans(5); len(runs) != 0 {
		t.Errorf("expected no recorded runs, got %d", len(runs))
	}
}

func TestStop_WaitsForAsyncScan(t *testing.T) {
	fetcher := &collector.MockFetcher{Price: 100, Latency: 50 * time.Millisecond}
	s, sender, rec := newTestScheduler(t, staticSource{symbols: []string{"THYAO.IS"}}, fetcher)

	s.RunScanAsync(context.Background(), recorder.TriggerCLI)
	s.Stop()

	runs, err := rec.RecentScans(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Trigger != recorder.TriggerCLI {
		t.Errorf("expected the async run recorded before Stop returned, got %+v", runs)
	}
	if msgs := sender.messages(); len(msgs) != 1 {
		t.Errorf("expected one report message, got %q", msgs)
	}
}

func TestRunScanNow_SingleFlight(t *testing.T) {
	s, _, _ := newTestScheduler(t, staticSource{symbols: []string{"THYAO.IS"}}, &collector.MockFetcher{Price: 100})
	s.running = true

	if _, err := s.RunScanNow(context.Background(), recorder.TriggerCLI); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("expected ErrScanInProgress, got %v", err)
	}
	if got := s.HandleCommand(context.Background(), "/scan"); !strings.Contains(got, "already running") {
		t.Errorf("unexpected reply %q", got)
	}
}

func TestHandleCommand(t *testing.T) {
	fetcher := &collector.MockFetcher{Price: 100, Errors: map[string]error{"XXX.IS": collector.ErrNoData}}
	s, sender, _ := newTestScheduler(t, staticSource{symbols: []string{"THYAO.IS", "GARAN.IS"}}, fetcher)
	ctx := context.Background()

	tests := []struct {
		command string
		want    string
	}{
		{"/help", "Available commands"},
		{"", "Available commands"},
		{"hello", "Available commands"},
		{"/symbol", "Usage: /symbol CODE"},
		{"/symbol thyao", "<b>THYAO</b>"},
		{"/symbol@DipBot xxx", "Error"},
		{"/breadth", "Breadth"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := s.HandleCommand(ctx, tt.command); !strings.Contains(got, tt.want) {
				t.Errorf("HandleCommand(%q) = %q, want substring %q", tt.command, got, tt.want)
			}
		})
	}

	if got := s.HandleCommand(ctx, "/SCAN"); got != "" {
		t.Errorf("expected empty reply for /scan, got %q", got)
	}
	if msgs := sender.messages(); len(msgs) != 1 || !strings.Contains(msgs[0], "BIST dip screener") {
		t.Errorf("expected scan report to be sent, got %q", msgs)
	}

	calls := fetcher.Calls()
	found := false
	for _, c := range calls {
		if c == "THYAO.IS" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected normalized symbol request, got %v", calls)
	}
}
