package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DipScreener/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64                  // base price for generated bars
	Data    map[string][]model.OHLCV // per-symbol bars, returned as is
	Errors  map[string]error         // per-symbol failures
	Latency time.Duration            // simulated response time

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(m.Latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Data[symbol]; ok {
		return bars, nil
	}
	if m.Price <= 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
	}
	return GenerateBars(m.Price, days, time.Now()), nil
}

// Calls returns the symbols requested so far, in order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// GenerateBars builds count gently rising daily bars ending the day before end.
func GenerateBars(basePrice float64, count int, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
