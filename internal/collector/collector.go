package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"DipScreener/internal/model"
)

// Collector wraps a Fetcher with request pacing and bar normalization.
type Collector struct {
	Fetcher Fetcher
	Delay   time.Duration // minimum gap between consecutive requests

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, delay time.Duration) *Collector {
	return &Collector{Fetcher: fetcher, Delay: delay, now: time.Now}
}

// wait blocks until Delay has elapsed since the previous request.
func (c *Collector) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Delay > 0 && !c.last.IsZero() {
		if remaining := c.Delay - c.now().Sub(c.last); remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	c.last = c.now()
	return nil
}

// Fetch retrieves and normalizes daily bars for one symbol over the last days
// calendar days.
func (c *Collector) Fetch(ctx context.Context, symbol string, days int) (model.PriceSeries, error) {
	if err := c.wait(ctx); err != nil {
		return model.PriceSeries{}, err
	}
	raw, err := c.Fetcher.FetchDailyBars(ctx, symbol, days)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch %s from %s: %w", symbol, c.Fetcher.Name(), err)
	}
	bars := Normalize(raw, days)
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("fetch %s: %w", symbol, ErrNoData)
	}
	return model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: c.now()}, nil
}

// Normalize sorts bars ascending, drops null bars, keeps the last bar of each
// date and trims to the days calendar days ending at the latest bar. A
// non-positive days keeps everything.
func Normalize(raw []model.OHLCV, days int) []model.OHLCV {
	bars := make([]model.OHLCV, 0, len(raw))
	for _, b := range raw {
		if !b.IsNull() {
			bars = append(bars, b)
		}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date() == b.Date() {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}

	if days > 0 && len(out) > 0 {
		cutoff := out[len(out)-1].Time.AddDate(0, 0, -days)
		start := sort.Search(len(out), func(i int) bool { return !out[i].Time.Before(cutoff) })
		out = out[start:]
	}
	return out
}
