package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"DipScreener/internal/model"
)

var (
	// ErrNoData is returned when the source has no bars for a symbol.
	ErrNoData = errors.New("no data returned")
	// ErrInsufficientData is returned when fewer bars than required were fetched.
	ErrInsufficientData = errors.New("insufficient history")
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDailyBars returns daily bars covering roughly the last days calendar days.
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
