package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"DipScreener/internal/model"
)

// AlpacaFetcher implements Fetcher using the Alpaca market data API.
// Exchange suffixes are stripped since Alpaca only lists US tickers.
type AlpacaFetcher struct {
	client *marketdata.Client
	now    func() time.Time
}

// NewAlpacaFetcher creates a fetcher authenticated with the given key pair.
func NewAlpacaFetcher(apiKey, apiSecret string) *AlpacaFetcher {
	return &AlpacaFetcher{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		now: time.Now,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func (f *AlpacaFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker := symbol
	if i := strings.IndexByte(ticker, '.'); i > 0 {
		ticker = ticker[:i]
	}
	end := f.now()
	raw, err := f.client.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     end.AddDate(0, 0, -days),
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", ticker, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("alpaca %s: %w", ticker, ErrNoData)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, b := range raw {
		bars[i] = model.OHLCV{
			Time:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		}
	}
	return bars, nil
}
