// Package universe provides the list of symbols a scan runs over.
package universe

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Source lists the symbols of a market universe.
type Source interface {
	Symbols(ctx context.Context) ([]string, error)
}

// Normalize uppercases and trims a symbol code and appends suffix when the
// code does not already carry an exchange suffix. Empty input stays empty.
func Normalize(code, suffix string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || strings.Contains(code, ".") {
		return code
	}
	return code + strings.ToUpper(suffix)
}

// BaseCode strips the exchange suffix from a symbol.
func BaseCode(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexByte(symbol, '.'); i > 0 {
		return symbol[:i]
	}
	return symbol
}

// Dedup normalizes codes and removes duplicates and blanks, keeping first-seen order.
func Dedup(codes []string, suffix string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		s := Normalize(c, suffix)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// StaticSource serves a fixed list.
type StaticSource struct {
	codes  []string
	suffix string
}

// NewStaticSource returns the default BIST list merged with extra codes.
func NewStaticSource(suffix string, extra ...string) *StaticSource {
	codes := append(append([]string(nil), bistCodes...), extra...)
	return &StaticSource{codes: codes, suffix: suffix}
}

func (s *StaticSource) Symbols(_ context.Context) ([]string, error) {
	return Dedup(s.codes, s.suffix), nil
}

// Cached wraps a Source and reuses its last successful answer for TTL.
type Cached struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	symbols []string
	loaded  time.Time
}

// NewCached creates a TTL cache around src.
func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{src: src, ttl: ttl, now: time.Now}
}

func (c *Cached) Symbols(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.symbols != nil && c.now().Sub(c.loaded) < c.ttl {
		return append([]string(nil), c.symbols...), nil
	}
	symbols, err := c.src.Symbols(ctx)
	if err != nil {
		if c.symbols != nil {
			// keep serving the stale list while the source is down
			return append([]string(nil), c.symbols...), nil
		}
		return nil, err
	}
	c.symbols = symbols
	c.loaded = c.now()
	return append([]string(nil), symbols...), nil
}

// Sorted returns a sorted copy of symbols.
func Sorted(symbols []string) []string {
	out := append([]string(nil), symbols...)
	sort.Strings(out)
	return out
}

var bistCodes = []string{
	"AKBNK", "ALARK", "ARCLK", "ASELS", "BIMAS", "BRSAN", "CIMSA",
	"DOHOL", "ECILC", "EGEEN", "EKGYO", "ENKAI", "EREGL", "FROTO",
	"GARAN", "GUBRF", "HALKB", "HEKTS", "ISCTR", "ISGYO", "KARSN",
	"KCHOL", "KRDMD", "KOZAA", "KOZAL", "LOGO", "MGROS", "ODAS",
	"PETKM", "PGSUS", "SAHOL", "SASA", "SISE", "SKBNK", "TCELL",
	"THYAO", "TKFEN", "TOASO", "TRGYO", "TSKB", "TTRAK", "TUPRS",
	"VAKBN", "VESTL", "YKBNK", "ZOREN", "QUAGR", "SNGYO", "AYDEM",
	"ESEN", "ULKER", "BIOEN", "GESAN", "CANTE", "NTHOL", "KMPUR",
	"OZKGY", "KORDS", "GSDHO", "MAVI", "TMSN", "VERUS", "TMPOL",
}
