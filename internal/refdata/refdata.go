// Package refdata loads the free-float and lot-count reference tables.
package refdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"DipScreener/internal/logger"
)

// Metric is a looked-up reference value. Available is false when the
// symbol is absent from the table.
type Metric struct {
	Value     float64
	Available bool
}

// NotAvailable is the sentinel returned for lookup misses.
var NotAvailable = Metric{}

// String renders the value, or "N/A" when unavailable.
func (m Metric) String() string {
	if !m.Available {
		return "N/A"
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// Options locates the two sidecar files and their columns. An empty path
// skips that table.
type Options struct {
	FreeFloatPath  string
	FreeFloatSheet string // first sheet when empty
	FreeFloatCode  string
	FreeFloatValue string
	LotsPath       string
	LotsCode       string
	LotsValue      string
	LotsDelimiter  rune
}

// Store holds the reference tables keyed by uppercased, trimmed code.
// It is read-only after Load.
type Store struct {
	freeFloat map[string]float64
	lots      map[string]float64
}

// NewStore builds a store from in-memory tables.
func NewStore(freeFloat, lots map[string]float64) *Store {
	s := &Store{freeFloat: map[string]float64{}, lots: map[string]float64{}}
	for k, v := range freeFloat {
		s.freeFloat[Key(k)] = v
	}
	for k, v := range lots {
		s.lots[Key(k)] = v
	}
	return s
}

// Key normalizes a symbol into a lookup key: trimmed, uppercased and
// without exchange suffix.
func Key(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexByte(symbol, '.'); i > 0 {
		symbol = symbol[:i]
	}
	return symbol
}

// FreeFloat returns the free-float percentage of symbol.
func (s *Store) FreeFloat(symbol string) Metric {
	return lookup(s.freeFloatTable(), symbol)
}

// Lots returns the circulating lot count of symbol.
func (s *Store) Lots(symbol string) Metric {
	return lookup(s.lotsTable(), symbol)
}

// Len returns the number of entries in each table.
func (s *Store) Len() (freeFloat, lots int) {
	return len(s.freeFloatTable()), len(s.lotsTable())
}

func (s *Store) freeFloatTable() map[string]float64 {
	if s == nil {
		return nil
	}
	return s.freeFloat
}

func (s *Store) lotsTable() map[string]float64 {
	if s == nil {
		return nil
	}
	return s.lots
}

func lookup(table map[string]float64, symbol string) Metric {
	v, ok := table[Key(symbol)]
	if !ok {
		return NotAvailable
	}
	return Metric{Value: v, Available: true}
}

// Load reads both tables. Only column presence is validated; rows whose
// value does not parse are skipped.
func Load(opts Options) (*Store, error) {
	s := &Store{freeFloat: map[string]float64{}, lots: map[string]float64{}}

	if opts.FreeFloatPath != "" {
		rows, err := readXLSX(opts.FreeFloatPath, opts.FreeFloatSheet)
		if err != nil {
			return nil, fmt.Errorf("free float table: %w", err)
		}
		if err := fill(s.freeFloat, rows, opts.FreeFloatCode, opts.FreeFloatValue, parseNumber); err != nil {
			return nil, fmt.Errorf("free float table %s: %w", opts.FreeFloatPath, err)
		}
	}

	if opts.LotsPath != "" {
		rows, err := readCSV(opts.LotsPath, opts.LotsDelimiter)
		if err != nil {
			return nil, fmt.Errorf("lot table: %w", err)
		}
		if err := fill(s.lots, rows, opts.LotsCode, opts.LotsValue, parseLots); err != nil {
			return nil, fmt.Errorf("lot table %s: %w", opts.LotsPath, err)
		}
	}
	return s, nil
}

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

func fill(dst map[string]float64, rows [][]string, codeCol, valueCol string, parse func(string) (float64, bool)) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: empty table", ErrMissingColumn)
	}
	codeIdx, valueIdx := -1, -1
	for i, h := range rows[0] {
		switch {
		case strings.EqualFold(strings.TrimSpace(h), codeCol):
			codeIdx = i
		case strings.EqualFold(strings.TrimSpace(h), valueCol):
			valueIdx = i
		}
	}
	if codeIdx < 0 {
		return fmt.Errorf("%w: %q", ErrMissingColumn, codeCol)
	}
	if valueIdx < 0 {
		return fmt.Errorf("%w: %q", ErrMissingColumn, valueCol)
	}

	skipped := 0
	for _, row := range rows[1:] {
		if codeIdx >= len(row) || valueIdx >= len(row) {
			skipped++
			continue
		}
		key := Key(row[codeIdx])
		v, ok := parse(row[valueIdx])
		if key == "" || !ok {
			skipped++
			continue
		}
		dst[key] = v
	}
	if skipped > 0 {
		logger.Debug("reference table: skipped %d unparsable rows", skipped)
	}
	return nil
}

// parseNumber accepts plain numbers, "%"-suffixed percentages and both
// "1.234.567,5" and "1,234,567.5" separator styles.
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if s == "" {
		return 0, false
	}
	commas, dots := strings.Count(s, ","), strings.Count(s, ".")
	switch {
	case commas > 0 && dots > 0:
		// the separator appearing last is the decimal one
		if strings.LastIndexByte(s, ',') > strings.LastIndexByte(s, '.') {
			s = strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas == 1:
		s = strings.ReplaceAll(s, ",", ".")
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseLots accepts a non-negative whole lot count, optionally grouped in
// thousands with "." or "," ("1.234.567", "1,234,567").
func parseLots(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	groups := strings.Split(strings.ReplaceAll(s, ",", "."), ".")
	for i, g := range groups {
		if g == "" || (i > 0 && len(g) != 3) {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(strings.Join(groups, ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string, delim rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return parseCSV(f, delim)
}

func parseCSV(r io.Reader, delim rune) ([][]string, error) {
	cr := csv.NewReader(r)
	if delim != 0 {
		cr.Comma = delim
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// Loader loads the store at most once and hands the same instance to
// every consumer.
type Loader struct {
	opts Options

	once  sync.Once
	store *Store
	err   error
}

// NewLoader creates a lazy loader for opts.
func NewLoader(opts Options) *Loader {
	return &Loader{opts: opts}
}

// Store returns the loaded tables, loading them on first call.
func (l *Loader) Store() (*Store, error) {
	l.once.Do(func() {
		l.store, l.err = Load(l.opts)
		if l.err == nil {
			ff, lots := l.store.Len()
			logger.Info("reference data loaded: %d free float, %d lot entries", ff, lots)
		}
	})
	return l.store, l.err
}
