package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"DipScreener/internal/calculator"
	"DipScreener/internal/model"
	"DipScreener/internal/refdata"
	"DipScreener/internal/screener"
)

func sampleReport() *screener.Report {
	return &screener.Report{
		RunID:   "run-1",
		Filters: "ma(all,+5.0%) and volume(>=1.50x/20d)",
		Results: []model.ScanResult{
			{
				Symbol: "THYAO.IS", AsOf: "2024-05-02", Close: 280.456, ChangePct: -1.234,
				MA20: 290.1, MA50: 300.2, MA200: math.NaN(), Volume: 1500000, AvgVolume: 1000000,
				VolumeRatio: 1.5, RSI: 28.44, Commentary: "oversold; volume average",
			},
			{
				Symbol: "GARAN.IS", AsOf: "2024-05-02", Close: 100, ChangePct: 2.5,
				MA20: 101, MA50: 102, MA200: 103, Volume: 2000, AvgVolume: 1000,
				VolumeRatio: 2, RSI: math.NaN(),
			},
		},
		Summary: screener.Summary{Requested: 3, Fetched: 3, Matched: 2},
	}
}

func TestFixed(t *testing.T) {
	tests := []struct {
		v      float64
		places int32
		want   string
	}{
		{1.005, 2, "1.01"},
		{2.5, 0, "3"},
		{-1.234, 2, "-1.23"},
		{10, 2, "10.00"},
		{math.NaN(), 2, "-"},
		{math.Inf(1), 2, "-"},
	}
	for _, tt := range tests {
		if got := Fixed(tt.v, tt.places); got != tt.want {
			t.Errorf("Fixed(%v, %d) = %q, want %q", tt.v, tt.places, got, tt.want)
		}
	}
	if got := Signed(1.5, 1); got != "+1.5" {
		t.Errorf("Signed(1.5) = %q", got)
	}
	if got := Signed(-1.5, 1); got != "-1.5" {
		t.Errorf("Signed(-1.5) = %q", got)
	}
}

func TestTerminal_RendersRowsAndReferenceData(t *testing.T) {
	refs := refdata.NewStore(map[string]float64{"THYAO": 50.4}, map[string]float64{"THYAO": 1380000000})
	var buf bytes.Buffer
	if err := NewTerminal(&buf, refs).Render(sampleReport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"run-1", "2 symbols matched", "THYAO", "GARAN", "280.46", "▼ 1.23", "▲ 2.50", "50.4", "1380000000", "N/A", "oversold; volume average"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTerminal_EmptyAndOutage(t *testing.T) {
	empty := &screener.Report{RunID: "r", Summary: screener.Summary{Requested: 2, Fetched: 2}}
	var buf bytes.Buffer
	if err := NewTerminal(&buf, nil).Render(empty); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No symbols matched") {
		t.Errorf("expected empty-result message, got %s", buf.String())
	}

	outage := &screener.Report{RunID: "r", Summary: screener.Summary{Requested: 2, Failed: 2}}
	buf.Reset()
	if err := NewTerminal(&buf, nil).Render(outage); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "data source may be unavailable") {
		t.Errorf("expected outage warning, got %s", buf.String())
	}
}

func TestBreadthLine(t *testing.T) {
	ok := model.Breadth{Date: "2024-05-02", Advancing: 3, Declining: 2, Ratio: 1.25}
	if got := BreadthLine(ok); !strings.Contains(got, "ratio 1.25") {
		t.Errorf("unexpected %q", got)
	}
	bad := model.Breadth{Date: "2024-05-02", Advancing: 3, Ratio: math.NaN(), InsufficientData: true}
	if got := BreadthLine(bad); !strings.Contains(got, "insufficient data") {
		t.Errorf("unexpected %q", got)
	}
}

func TestWriteJSON_NullsUndefinedValues(t *testing.T) {
	rep := sampleReport()
	b := model.Breadth{Date: "2024-05-02", Advancing: 1, Ratio: math.NaN(), InsufficientData: true}
	rep.Breadth = &b

	var buf bytes.Buffer
	if err := WriteJSON(&buf, rep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded struct {
		RunID   string `json:"run_id"`
		Results []struct {
			Symbol string   `json:"symbol"`
			Close  *float64 `json:"close"`
			MA200  *float64 `json:"ma200"`
			RSI    *float64 `json:"rsi"`
		} `json:"results"`
		Summary struct {
			Matched int `json:"matched"`
		} `json:"summary"`
		Breadth struct {
			Ratio        *float64 `json:"ratio"`
			Insufficient bool     `json:"insufficient_data"`
		} `json:"breadth"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if decoded.RunID != "run-1" || decoded.Summary.Matched != 2 || len(decoded.Results) != 2 {
		t.Errorf("unexpected decoded report %+v", decoded)
	}
	first := decoded.Results[0]
	if first.Symbol != "THYAO" || first.Close == nil || *first.Close != 280.46 {
		t.Errorf("unexpected first row %+v", first)
	}
	if first.MA200 != nil {
		t.Error("expected undefined MA200 as null")
	}
	if decoded.Results[1].RSI != nil {
		t.Error("expected undefined RSI as null")
	}
	if decoded.Breadth.Ratio != nil || !decoded.Breadth.Insufficient {
		t.Errorf("unexpected breadth %+v", decoded.Breadth)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleReport().Results); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "symbol" || records[1][0] != "THYAO" {
		t.Errorf("unexpected records %v", records)
	}
	if records[1][6] != "" {
		t.Errorf("expected empty MA200 cell, got %q", records[1][6])
	}
	if records[1][2] != "280.46" {
		t.Errorf("expected rounded close, got %q", records[1][2])
	}
}

func chartTable(t *testing.T, n int, extras bool) *model.IndicatorTable {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := 100 + 10*math.Sin(float64(i)/7)
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	p := calculator.DefaultParams()
	p.Extras = extras
	tbl, err := calculator.BuildTable(model.PriceSeries{Symbol: "ASELS.IS", Bars: bars}, p)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, chartTable(t, 120, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"ASELS", "candlestick", "MA20", "MA200", "RSI", "MACD", "Supertrend"} {
		if !strings.Contains(html, want) {
			t.Errorf("chart missing %q", want)
		}
	}
	if strings.Contains(html, "NaN") {
		t.Error("undefined points must not be rendered as NaN")
	}
}

func TestWriteChart_Levels(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, 60)
	for i := range bars {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: 50, High: 51, Low: 49, Close: 50, Volume: 100}
	}
	tbl, err := calculator.BuildTable(model.PriceSeries{Symbol: "FLAT.IS", Bars: bars}, calculator.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteChart(&buf, tbl); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "support") || !strings.Contains(buf.String(), "resistance") {
		t.Error("expected support and resistance mark lines")
	}
}

func TestWriteChart_NoBars(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, &model.IndicatorTable{}); err == nil {
		t.Fatal("expected error for empty table")
	}
}
