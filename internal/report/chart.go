package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"DipScreener/internal/calculator"
	"DipScreener/internal/model"
	"DipScreener/internal/universe"
)

const (
	levelWindow = 20
	levelCount  = 5
)

// WriteChart renders an HTML page with the price panel (candles, moving
// averages, support and resistance), the RSI panel and the MACD panel.
// Bollinger and Supertrend overlays are drawn when present in t.
func WriteChart(w io.Writer, t *model.IndicatorTable) error {
	bars := t.Series.Bars
	if len(bars) == 0 {
		return fmt.Errorf("chart %s: no bars", t.Series.Symbol)
	}
	name := universe.BaseCode(t.Series.Symbol)
	dates := make([]string, len(bars))
	for i, b := range bars {
		dates[i] = b.Date()
	}

	price, err := priceChart(name, dates, t)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.SetPageTitle(name + " technical view")
	page.AddCharts(price, rsiChart(dates, t.RSI), macdChart(dates, t))
	return page.Render(w)
}

func priceChart(name string, dates []string, t *model.IndicatorTable) (*charts.Kline, error) {
	candles := make([]opts.KlineData, len(t.Series.Bars))
	for i, b := range t.Series.Bars {
		// open, close, low, high
		candles[i] = opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}}
	}

	support, resistance, err := calculator.SupportResistance(t.Series.Bars, levelWindow)
	if err != nil {
		return nil, fmt.Errorf("support/resistance: %w", err)
	}
	var levels []opts.MarkLineNameYAxisItem
	for _, l := range calculator.Tail(support, levelCount) {
		levels = append(levels, opts.MarkLineNameYAxisItem{Name: "support " + l.Date, YAxis: l.Price})
	}
	for _, l := range calculator.Tail(resistance, levelCount) {
		levels = append(levels, opts.MarkLineNameYAxisItem{Name: "resistance " + l.Date, YAxis: l.Price})
	}

	k := charts.NewKLine()
	k.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: name, Subtitle: "daily candles with MA20/MA50/MA200"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)
	k.SetXAxis(dates).AddSeries("price", candles,
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        "#2ecc71",
			Color0:       "#e74c3c",
			BorderColor:  "#2ecc71",
			BorderColor0: "#e74c3c",
		}),
		charts.WithMarkLineNameYAxisItemOpts(levels...),
		charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
			Symbol:    []string{"none", "none"},
			LineStyle: &opts.LineStyle{Type: "dotted", Opacity: opts.Float(0.4)},
		}),
	)

	overlay := charts.NewLine()
	overlay.SetXAxis(dates)
	addLine(overlay, "MA20", t.MA20, "orange")
	addLine(overlay, "MA50", t.MA50, "green")
	addLine(overlay, "MA200", t.MA200, "red")
	if t.BBUpper != nil {
		addLine(overlay, "BB upper", t.BBUpper, "#95a5a6")
		addLine(overlay, "BB lower", t.BBLower, "#95a5a6")
	}
	if t.HasSupertrend() {
		addLine(overlay, "Supertrend", t.Supertrend, "#8e44ad")
	}
	k.Overlap(overlay)
	return k, nil
}

func rsiChart(dates []string, rsi []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "220px"}),
		charts.WithTitleOpts(opts.Title{Title: "RSI"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100}),
	)
	line.SetXAxis(dates).AddSeries("RSI", lineData(rsi),
		charts.WithLineStyleOpts(opts.LineStyle{Color: "purple"}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithMarkLineNameYAxisItemOpts(
			opts.MarkLineNameYAxisItem{Name: "overbought", YAxis: 70},
			opts.MarkLineNameYAxisItem{Name: "oversold", YAxis: 30},
		),
	)
	return line
}

func macdChart(dates []string, t *model.IndicatorTable) *charts.Bar {
	hist := make([]opts.BarData, len(t.MACDHist))
	for i, v := range t.MACDHist {
		hist[i] = opts.BarData{Value: value(v)}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "240px"}),
		charts.WithTitleOpts(opts.Title{Title: "MACD"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
	)
	bar.SetXAxis(dates).AddSeries("histogram", hist,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "gray"}))

	lines := charts.NewLine()
	lines.SetXAxis(dates)
	addLine(lines, "MACD", t.MACD, "blue")
	addLine(lines, "signal", t.MACDSignal, "orange")
	bar.Overlap(lines)
	return bar
}

func addLine(line *charts.Line, name string, series []float64, color string) {
	line.AddSeries(name, lineData(series),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 1.5}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
}

func lineData(series []float64) []opts.LineData {
	out := make([]opts.LineData, len(series))
	for i, v := range series {
		out[i] = opts.LineData{Value: value(v)}
	}
	return out
}

// value maps undefined points to "-", which echarts draws as a gap.
func value(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return v
}
