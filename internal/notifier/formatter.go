package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"DipScreener/internal/calculator"
	"DipScreener/internal/commentary"
	"DipScreener/internal/model"
	"DipScreener/internal/refdata"
	"DipScreener/internal/report"
	"DipScreener/internal/screener"
	"DipScreener/internal/universe"
)

// HelpText lists the chat commands.
const HelpText = "Available commands:\n" +
	"/scan - run the screener now\n" +
	"/symbol CODE - indicator snapshot for one symbol\n" +
	"/breadth - market breadth for the latest day\n" +
	"/help - this message"

// FormatScanReport formats a scan report into a Telegram HTML message.
func FormatScanReport(rep *screener.Report, refs *refdata.Store) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>BIST dip screener</b> | %s\n", rep.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("<i>%s</i>\n", html.EscapeString(rep.Filters)))
	s := rep.Summary
	b.WriteString(fmt.Sprintf("requested %d, fetched %d, insufficient %d, failed %d\n\n",
		s.Requested, s.Fetched, s.Insufficient, s.Failed))

	switch {
	case s.SourceUnavailable():
		b.WriteString("⚠️ All symbols failed to fetch; the data source may be unavailable.\n")
	case len(rep.Results) == 0:
		b.WriteString("No symbols matched the filters.\n")
	default:
		b.WriteString(fmt.Sprintf("<b>%d matches</b>\n", len(rep.Results)))
		for _, r := range rep.Results {
			b.WriteString(formatRow(r, refs))
		}
	}

	if rep.Breadth != nil {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(report.BreadthLine(*rep.Breadth)))
		b.WriteString("\n")
	}
	return b.String()
}

func formatRow(r model.ScanResult, refs *refdata.Store) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n<b>%s</b> %s %s%s%%\n",
		universe.BaseCode(r.Symbol), report.Fixed(r.Close, 2), report.Arrow(r.ChangePct), report.Fixed(math.Abs(r.ChangePct), 2)))
	b.WriteString(fmt.Sprintf("MA20 %s | MA50 %s | MA200 %s\n",
		report.Fixed(r.MA20, 2), report.Fixed(r.MA50, 2), report.Fixed(r.MA200, 2)))
	b.WriteString(fmt.Sprintf("Vol x%s | RSI %s | FF %s | Lots %s\n",
		report.Fixed(r.VolumeRatio, 2), report.Fixed(r.RSI, 1), refs.FreeFloat(r.Symbol), refs.Lots(r.Symbol)))
	if r.Commentary != "" {
		b.WriteString(fmt.Sprintf("<i>%s</i>\n", html.EscapeString(r.Commentary)))
	}
	return b.String()
}

// FormatSymbolDetail formats the latest indicator values of one symbol.
func FormatSymbolDetail(t *model.IndicatorTable, refs *refdata.Store) string {
	last, ok := t.Series.Last()
	if !ok {
		return FormatError(fmt.Errorf("no data for %s", t.Series.Symbol))
	}
	prevClose, _ := calculator.LastTwo(t.Series.Closes())
	change := 0.0
	if prevClose != 0 && !math.IsNaN(prevClose) {
		change = (last.Close - prevClose) / prevClose * 100
	}
	avgVolume := calculator.Last(t.AvgVolume)
	ratio := 0.0
	if avgVolume > 0 {
		ratio = last.Volume / avgVolume
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>%s</b> | %s\n\n", universe.BaseCode(t.Series.Symbol), last.Date()))
	b.WriteString(fmt.Sprintf("Close: %s (%s%%)\n", report.Fixed(last.Close, 2), report.Signed(change, 2)))
	b.WriteString(fmt.Sprintf("MA20: %s | MA50: %s | MA200: %s\n",
		report.Fixed(calculator.Last(t.MA20), 2), report.Fixed(calculator.Last(t.MA50), 2), report.Fixed(calculator.Last(t.MA200), 2)))
	b.WriteString(fmt.Sprintf("RSI: %s\n", report.Fixed(calculator.Last(t.RSI), 1)))
	b.WriteString(fmt.Sprintf("MACD: %s | signal %s\n",
		report.Fixed(calculator.Last(t.MACD), 3), report.Fixed(calculator.Last(t.MACDSignal), 3)))
	b.WriteString(fmt.Sprintf("Bollinger: %s - %s\n",
		report.Fixed(calculator.Last(t.BBLower), 2), report.Fixed(calculator.Last(t.BBUpper), 2)))
	if t.HasSupertrend() {
		dir := "down"
		if n := len(t.SupertrendUp); n > 0 && t.SupertrendUp[n-1] {
			dir = "up"
		}
		b.WriteString(fmt.Sprintf("Supertrend: %s (%s)\n", report.Fixed(calculator.Last(t.Supertrend), 2), dir))
	}
	b.WriteString(fmt.Sprintf("Volume: %s (x%s of average)\n", report.Volume(last.Volume), report.Fixed(ratio, 2)))
	b.WriteString(fmt.Sprintf("Free float: %s | Lots: %s\n", refs.FreeFloat(t.Series.Symbol), refs.Lots(t.Series.Symbol)))

	c := commentary.Generate(commentary.FromTable(t, ratio))
	b.WriteString(fmt.Sprintf("\n<i>%s</i>", html.EscapeString(c.String())))
	return b.String()
}

// FormatBreadth formats a market breadth statistic.
func FormatBreadth(b model.Breadth) string {
	return "📈 " + html.EscapeString(report.BreadthLine(b))
}

// FormatError formats a failure notice.
func FormatError(err error) string {
	return fmt.Sprintf("❌ <b>Error</b>\n<code>%s</code>", html.EscapeString(err.Error()))
}
