package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"DipScreener/internal/model"
	"DipScreener/internal/refdata"
	"DipScreener/internal/screener"
	"DipScreener/internal/universe"
)

var (
	upColor   = lipgloss.Color("#2ecc71")
	downColor = lipgloss.Color("#e74c3c")
	dimColor  = lipgloss.Color("#7f8c8d")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	noteStyle    = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	warnStyle    = lipgloss.NewStyle().Foreground(downColor).Bold(true)
	upStyle      = cellStyle.Foreground(upColor).Bold(true)
	downStyle    = cellStyle.Foreground(downColor).Bold(true)
	tableBorders = lipgloss.NewStyle().Foreground(dimColor)
)

var columns = []string{"Symbol", "Date", "Close", "Change %", "MA20", "MA50", "MA200", "Vol/Avg", "RSI", "Free Float %", "Lots"}

const changeCol = 3

// Terminal writes a coloured scan report.
type Terminal struct {
	w    io.Writer
	refs *refdata.Store
}

// NewTerminal creates a renderer. refs may be nil, in which case the
// reference columns read N/A.
func NewTerminal(w io.Writer, refs *refdata.Store) *Terminal {
	return &Terminal{w: w, refs: refs}
}

// Render writes the summary line, the result table, commentary and breadth.
func (t *Terminal) Render(rep *screener.Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Scan %s", rep.RunID)))
	b.WriteString("\n")
	b.WriteString(noteStyle.Render(fmt.Sprintf("filters: %s | requested %d, fetched %d, insufficient %d, failed %d",
		rep.Filters, rep.Summary.Requested, rep.Summary.Fetched, rep.Summary.Insufficient, rep.Summary.Failed)))
	b.WriteString("\n\n")

	switch {
	case rep.Summary.SourceUnavailable():
		b.WriteString(warnStyle.Render("All symbols failed to fetch; the data source may be unavailable."))
		b.WriteString("\n")
	case len(rep.Results) == 0:
		b.WriteString("No symbols matched the filters.\n")
	default:
		b.WriteString(fmt.Sprintf("%d symbols matched.\n", len(rep.Results)))
		b.WriteString(t.table(rep.Results))
		b.WriteString("\n")
		for _, r := range rep.Results {
			if r.Commentary == "" {
				continue
			}
			b.WriteString(fmt.Sprintf("%s %s\n", titleStyle.Render(universe.BaseCode(r.Symbol)), noteStyle.Render(r.Commentary)))
		}
	}

	if rep.Breadth != nil {
		b.WriteString("\n")
		b.WriteString(BreadthLine(*rep.Breadth))
		b.WriteString("\n")
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *Terminal) table(results []model.ScanResult) string {
	rows := make([][]string, len(results))
	changes := make([]float64, len(results))
	for i, r := range results {
		rows[i] = t.row(r)
		changes[i] = r.ChangePct
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorders).
		Headers(columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == changeCol && row >= 0 && row < len(changes) {
				if changes[row] >= 0 {
					return upStyle
				}
				return downStyle
			}
			return cellStyle
		})
	return tbl.Render()
}

func (t *Terminal) row(r model.ScanResult) []string {
	return []string{
		universe.BaseCode(r.Symbol),
		r.AsOf,
		Fixed(r.Close, 2),
		fmt.Sprintf("%s %s", Arrow(r.ChangePct), Fixed(math.Abs(r.ChangePct), 2)),
		Fixed(r.MA20, 2),
		Fixed(r.MA50, 2),
		Fixed(r.MA200, 2),
		Fixed(r.VolumeRatio, 2),
		Fixed(r.RSI, 1),
		t.refs.FreeFloat(r.Symbol).String(),
		t.refs.Lots(r.Symbol).String(),
	}
}

// BreadthLine summarizes a breadth statistic on one line.
func BreadthLine(b model.Breadth) string {
	if !b.Valid() {
		return fmt.Sprintf("Breadth %s: insufficient data (adv %d, dec %d)", b.Date, b.Advancing, b.Declining)
	}
	return fmt.Sprintf("Breadth %s: ratio %s (adv %d, dec %d, unch %d)",
		b.Date, Fixed(b.Ratio, 2), b.Advancing, b.Declining, b.Unchanged)
}
