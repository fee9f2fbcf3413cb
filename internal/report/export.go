package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/tidwall/pretty"

	"DipScreener/internal/model"
	"DipScreener/internal/screener"
	"DipScreener/internal/universe"
)

// Row is the exported form of a scan result. Undefined indicators are null.
type Row struct {
	Symbol      string   `json:"symbol"`
	Date        string   `json:"date"`
	Close       *float64 `json:"close"`
	ChangePct   *float64 `json:"change_pct"`
	MA20        *float64 `json:"ma20"`
	MA50        *float64 `json:"ma50"`
	MA200       *float64 `json:"ma200"`
	Volume      float64  `json:"volume"`
	VolumeRatio *float64 `json:"volume_ratio"`
	RSI         *float64 `json:"rsi"`
	Commentary  string   `json:"commentary,omitempty"`
}

// NewRow rounds a result for export.
func NewRow(r model.ScanResult) Row {
	return Row{
		Symbol:      universe.BaseCode(r.Symbol),
		Date:        r.AsOf,
		Close:       roundPtr(r.Close, 2),
		ChangePct:   roundPtr(r.ChangePct, 2),
		MA20:        roundPtr(r.MA20, 2),
		MA50:        roundPtr(r.MA50, 2),
		MA200:       roundPtr(r.MA200, 2),
		Volume:      r.Volume,
		VolumeRatio: roundPtr(r.VolumeRatio, 2),
		RSI:         roundPtr(r.RSI, 2),
		Commentary:  r.Commentary,
	}
}

type jsonReport struct {
	RunID    string           `json:"run_id"`
	Filters  string           `json:"filters"`
	Summary  screener.Summary `json:"summary"`
	Results  []Row            `json:"results"`
	Breadth  *jsonBreadth     `json:"breadth,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

type jsonBreadth struct {
	Date         string   `json:"date"`
	Advancing    int      `json:"advancing"`
	Declining    int      `json:"declining"`
	Unchanged    int      `json:"unchanged"`
	Ratio        *float64 `json:"ratio"`
	Insufficient bool     `json:"insufficient_data"`
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep *screener.Report) error {
	out := jsonReport{
		RunID:   rep.RunID,
		Filters: rep.Filters,
		Summary: rep.Summary,
		Results: make([]Row, len(rep.Results)),
	}
	for i, r := range rep.Results {
		out.Results[i] = NewRow(r)
	}
	if b := rep.Breadth; b != nil {
		out.Breadth = &jsonBreadth{
			Date:         b.Date,
			Advancing:    b.Advancing,
			Declining:    b.Declining,
			Unchanged:    b.Unchanged,
			Ratio:        roundPtr(b.Ratio, 4),
			Insufficient: b.InsufficientData,
		}
	}
	if rep.Summary.SourceUnavailable() {
		out.Warnings = append(out.Warnings, "all symbols failed to fetch; data source may be unavailable")
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}

var csvHeader = []string{"symbol", "date", "close", "change_pct", "ma20", "ma50", "ma200", "volume", "volume_ratio", "rsi", "commentary"}

// WriteCSV writes one line per result. Undefined values are empty cells.
func WriteCSV(w io.Writer, results []model.ScanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := NewRow(r)
		record := []string{
			row.Symbol,
			row.Date,
			cell(row.Close),
			cell(row.ChangePct),
			cell(row.MA20),
			cell(row.MA50),
			cell(row.MA200),
			strconv.FormatFloat(row.Volume, 'f', -1, 64),
			cell(row.VolumeRatio),
			cell(row.RSI),
			row.Commentary,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
