package trajectory

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Header is the column layout of a CR3BP output row.
var Header = []string{"t", "x", "y", "z", "vx", "vy", "vz"}

type ExportData struct {
	Mu        float64            `json:"mu"`
	Span      [2]float64         `json:"span"`
	Tolerance float64            `json:"tolerance"`
	Steps     int                `json:"steps"`
	Rows      [][]float64        `json:"rows"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

func WriteCSV(w io.Writer, rows [][]float64) error {
	cw := csv.NewWriter(w)

	header := Header
	if len(rows) > 0 && len(rows[0]) != len(Header) {
		header = []string{"t"}
		for i := 1; i < len(rows[0]); i++ {
			header = append(header, fmt.Sprintf("x%d", i-1))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, len(row))
		for i, val := range row {
			record[i] = strconv.FormatFloat(val, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, data ExportData) error {
	data.Steps = len(data.Rows)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// WriteTable prints rows as whitespace separated columns, one per line.
func WriteTable(w io.Writer, rows [][]float64) error {
	for _, row := range rows {
		for i, val := range row {
			sep := " "
			if i == len(row)-1 {
				sep = "\n"
			}
			if _, err := fmt.Fprintf(w, "%.12g%s", val, sep); err != nil {
				return err
			}
		}
	}
	return nil
}
