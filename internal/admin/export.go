package admin

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export writes every row of the table matching q as CSV (default) or XLSX.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	t, ok := lookup(mux.Vars(r)["table"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		http.Error(w, fmt.Sprintf("unsupported export format %q", format), http.StatusBadRequest)
		return
	}

	rows, _, err := h.rows(r.Context(), t, strings.TrimSpace(r.URL.Query().Get("q")), 0, 0)
	if err != nil {
		h.fail(w, err)
		return
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, t.ColumnNames())
	for _, row := range rows {
		cells := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			cells[i] = formatCell(row[col.Name])
		}
		records = append(records, cells)
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, t.Name, format))
	if format == "xlsx" {
		if err := writeXLSX(w, t.Title, records); err != nil {
			h.fail(w, err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		h.fail(w, err)
	}
}

func writeXLSX(w http.ResponseWriter, sheet string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for idx, record := range records {
		axis, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(record))
		for i, val := range record {
			cells[i] = val
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", idx+1, err)
		}
	}

	w.Header().Set("Content-Type", xlsxContentType)
	return f.Write(w)
}
