package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/ppe-vision/internal/model"
)

// ExportKind selects an export format.
type ExportKind string

const (
	ExportJSON ExportKind = "json"
	ExportCSV  ExportKind = "csv"
	ExportXLSX ExportKind = "xlsx"
)

// ParseExportKind validates a format name.
func ParseExportKind(s string) (ExportKind, error) {
	switch k := ExportKind(strings.ToLower(s)); k {
	case ExportJSON, ExportCSV, ExportXLSX:
		return k, nil
	default:
		return "", eris.Errorf("ledger: unknown export format %q", s)
	}
}

// ExportFileName is the suggested file name for an export made at now.
func ExportFileName(kind ExportKind, now time.Time) string {
	ms := now.UnixMilli()
	if kind == ExportJSON {
		return fmt.Sprintf("ppe-detection-report-%d.json", ms)
	}
	return fmt.Sprintf("ppe-history-%d.%s", ms, kind)
}

// TimestampLayout formats run timestamps in tabular exports.
const TimestampLayout = "2006-01-02 15:04:05"

var historyColumns = []string{"Timestamp", "Filename", "Total Detections", "Violations", "Status"}

// Snapshot is the current-run context bundled with a JSON report.
type Snapshot struct {
	ExportedAt time.Time
	Stats      model.Counts
	Detections []model.Detection
}

type report struct {
	ExportDate        time.Time         `json:"exportDate"`
	Statistics        model.Counts      `json:"statistics"`
	CurrentDetections []model.Detection `json:"currentDetections"`
	History           []model.RunResult `json:"history"`
}

// WriteJSON writes the full report: export date, current statistics and
// detections, and the whole history.
func (l *Ledger) WriteJSON(w io.Writer, snap Snapshot) error {
	if snap.ExportedAt.IsZero() {
		snap.ExportedAt = time.Now().UTC()
	}
	rep := report{
		ExportDate:        snap.ExportedAt,
		Statistics:        snap.Stats,
		CurrentDetections: snap.Detections,
		History:           l.List(),
	}
	if rep.CurrentDetections == nil {
		rep.CurrentDetections = []model.Detection{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(rep), "ledger: encode json report")
}

// WriteCSV writes one line per run. Fields are joined with commas as-is;
// the timestamp layout and status strings never contain one.
func (l *Ledger) WriteCSV(w io.Writer) error {
	var b strings.Builder
	b.WriteString(strings.Join(historyColumns, ","))
	b.WriteByte('\n')
	for _, r := range l.List() {
		b.WriteString(strings.Join([]string{
			r.Timestamp.Format(TimestampLayout),
			r.SourceName,
			strconv.Itoa(r.Counts.Total),
			strconv.Itoa(r.Counts.Violations),
			r.Status(),
		}, ","))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "ledger: write csv")
}

// WriteXLSX writes the history as a single-sheet workbook with an extra
// compliance rate column.
func (l *Ledger) WriteXLSX(w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("History")
	if err != nil {
		return eris.Wrap(err, "ledger: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range slices.Concat(historyColumns, []string{"Compliance Rate"}) {
		header.AddCell().SetString(c)
	}
	for _, r := range l.List() {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Timestamp.Format(TimestampLayout))
		row.AddCell().SetString(r.SourceName)
		row.AddCell().SetInt(r.Counts.Total)
		row.AddCell().SetInt(r.Counts.Violations)
		row.AddCell().SetString(r.Status())
		row.AddCell().SetInt(r.ComplianceRatePct)
	}
	return eris.Wrap(f.Write(w), "ledger: write xlsx")
}

// Export dispatches to the writer for kind.
func (l *Ledger) Export(w io.Writer, kind ExportKind, snap Snapshot) error {
	switch kind {
	case ExportJSON:
		return l.WriteJSON(w, snap)
	case ExportCSV:
		return l.WriteCSV(w)
	case ExportXLSX:
		return l.WriteXLSX(w)
	default:
		return eris.Errorf("ledger: unknown export format %q", kind)
	}
}
