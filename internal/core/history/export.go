package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Export formats accepted by the history export view.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var csvHeader = []string{
	"ID", "Timestamp", "Product ID", "Category", "Verification Result", "Overall Confidence",
	"Label Match", "Label Confidence", "Overview Match", "Overview Confidence", "AI Model",
}

// Export is the JSON export document.
type Export struct {
	ExportedAt   time.Time `json:"exportedAt"`
	TotalRecords int       `json:"totalRecords"`
	Records      []Item    `json:"records"`
}

func NewExport(items []Item, now time.Time) Export {
	if items == nil {
		items = []Item{}
	}
	return Export{ExportedAt: now.UTC(), TotalRecords: len(items), Records: items}
}

// ExportFilename names an export file, e.g. history-export-20260102-150405.csv.
func ExportFilename(now time.Time, format string) string {
	return fmt.Sprintf("history-export-%s.%s", now.UTC().Format("20060102-150405"), format)
}

// WriteCSV writes one row per item after the header. Confidences carry three
// decimals.
func WriteCSV(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, it := range items {
		ts := ""
		if !it.Timestamp.IsZero() {
			ts = it.Timestamp.UTC().Format(time.RFC3339)
		}
		row := []string{
			it.ID,
			ts,
			it.ProductID,
			it.ProductCategory,
			string(it.VerificationResult),
			confidence(it.OverallConfidence),
			it.LabelMatch.Result,
			confidence(it.LabelMatch.Confidence),
			it.OverviewMatch.Result,
			confidence(it.OverviewMatch.Confidence),
			it.Model,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func confidence(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}
