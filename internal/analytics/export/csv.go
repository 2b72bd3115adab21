// Package export serialises monthly rollups for attachment delivery.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/datapulse/datapulse/internal/analytics"
)

// MonthlyCSVFilename is the attachment name for CSV exports.
const MonthlyCSVFilename = "monthly_summary.csv"

// WriteMonthlyCSV emits the monthly rollup as CSV. The header row is always
// written, even when there are no data rows.
func WriteMonthlyCSV(w io.Writer, rows []analytics.MonthlyRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Year", "Month", "Revenue", "Cost", "Profit"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			strconv.Itoa(row.Year),
			strconv.Itoa(row.Month),
			formatFloat(row.Revenue),
			formatFloat(row.Cost),
			formatFloat(row.Profit),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
