package analysis

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"sentiment-dashboard/internal/models"
)

// MaxContextRows bounds how many rows are serialised for the language model.
const MaxContextRows = 50

var cellReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// ContextText renders the first rows of the table as aligned plain text,
// header first, without a row index. rows outside [1, MaxContextRows] is
// clamped to MaxContextRows.
func ContextText(table *models.ReviewTable, rows int) string {
	if rows <= 0 || rows > MaxContextRows {
		rows = MaxContextRows
	}
	head := table.Head(rows)
	columns := head.Columns()

	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(columns, "\t"))

	cells := make([]string, len(columns))
	for _, rec := range head.Records() {
		for i, col := range columns {
			cells[i] = cellReplacer.Replace(rec.Fields[col])
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()

	return strings.TrimRight(buf.String(), "\n")
}
