// Package analysis prepares the review table and derives the views the
// dashboard shows: aggregates, distributions, filtered subsets and the text
// handed to the language model.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"sentiment-dashboard/internal/models"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// Prepare validates the raw result and converts it into a ReviewTable.
// Missing required columns and unusable scores wrap models.ErrSchema; bad
// dates become models.UnknownDate.
func Prepare(raw *models.RawTable) (*models.ReviewTable, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no table", models.ErrSchema)
	}

	columns := make([]string, len(raw.Columns))
	index := make(map[string]int, len(raw.Columns))
	for i, col := range raw.Columns {
		columns[i] = strings.ToUpper(strings.TrimSpace(col))
		index[columns[i]] = i
	}

	for _, col := range models.RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %s", models.ErrSchema, col)
		}
	}

	productIdx := index[models.ColumnProduct]
	scoreIdx := index[models.ColumnSentimentScore]
	reviewIdx := index[models.ColumnReviewDate]
	shippingIdx := index[models.ColumnShippingDate]

	records := make([]models.ReviewRecord, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", models.ErrSchema, i, len(row), len(columns))
		}

		score, err := parseScore(row[scoreIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s: %v", models.ErrSchema, i, models.ColumnSentimentScore, err)
		}

		rec := models.ReviewRecord{
			Product:        cellText(row[productIdx]),
			SentimentScore: score,
			ReviewDate:     parseDate(row[reviewIdx]),
			ShippingDate:   parseDate(row[shippingIdx]),
			Fields:         make(map[string]string, len(columns)),
		}
		for j, col := range columns {
			switch j {
			case scoreIdx:
				rec.Fields[col] = strconv.FormatFloat(score, 'f', -1, 64)
			case reviewIdx:
				rec.Fields[col] = rec.ReviewDate.String()
			case shippingIdx:
				rec.Fields[col] = rec.ShippingDate.String()
			default:
				rec.Fields[col] = cellText(row[j])
			}
		}
		records = append(records, rec)
	}

	return models.NewReviewTable(columns, records), nil
}

func parseScore(v any) (float64, error) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing value")
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int64:
		f = float64(val)
	case int32:
		f = float64(val)
	case int:
		f = float64(val)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", val)
		}
		f = d.InexactFloat64()
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %v", f)
	}
	return f, nil
}

func parseDate(v any) models.Date {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return models.UnknownDate
		}
		return models.NewDate(val)
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return models.NewDate(t)
			}
		}
	}
	return models.UnknownDate
}

func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// Stats computes min, max, mean and median of the sentiment scores.
func Stats(table *models.ReviewTable) (models.ScoreStats, error) {
	values := table.Scores()
	if len(values) == 0 {
		return models.ScoreStats{}, ErrNoData
	}

	sort.Float64s(values)
	out := models.ScoreStats{
		Min:  values[0],
		Max:  values[len(values)-1],
		Mean: stat.Mean(values, nil),
	}

	if len(values)%2 == 0 {
		out.Median = (values[len(values)/2-1] + values[len(values)/2]) / 2
	} else {
		out.Median = values[len(values)/2]
	}

	return out, nil
}
