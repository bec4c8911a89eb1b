package models

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// Column names of REVIEWS_WITH_SENTIMENT the dashboard depends on.
const (
	ColumnProduct        = "PRODUCT"
	ColumnSentimentScore = "SENTIMENT_SCORE"
	ColumnReviewDate     = "REVIEW_DATE"
	ColumnShippingDate   = "SHIPPING_DATE"
)

// RequiredColumns must all be present in a loaded table.
var RequiredColumns = []string{ColumnProduct, ColumnSentimentScore, ColumnReviewDate, ColumnShippingDate}

// RawTable is a query result as returned by the driver.
type RawTable struct {
	Columns []string
	Rows    [][]any
}

// Date is a calendar date or the unknown marker.
type Date struct {
	Time  time.Time
	Valid bool
}

const dateLayout = "2006-01-02"

// UnknownDate is what an unparsable or NULL date turns into.
var UnknownDate = Date{}

func NewDate(t time.Time) Date {
	return Date{Time: t, Valid: true}
}

func (d Date) String() string {
	if !d.Valid {
		return "unknown"
	}
	return d.Time.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = UnknownDate
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*d = NewDate(t)
	return nil
}

// ReviewRecord is one row of the review table.
type ReviewRecord struct {
	Product        string
	SentimentScore float64
	ReviewDate     Date
	ShippingDate   Date
	// Fields holds every source column rendered as text, keyed by the
	// upper-cased column name.
	Fields map[string]string
}

func (r ReviewRecord) clone() ReviewRecord {
	r.Fields = maps.Clone(r.Fields)
	return r
}

// ReviewTable is an ordered, read-only collection of records. Derived views
// are new tables; nothing mutates a table after construction.
type ReviewTable struct {
	columns []string
	records []ReviewRecord
}

// NewReviewTable copies its inputs so later changes by the caller do not leak in.
func NewReviewTable(columns []string, records []ReviewRecord) *ReviewTable {
	t := &ReviewTable{
		columns: slices.Clone(columns),
		records: make([]ReviewRecord, len(records)),
	}
	for i, r := range records {
		t.records[i] = r.clone()
	}
	return t
}

func (t *ReviewTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Columns returns the source column order.
func (t *ReviewTable) Columns() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.columns)
}

// Records returns a deep copy of the rows.
func (t *ReviewTable) Records() []ReviewRecord {
	if t == nil {
		return nil
	}
	out := make([]ReviewRecord, len(t.records))
	for i, r := range t.records {
		out[i] = r.clone()
	}
	return out
}

// Scores returns the sentiment scores in row order.
func (t *ReviewTable) Scores() []float64 {
	if t == nil {
		return nil
	}
	out := make([]float64, len(t.records))
	for i, r := range t.records {
		out[i] = r.SentimentScore
	}
	return out
}

// Where returns a new table holding the rows for which keep is true, in order.
func (t *ReviewTable) Where(keep func(ReviewRecord) bool) *ReviewTable {
	if t == nil {
		return NewReviewTable(nil, nil)
	}
	kept := make([]ReviewRecord, 0, len(t.records))
	for _, r := range t.records {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	return NewReviewTable(t.columns, kept)
}

// Head returns a new table with at most n leading rows.
func (t *ReviewTable) Head(n int) *ReviewTable {
	if t == nil {
		return NewReviewTable(nil, nil)
	}
	if n > len(t.records) {
		n = len(t.records)
	}
	if n < 0 {
		n = 0
	}
	return NewReviewTable(t.columns, t.records[:n])
}
