package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"sentiment-dashboard/internal/analysis"
	"sentiment-dashboard/internal/models"
	"sentiment-dashboard/internal/warehouse"
)

// ReviewsQuery is executed verbatim; the read path takes no parameters.
const ReviewsQuery = "SELECT * FROM REVIEWS_WITH_SENTIMENT"

// ReviewSource loads the review table through a warehouse connector.
type ReviewSource struct {
	conn    warehouse.Connector
	timeout time.Duration
}

// NewReviewSource builds a source. A zero timeout leaves the query unbounded
// apart from the caller's context.
func NewReviewSource(conn warehouse.Connector, timeout time.Duration) *ReviewSource {
	return &ReviewSource{conn: conn, timeout: timeout}
}

// LoadReviews runs ReviewsQuery and returns every row. Connection failures
// wrap models.ErrConnection, execution and scan failures models.ErrQuery.
func (s *ReviewSource) LoadReviews(ctx context.Context) (*models.RawTable, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	db, release, err := s.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn().Err(err).Msg("failed to release warehouse connection")
		}
	}()

	rows, err := db.QueryContext(ctx, ReviewsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrQuery, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrQuery, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: result has no columns", models.ErrQuery)
	}

	table := &models.RawTable{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrQuery, err)
		}

		// Drivers commonly hand strings back as byte slices.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrQuery, err)
	}

	return table, nil
}

// Dataset is everything a session derives from one load: the prepared table
// and the prompt context, both fixed for the session's lifetime.
type Dataset struct {
	Table         *models.ReviewTable
	PromptContext string
	LoadedAt      time.Time
}

// LoadDataset loads, prepares and serialises the table in one step.
func (s *ReviewSource) LoadDataset(ctx context.Context, contextRows int) (*Dataset, error) {
	raw, err := s.LoadReviews(ctx)
	if err != nil {
		return nil, err
	}

	table, err := analysis.Prepare(raw)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("rows", table.Len()).
		Int("columns", len(table.Columns())).
		Msg("loaded reviews")

	return &Dataset{
		Table:         table,
		PromptContext: analysis.ContextText(table, contextRows),
		LoadedAt:      time.Now(),
	}, nil
}
