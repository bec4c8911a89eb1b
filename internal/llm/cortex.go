package llm

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"

	"sentiment-dashboard/internal/warehouse"
)

// DefaultCortexFunction is the warehouse-side completion function.
const DefaultCortexFunction = "SNOWFLAKE.CORTEX.COMPLETE"

var functionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// CortexClient runs completions through the warehouse connection. Model and
// prompt are always bound as parameters, never spliced into the statement.
type CortexClient struct {
	conn     warehouse.Connector
	model    string
	function string
}

func NewCortex(conn warehouse.Connector, model string) *CortexClient {
	return &CortexClient{conn: conn, model: model, function: DefaultCortexFunction}
}

// WithFunction targets a different completion function.
func (c *CortexClient) WithFunction(name string) (*CortexClient, error) {
	if !functionName.MatchString(name) {
		return nil, fmt.Errorf("invalid completion function name %q", name)
	}
	out := *c
	out.function = name
	return &out, nil
}

func (c *CortexClient) Complete(ctx context.Context, prompt string) (string, error) {
	db, release, err := c.conn.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn().Err(err).Msg("failed to release warehouse connection")
		}
	}()

	var reply sql.NullString
	query := fmt.Sprintf("SELECT %s(?, ?)", c.function)
	if err := db.QueryRowContext(ctx, query, c.model, prompt).Scan(&reply); err != nil {
		return "", err
	}
	if !reply.Valid {
		return "", fmt.Errorf("%s returned NULL", c.function)
	}

	return reply.String, nil
}
