package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-dashboard/internal/models"
)

func testCredentials() Credentials {
	return Credentials{
		User:      "analyst",
		Password:  "secret",
		Account:   "xy12345",
		Warehouse: "COMPUTE_WH",
		Database:  "AVALANCHE_DB",
		Schema:    "AVALANCHE_SCHEMA",
		Role:      "ACCOUNTADMIN",
	}
}

func TestExplicitOpensAndClosesPerCall(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "wh.db")
	opens := 0
	conn := NewExplicit(testCredentials(), func(ctx context.Context, creds Credentials) (*sql.DB, error) {
		opens++
		return sql.Open("sqlite", dbPath)
	})
	ctx := context.Background()

	db1, release1, err := conn.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release1())
	assert.Error(t, db1.PingContext(ctx), "released handle must be closed")

	db2, release2, err := conn.Acquire(ctx)
	require.NoError(t, err)
	defer release2()

	assert.NotSame(t, db1, db2)
	assert.Equal(t, 2, opens)
	assert.NoError(t, db2.PingContext(ctx))
}

func TestExplicitOpenFailureIsConnectionError(t *testing.T) {
	conn := NewExplicit(testCredentials(), func(ctx context.Context, creds Credentials) (*sql.DB, error) {
		return nil, errors.New("incorrect username or password")
	})

	_, _, err := conn.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConnection)
	assert.NotContains(t, err.Error(), "secret")
}

func TestExplicitRejectsIncompleteCredentials(t *testing.T) {
	creds := testCredentials()
	creds.Role = ""
	called := false
	conn := NewExplicit(creds, func(ctx context.Context, creds Credentials) (*sql.DB, error) {
		called = true
		return nil, nil
	})

	_, _, err := conn.Acquire(context.Background())
	assert.ErrorIs(t, err, models.ErrConnection)
	assert.Contains(t, err.Error(), "role")
	assert.False(t, called)
}

func TestDelegatedSharesPool(t *testing.T) {
	ctx := context.Background()
	conn, err := OpenDelegated(ctx, "sqlite", filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer conn.Close()

	db1, release1, err := conn.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release1())

	db2, release2, err := conn.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release2())

	assert.Same(t, db1, db2)
	assert.NoError(t, db2.PingContext(ctx), "release must not close the shared pool")
}

func TestOpenDelegatedFailures(t *testing.T) {
	ctx := context.Background()

	_, err := OpenDelegated(ctx, "sqlite", "")
	assert.ErrorIs(t, err, models.ErrConnection)

	_, err = OpenDelegated(ctx, "no-such-driver", "whatever")
	assert.ErrorIs(t, err, models.ErrConnection)

	var empty Delegated
	_, _, err = empty.Acquire(ctx)
	assert.ErrorIs(t, err, models.ErrConnection)
}
