package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// seedWarehouse creates a sqlite database holding REVIEWS_WITH_SENTIMENT.
func seedWarehouse(t *testing.T, rows [][]any) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "warehouse.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE REVIEWS_WITH_SENTIMENT (
		ORDER_ID INTEGER,
		PRODUCT TEXT,
		REVIEW_DATE TEXT,
		SHIPPING_DATE TEXT,
		REVIEW_TEXT TEXT,
		SENTIMENT_SCORE REAL
	)`)
	require.NoError(t, err)

	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO REVIEWS_WITH_SENTIMENT VALUES (?, ?, ?, ?, ?, ?)`, r...)
		require.NoError(t, err)
	}
	return dbPath
}

type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	block   chan struct{}
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	block, reply, err := f.block, f.reply, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (f *fakeClient) set(reply string, err error, block chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply, f.err, f.block = reply, err, block
}

func (f *fakeClient) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}
