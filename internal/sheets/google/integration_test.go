//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ReadRange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	id := os.Getenv("GOOGLE_SPREADSHEET_ID")
	rng := os.Getenv("GOOGLE_PAYOUTS_RANGE")
	if id == "" || rng == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID or GOOGLE_PAYOUTS_RANGE not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := New(ctx, OptionsFromEnv())
	require.NoError(t, err)

	tb, err := c.Reader(id, rng).Read(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, tb.Rows)
	t.Logf("read %d rows from %s", len(tb.Rows), tb.Name)
}
