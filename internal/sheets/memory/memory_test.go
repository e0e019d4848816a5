package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "payouts/internal/sheets"
)

func TestReaderCopiesRows(t *testing.T) {
	r := New("a.csv", []string{"Listing", "Nights"}, []string{"Loft", "2"})

	tb, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a.csv", tb.Name)
	require.Len(t, tb.Rows, 2)

	tb.Rows[1][0] = "changed"
	again, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Loft", again.Rows[1][0])
}

func TestFailingReader(t *testing.T) {
	_, err := Failing("bad.xlsx", errors.New("zip: not a valid zip file")).Read(context.Background())
	assert.ErrorIs(t, err, ports.ErrUnreadable)
	assert.Equal(t, "bad.xlsx", ports.NameOf(Failing("bad.xlsx", nil)))
}

func TestReaderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("a.csv").Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
