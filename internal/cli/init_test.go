package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payouts/internal/core"
	"payouts/internal/schema"
)

func TestParseMonthOverrides(t *testing.T) {
	got, err := ParseMonthOverrides([]string{"export.csv=2024-03", " b.xlsx = 2024/11 "})
	require.NoError(t, err)
	assert.Equal(t, core.NewMonth(2024, 3), got["export.csv"])
	assert.Equal(t, core.NewMonth(2024, 11), got["b.xlsx"])

	for _, bad := range []string{"export.csv", "=2024-01", "a.csv=2024-13", "a.csv=march"} {
		_, err := ParseMonthOverrides([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestPrompterRetriesUntilValid(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("nope\n2024-02\n"), &out)

	m, ok := p.ResolveMonth(context.Background(), "export.csv", schema.Layout{HeaderRow: 1})
	require.True(t, ok)
	assert.Equal(t, core.NewMonth(2024, 2), m)
	assert.Contains(t, out.String(), "Report month for export.csv (header on row 2)")
	assert.Contains(t, out.String(), `"nope" is not a valid month`)
}

func TestPrompterEmptyAnswerSkips(t *testing.T) {
	p := NewPrompter(strings.NewReader("\n"), &bytes.Buffer{})
	_, ok := p.ResolveMonth(context.Background(), "x.csv", schema.Layout{})
	assert.False(t, ok)

	p = NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	_, ok = p.ResolveMonth(context.Background(), "x.csv", schema.Layout{})
	assert.False(t, ok)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAYOUTS_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Setenv("PAYOUTS_TEST_VALUE", "")
	os.Unsetenv("PAYOUTS_TEST_VALUE")

	LoadEnvFile(path, filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, "from-dotenv", os.Getenv("PAYOUTS_TEST_VALUE"))
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PAYOUTS_WORKERS", "2")
	t.Setenv("PAYOUTS_CURRENCY", "CNY")
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	logger := SetupLogger("error", io.Discard)

	cfg, err := LoadAndValidateConfig(logger)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)

	t.Setenv("PAYOUTS_POLICY", "weekly")
	_, err = LoadAndValidateConfig(logger)
	assert.Error(t, err)
}
