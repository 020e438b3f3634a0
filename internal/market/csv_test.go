package market

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, symbol, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(content), 0o644))
}

func TestCSVProvider_HistoryAndPrice(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAA", `date,open,high,low,close,volume
2024-01-03,10,11,9.5,10.5,1000
2024-01-02,9.8,10.2,9.6,10.0,900
2024-01-04,10.5,10.8,10.1,10.2,800
`)

	p := NewCSVProvider(dir)
	ctx := context.Background()

	bars, err := p.History(ctx, "AAA",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	// Out-of-order rows come back sorted ascending.
	assert.Equal(t, 10.0, bars[0].Close)
	assert.Equal(t, 10.5, bars[1].Close)

	bar, err := p.Price(ctx, "AAA", time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 10.2, bar.Close)
}

func TestCSVProvider_MissingSymbol(t *testing.T) {
	p := NewCSVProvider(t.TempDir())
	_, err := p.History(context.Background(), "NOPE", time.Time{}, time.Now())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCSVProvider_MalformedRow(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BAD", "2024-01-02,1,2,3,notanumber,5\n")

	_, err := NewCSVProvider(dir).History(context.Background(), "BAD", time.Time{}, time.Now())
	assert.Error(t, err)
}

func TestBuildSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAA", "2024-01-02,1,1,1,10,100\n2024-01-03,1,1,1,11,100\n")
	writeCSV(t, dir, "BBB", "2024-01-03,1,1,1,20,100\n")

	snap, err := BuildSnapshot(context.Background(), NewCSVProvider(dir),
		[]string{"AAA", "BBB", "MISSING"},
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 5)
	require.NoError(t, err)

	assert.Equal(t, 11.0, snap.Prices["AAA"])
	assert.Equal(t, 20.0, snap.Prices["BBB"])
	assert.NotContains(t, snap.Prices, "MISSING")
	assert.Len(t, snap.History["AAA"], 2)
}

func TestReturns(t *testing.T) {
	assert.Nil(t, Returns([]float64{10}))
	r := Returns([]float64{10, 11, 9.9})
	require.Len(t, r, 2)
	assert.InDelta(t, 0.10, r[0], 1e-9)
	assert.InDelta(t, -0.10, r[1], 1e-9)
}
