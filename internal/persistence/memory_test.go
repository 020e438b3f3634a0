package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestMemoryStore_EquityRange(t *testing.T) {
	store := NewMemoryStore().AsStore()
	ctx := context.Background()

	require.NoError(t, store.Equity.InsertBatch(ctx, []EquityPoint{
		{RunID: "r1", Date: day(3), Value: 101},
		{RunID: "r1", Date: day(1), Value: 100},
		{RunID: "r1", Date: day(5), Value: 99},
		{RunID: "other", Date: day(2), Value: 42},
	}))

	points, err := store.Equity.ListRange(ctx, "r1", TimeRange{From: day(1), To: day(4)})
	require.NoError(t, err)
	require.Len(t, points, 2)
	// Ascending by date regardless of insert order.
	assert.Equal(t, 100.0, points[0].Value)
	assert.Equal(t, 101.0, points[1].Value)
}

func TestMemoryStore_Trades(t *testing.T) {
	store := NewMemoryStore().AsStore()
	ctx := context.Background()

	for _, sym := range []string{"AAA", "AAA", "BBB"} {
		require.NoError(t, store.Trades.Insert(ctx, TradeRecord{
			RunID: "r1", Symbol: sym, Side: "BUY", Date: day(1), Status: "FILLED",
		}))
	}

	n, err := store.Trades.Count(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	trades, err := store.Trades.ListBySymbol(ctx, "r1", "AAA", TimeRange{}, 0)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
	assert.NotZero(t, trades[0].ID)

	limited, err := store.Trades.ListBySymbol(ctx, "r1", "AAA", TimeRange{}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryStore_RiskLatest(t *testing.T) {
	store := NewMemoryStore().AsStore()
	ctx := context.Background()

	require.NoError(t, store.Risk.Insert(ctx, RiskRecord{RunID: "r1", Date: day(1), Level: "LOW"}))
	require.NoError(t, store.Risk.Insert(ctx, RiskRecord{RunID: "r1", Date: day(3), Level: "HIGH"}))
	require.NoError(t, store.Risk.Insert(ctx, RiskRecord{RunID: "r1", Date: day(2), Level: "NORMAL"}))

	latest, err := store.Risk.Latest(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "HIGH", latest.Level)

	none, err := store.Risk.Latest(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestTimeRange_ZeroBoundsAreOpen(t *testing.T) {
	assert.True(t, TimeRange{}.Contains(day(15)))
	assert.True(t, TimeRange{From: day(1)}.Contains(day(15)))
	assert.False(t, TimeRange{To: day(10)}.Contains(day(15)))
}
