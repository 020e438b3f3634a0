package persistence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps results in process. Backtests default to it; the
// postgres store is opt-in for runs worth keeping.
type MemoryStore struct {
	mu     sync.RWMutex
	equity []EquityPoint
	trades []TradeRecord
	risk   []RiskRecord
	nextID int64
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{nextID: 1} }

// AsStore exposes the memory store through the repository interfaces.
func (m *MemoryStore) AsStore() Store {
	return Store{
		Equity: (*memEquity)(m),
		Trades: (*memTrades)(m),
		Risk:   (*memRisk)(m),
	}
}

type memEquity MemoryStore

func (m *memEquity) Insert(_ context.Context, p EquityPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, p)
	return nil
}

func (m *memEquity) InsertBatch(_ context.Context, points []EquityPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, points...)
	return nil
}

func (m *memEquity) ListRange(_ context.Context, runID string, tr TimeRange) ([]EquityPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []EquityPoint
	for _, p := range m.equity {
		if p.RunID == runID && tr.Contains(p.Date) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type memTrades MemoryStore

func (m *memTrades) Insert(_ context.Context, t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID
	m.nextID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.trades = append(m.trades, t)
	return nil
}

func (m *memTrades) ListBySymbol(_ context.Context, runID, symbol string, tr TimeRange, limit int) ([]TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TradeRecord
	for _, t := range m.trades {
		if t.RunID != runID || t.Symbol != symbol || !tr.Contains(t.Date) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memTrades) ListRange(_ context.Context, runID string, tr TimeRange) ([]TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TradeRecord
	for _, t := range m.trades {
		if t.RunID == runID && tr.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTrades) Count(_ context.Context, runID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, t := range m.trades {
		if t.RunID == runID {
			n++
		}
	}
	return n, nil
}

type memRisk MemoryStore

func (m *memRisk) Insert(_ context.Context, r RiskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID
	m.nextID++
	m.risk = append(m.risk, r)
	return nil
}

func (m *memRisk) Latest(_ context.Context, runID string) (*RiskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *RiskRecord
	for i := range m.risk {
		r := m.risk[i]
		if r.RunID != runID {
			continue
		}
		if latest == nil || r.Date.After(latest.Date) {
			latest = &r
		}
	}
	return latest, nil
}

func (m *memRisk) ListRange(_ context.Context, runID string, tr TimeRange) ([]RiskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []RiskRecord
	for _, r := range m.risk {
		if r.RunID == runID && tr.Contains(r.Date) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
