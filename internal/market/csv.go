package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const csvDateLayout = "2006-01-02"

// CSVProvider serves bars from per-symbol CSV files. Files are loaded
// lazily and kept in memory for the life of the provider, which suits
// backtests over a fixed universe.
type CSVProvider struct {
	dir string

	mu   sync.RWMutex
	bars map[string][]Bar
}

func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir, bars: make(map[string][]Bar)}
}

func (p *CSVProvider) Price(ctx context.Context, symbol string, date time.Time) (Bar, error) {
	bars, err := p.load(ctx, symbol)
	if err != nil {
		return Bar{}, err
	}
	day := date.Format(csvDateLayout)
	for _, b := range bars {
		if b.Date.Format(csvDateLayout) == day {
			return b, nil
		}
	}
	return Bar{}, fmt.Errorf("%w: %s on %s", ErrNoData, symbol, day)
}

func (p *CSVProvider) History(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	bars, err := p.load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (p *CSVProvider) load(ctx context.Context, symbol string) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	bars, ok := p.bars[symbol]
	p.mu.RUnlock()
	if ok {
		return bars, nil
	}

	path := filepath.Join(p.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bars, err = parseBars(f.Name(), csv.NewReader(f))
	if err != nil {
		return nil, err
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	p.mu.Lock()
	p.bars[symbol] = bars
	p.mu.Unlock()

	log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("loaded csv history")
	return bars, nil
}

// parseBars reads date,open,high,low,close,volume rows. A header row
// is detected and skipped; malformed rows abort the load.
func parseBars(name string, r *csv.Reader) ([]Bar, error) {
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var bars []Bar
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("%s row %d: want 6 columns, got %d", name, i+1, len(row))
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}
		date, err := time.Parse(csvDateLayout, strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", name, i+1, err)
		}
		vals := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d col %d: %w", name, i+1, j+1, err)
			}
			vals[j-1] = v
		}
		bars = append(bars, Bar{
			Date: date, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return bars, nil
}
