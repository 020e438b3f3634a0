// Package constraint clips and redistributes proposed monetary
// allocations so the portfolio respects single-name, sector and
// cardinality limits. It is a pure transformation: the risk engine
// audits, this package mutates.
package constraint

import (
	"sort"
)

// Limits is the institutional position policy.
type Limits struct {
	MaxSinglePct float64           `yaml:"max_single_pct"` // fraction of equity per name
	MaxSectorPct float64           `yaml:"max_sector_pct"` // fraction of equity per sector
	MaxPositions int               `yaml:"max_positions"`  // concurrently held names
	PhasedEntry  float64           `yaml:"phased_entry"`   // <1 builds positions over cycles
	SectorMap    map[string]string `yaml:"-"`
}

// DefaultLimits mirrors the conventional institutional policy: 10%
// per name, 30% per sector, at most 15 names, full entry in one step.
func DefaultLimits() Limits {
	return Limits{
		MaxSinglePct: 0.10,
		MaxSectorPct: 0.30,
		MaxPositions: 15,
		PhasedEntry:  1.0,
	}
}

const defaultSector = "OTHER"

// Apply enforces the limits over proposed per-symbol amounts against
// total equity. Ranking keeps the top MaxPositions names by amount,
// each name is capped at equity*MaxSinglePct, overweight sectors are
// scaled down proportionally, and the whole result is multiplied by
// the phased-entry ratio. Only strictly positive allocations survive.
func (l Limits) Apply(proposed map[string]float64, totalEquity float64) map[string]float64 {
	if len(proposed) == 0 || totalEquity <= 0 {
		return map[string]float64{}
	}

	type entry struct {
		symbol string
		amount float64
	}
	entries := make([]entry, 0, len(proposed))
	for sym, amt := range proposed {
		if amt > 0 {
			entries = append(entries, entry{sym, amt})
		}
	}
	if len(entries) == 0 {
		return map[string]float64{}
	}
	// Descending by amount; symbol as tiebreak keeps the selection
	// deterministic across runs.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].amount != entries[j].amount {
			return entries[i].amount > entries[j].amount
		}
		return entries[i].symbol < entries[j].symbol
	})
	if l.MaxPositions > 0 && len(entries) > l.MaxPositions {
		entries = entries[:l.MaxPositions]
	}

	out := make(map[string]float64, len(entries))
	singleCap := totalEquity * l.MaxSinglePct
	for _, e := range entries {
		amt := e.amount
		if l.MaxSinglePct > 0 && amt > singleCap {
			amt = singleCap
		}
		out[e.symbol] = amt
	}

	if l.MaxSectorPct > 0 && len(l.SectorMap) > 0 {
		sectorCap := totalEquity * l.MaxSectorPct
		sectorTotals := make(map[string]float64)
		for sym, amt := range out {
			sectorTotals[l.sector(sym)] += amt
		}
		for sec, total := range sectorTotals {
			if total <= sectorCap {
				continue
			}
			scale := sectorCap / total
			for sym := range out {
				if l.sector(sym) == sec {
					out[sym] *= scale
				}
			}
		}
	}

	if l.PhasedEntry > 0 && l.PhasedEntry < 1 {
		for sym := range out {
			out[sym] *= l.PhasedEntry
		}
	}

	for sym, amt := range out {
		if amt <= 0 {
			delete(out, sym)
		}
	}
	return out
}

func (l Limits) sector(symbol string) string {
	if sec, ok := l.SectorMap[symbol]; ok {
		return sec
	}
	return defaultSector
}
