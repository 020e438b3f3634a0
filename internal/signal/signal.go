// Package signal defines per-strategy trading signals and the
// aggregator that folds conflicting signals into one consensus
// decision per symbol per trading date.
package signal

// Direction is the signed decision carried by a signal: +1 buy,
// -1 sell, 0 hold.
type Direction int

const (
	Sell Direction = -1
	Hold Direction = 0
	Buy  Direction = 1
)

func (d Direction) String() string {
	switch {
	case d > 0:
		return "BUY"
	case d < 0:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Signal is one strategy's opinion on one symbol for one cycle.
// Confidence is in [0,1].
type Signal struct {
	Symbol     string    `json:"symbol"`
	Strategy   string    `json:"strategy"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
}

// Series maps trading date (2006-01-02) to a direction. Dates a
// strategy did not report simply have no entry.
type Series map[string]Direction
