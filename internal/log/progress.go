package log

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Progress logs periodic completion updates for long backtests. It
// emits at most one line per interval plus a final summary.
type Progress struct {
	mu       sync.Mutex
	name     string
	total    int
	current  int
	start    time.Time
	last     time.Time
	interval time.Duration
}

func NewProgress(name string, total int) *Progress {
	return &Progress{
		name:     name,
		total:    total,
		start:    time.Now(),
		interval: 5 * time.Second,
	}
}

// Step advances the counter by one.
func (p *Progress) Step() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	if time.Since(p.last) < p.interval || p.current == p.total {
		return
	}
	p.last = time.Now()

	elapsed := time.Since(p.start)
	var eta time.Duration
	if p.current > 0 {
		eta = time.Duration(float64(elapsed) / float64(p.current) * float64(p.total-p.current))
	}
	log.Info().Str("task", p.name).
		Int("done", p.current).Int("total", p.total).
		Dur("elapsed", elapsed).Dur("eta", eta).
		Msg("progress")
}

// Done logs the final summary.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	log.Info().Str("task", p.name).
		Int("done", p.current).
		Dur("elapsed", time.Since(p.start)).
		Msg("complete")
}
