package llm

import (
	"sync"
	"time"
)

// Pacer enforces a fixed minimum interval between completion calls so a
// long run does not overload the local model server. A zero or negative
// interval disables pacing, which is what tests use.
type Pacer struct {
	mu            sync.Mutex
	nextAllowedAt time.Time
	interval      time.Duration
}

func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

func (p *Pacer) WaitTurn() {
	if p.interval <= 0 {
		return
	}

	p.mu.Lock()
	now := time.Now()
	scheduled := now
	if p.nextAllowedAt.After(now) {
		scheduled = p.nextAllowedAt
	}
	p.nextAllowedAt = scheduled.Add(p.interval)
	p.mu.Unlock()

	if sleep := time.Until(scheduled); sleep > 0 {
		time.Sleep(sleep)
	}
}
