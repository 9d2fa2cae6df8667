package notify

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RiskLevel classifies how close the sender is to being throttled by
// the messaging channel.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

// String returns a human-readable representation of the level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// PacerConfig bounds the send rate of bulk phases.
type PacerConfig struct {
	MinDelay  time.Duration `json:"min_delay"`
	MaxDelay  time.Duration `json:"max_delay"`
	BatchSize int           `json:"batch_size"`
	// Window over which recent send volume feeds the risk level.
	Window time.Duration `json:"window"`
	// MediumVolume and HighVolume are send counts inside Window that
	// raise the risk level.
	MediumVolume int `json:"medium_volume"`
	HighVolume   int `json:"high_volume"`
	// BurstCooldown raises the risk level when the previous burst ended
	// more recently than this.
	BurstCooldown time.Duration `json:"burst_cooldown"`
}

// SetDefaults fills zero fields with working values.
func (c *PacerConfig) SetDefaults() {
	if c.MinDelay <= 0 {
		c.MinDelay = 500 * time.Millisecond
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = 4 * c.MinDelay
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.MediumVolume <= 0 {
		c.MediumVolume = 20
	}
	if c.HighVolume <= c.MediumVolume {
		c.HighVolume = 3 * c.MediumVolume
	}
	if c.BurstCooldown <= 0 {
		c.BurstCooldown = 30 * time.Second
	}
}

// Pacer spaces out sends with a randomized delay inside [MinDelay,
// MaxDelay] and pauses between bounded batches. Both widen as the
// computed risk level rises. Safe for concurrent use; callers must not
// hold per-cargo locks while waiting.
type Pacer struct {
	cfg PacerConfig

	mu        sync.Mutex
	sent      []time.Time
	lastBurst time.Time
	inBatch   int
	rnd       *rand.Rand
	now       func() time.Time
}

// NewPacer returns a pacer for the given budget.
func NewPacer(cfg PacerConfig) *Pacer {
	cfg.SetDefaults()
	return &Pacer{
		cfg: cfg,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// Risk computes the current risk level from recent send volume and the
// recency of the last burst.
func (p *Pacer) Risk() RiskLevel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.riskLocked()
}

func (p *Pacer) riskLocked() RiskLevel {
	now := p.now()
	cutoff := now.Add(-p.cfg.Window)
	n := 0
	for _, t := range p.sent {
		if t.After(cutoff) {
			n++
		}
	}
	level := RiskLow
	switch {
	case n >= p.cfg.HighVolume:
		level = RiskHigh
	case n >= p.cfg.MediumVolume:
		level = RiskMedium
	}
	if !p.lastBurst.IsZero() && now.Sub(p.lastBurst) < p.cfg.BurstCooldown && level < RiskHigh {
		level++
	}
	return level
}

// Wait blocks for the next send slot or until the context is cancelled.
// It returns the context error on cancellation so callers can stop a
// phase mid-batch.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	risk := p.riskLocked()
	min, max := p.cfg.MinDelay, p.cfg.MaxDelay
	batch := p.cfg.BatchSize
	switch risk {
	case RiskMedium:
		min, max = 2*min, 2*max
		batch /= 2
	case RiskHigh:
		min, max = 4*min, 4*max
		batch /= 4
	}
	if batch < 1 {
		batch = 1
	}
	delay := min
	if span := max - min; span > 0 {
		delay += time.Duration(p.rnd.Int63n(int64(span)))
	}
	p.inBatch++
	if p.inBatch >= batch {
		// pause between batches
		delay += max
		p.inBatch = 0
	}
	p.mu.Unlock()

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record notes a completed send for future risk computation.
func (p *Pacer) Record() {
	p.mu.Lock()
	now := p.now()
	p.sent = append(p.sent, now)
	cutoff := now.Add(-2 * p.cfg.Window)
	for len(p.sent) > 0 && p.sent[0].Before(cutoff) {
		p.sent = p.sent[1:]
	}
	p.mu.Unlock()
}

// EndBurst marks the end of a bulk phase so the next one starts at an
// elevated risk level during the cooldown.
func (p *Pacer) EndBurst() {
	p.mu.Lock()
	p.lastBurst = p.now()
	p.inBatch = 0
	p.mu.Unlock()
}
