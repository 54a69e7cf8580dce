// Package analytics aggregates submission events into lightweight in-process
// KPIs: per-event counters and daily active players.
package analytics

import (
	"sync"
	"time"

	"scorekit/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// Bridge fans an event out to multiple hooks.
type Bridge struct{ hooks []Hook }

func NewBridge(hooks ...Hook) *Bridge { return &Bridge{hooks: hooks} }

func (b *Bridge) OnEvent(e core.Event) {
	for _, h := range b.hooks {
		h.OnEvent(e)
	}
}

// Counters tracks event volumes by type.
type Counters struct {
	mu     sync.Mutex
	counts map[core.EventType]int64
}

func NewCounters() *Counters {
	return &Counters{counts: map[core.EventType]int64{}}
}

func (c *Counters) OnEvent(e core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[e.Type]++
}

// Count returns the number of events seen for one type.
func (c *Counters) Count(typ core.EventType) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[typ]
}

// Snapshot returns a copy of all counters.
func (c *Counters) Snapshot() map[core.EventType]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[core.EventType]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// DAU tracks daily active players keyed by UTC day.
type DAU struct {
	mu   sync.Mutex
	days map[string]map[core.UserID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.UserID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	if e.Type != core.EventScoreSubmitted {
		return
	}
	day := e.Time.UTC().Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.days[day] == nil {
		d.days[day] = map[core.UserID]struct{}{}
	}
	d.days[day][e.UserID] = struct{}{}
}

// Active returns the distinct player count for one UTC day.
func (d *DAU) Active(day time.Time) int {
	key := day.UTC().Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[key])
}
