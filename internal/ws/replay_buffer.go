package ws

import (
	"sync"
	"time"
)

// Replay sizing. doc.change events are small and reconnects are common,
// so each tenant keeps a short sliding window rather than a full
// history; anything older forces a reset message and a full refresh.
const (
	replayWindow      = 512
	replayMaxAge      = 30 * time.Minute
	replaySweepPeriod = 5 * time.Minute
)

// tenantLog is one tenant's buffered events plus the time of the most
// recent append, which the sweeper uses to drop idle tenants.
type tenantLog struct {
	events []Event
	last   time.Time
}

// ReplayBuffer retains each tenant's recent events so a reconnecting
// client can catch up from its last seen event id instead of doing a
// full refresh.
type ReplayBuffer struct {
	window int
	maxAge time.Duration

	mu   sync.RWMutex
	logs map[string]*tenantLog

	stop chan struct{}
	once sync.Once
}

// NewReplayBuffer creates a buffer holding up to window events per
// tenant for at most maxAge, and starts the idle-tenant sweeper.
func NewReplayBuffer(window int, maxAge time.Duration) *ReplayBuffer {
	rb := &ReplayBuffer{
		window: window,
		maxAge: maxAge,
		logs:   make(map[string]*tenantLog),
		stop:   make(chan struct{}),
	}
	go rb.sweep()

	return rb
}

// Stop ends the background sweeper. Safe to call more than once.
func (rb *ReplayBuffer) Stop() {
	rb.once.Do(func() { close(rb.stop) })
}

func (rb *ReplayBuffer) sweep() {
	ticker := time.NewTicker(replaySweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-rb.stop:
			return
		case now := <-ticker.C:
			rb.dropIdleTenants(now)
		}
	}
}

// dropIdleTenants forgets tenants whose last event left the window.
func (rb *ReplayBuffer) dropIdleTenants(now time.Time) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for id, lg := range rb.logs {
		if now.Sub(lg.last) > rb.maxAge {
			delete(rb.logs, id)
		}
	}
}

// Append records an event for replay, trimming entries that aged out or
// fell outside the window.
func (rb *ReplayBuffer) Append(tenantID string, evt Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	lg, ok := rb.logs[tenantID]
	if !ok {
		lg = &tenantLog{}
		rb.logs[tenantID] = lg
	}

	cutoff := evt.Time.Add(-rb.maxAge)
	for len(lg.events) > 0 && lg.events[0].Time.Before(cutoff) {
		lg.events = lg.events[1:]
	}

	lg.events = append(lg.events, evt)
	if excess := len(lg.events) - rb.window; excess > 0 {
		lg.events = lg.events[excess:]
	}
	lg.last = evt.Time
}

// Since returns copies of the tenant's events with id greater than
// lastID, oldest first. Nil when the tenant has nothing newer.
func (rb *ReplayBuffer) Since(tenantID string, lastID uint64) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	lg := rb.logs[tenantID]
	if lg == nil || len(lg.events) == 0 {
		return nil
	}

	// Ids are appended in increasing order; clients resume near the
	// tail, so walk back from the end to the first already-seen event.
	i := len(lg.events)
	for i > 0 && lg.events[i-1].ID > lastID {
		i--
	}
	if i == len(lg.events) {
		return nil
	}

	out := make([]Event, len(lg.events)-i)
	copy(out, lg.events[i:])

	return out
}

// OldestID reports the lowest buffered event id for a tenant, or 0 when
// nothing is buffered. A client asking for anything older missed events
// the buffer no longer has.
func (rb *ReplayBuffer) OldestID(tenantID string) uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if lg := rb.logs[tenantID]; lg != nil && len(lg.events) > 0 {
		return lg.events[0].ID
	}

	return 0
}
