package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// snapshotBuffer is the per-subscription channel depth. When a slow
// consumer falls behind, the oldest snapshot is dropped so the channel
// always converges on the latest state.
const snapshotBuffer = 16

// ChangeEvent is the payload published on the doc_changes channel for
// every committed write.
type ChangeEvent struct {
	Op       string `json:"op"`
	Path     string `json:"path"`
	TenantID string `json:"tenant_id"`
}

// Snapshot is one observed state of a watched document. Exists is false
// when the document is absent; that is a delivery, not an error.
type Snapshot struct {
	Path   string
	Exists bool
	Data   map[string]any
	At     time.Time
}

// Subscription is a live watch on a single document path. Snapshots()
// yields the current state immediately on subscribe and after every
// subsequent change. The channel closes after Cancel, or after a fetch
// failure; in the failure case Err reports the cause and the caller is
// responsible for re-subscribing.
type Subscription struct {
	path string
	disp *Dispatcher

	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
	err    error
}

// Snapshots returns the delivery channel.
func (s *Subscription) Snapshots() <-chan Snapshot { return s.ch }

// Err reports why delivery stopped, or nil after a plain Cancel.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Cancel stops delivery synchronously and releases the subscription.
func (s *Subscription) Cancel() {
	s.disp.unsubscribe(s)
	s.close(nil)
}

func (s *Subscription) close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}

// push delivers a snapshot, evicting the oldest pending one when the
// consumer is behind.
func (s *Subscription) push(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- snap:
	default:
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- snap:
		default:
		}
	}
}

// pathState tracks the watchers of one path together with its refetch
// worker. dirty marks a pending change; running guards the single
// worker goroutine per path.
type pathState struct {
	subs    map[*Subscription]struct{}
	dirty   bool
	running bool
}

// Dispatcher fans document change notifications out to path
// subscriptions. It receives committed changes from the notify bridge,
// re-reads the affected document, and pushes fresh snapshots. Refetches
// are serialized per path so a consumer never observes an older
// snapshot after a newer one.
type Dispatcher struct {
	log *logrus.Logger

	// fetch is swappable for tests.
	fetch func(ctx context.Context, path string) (map[string]any, bool, error)

	mu    sync.Mutex
	paths map[string]*pathState
}

// NewDispatcher creates a Dispatcher over the given store.
func NewDispatcher(store *Store, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		log:   log,
		fetch: store.Get,
		paths: make(map[string]*pathState),
	}
}

// Watch subscribes to the document at path. The current state (present
// or absent) is delivered before Watch returns; a change committing
// while the initial read is in flight is picked up by a forced refetch.
func (d *Dispatcher) Watch(ctx context.Context, path string) (*Subscription, error) {
	if err := ValidateDocPath(path); err != nil {
		return nil, err
	}

	sub := &Subscription{
		path: path,
		disp: d,
		ch:   make(chan Snapshot, snapshotBuffer),
	}

	data, exists, err := d.fetch(ctx, path)
	if err != nil {
		return nil, err
	}

	// Register, deliver the initial snapshot, and schedule a refetch in
	// one critical section. The worker collects targets under the same
	// lock, so nothing can slip a snapshot in front of the initial one,
	// and the refetch covers any write committed between the read above
	// and the registration.
	d.mu.Lock()
	st, ok := d.paths[path]
	if !ok {
		st = &pathState{subs: make(map[*Subscription]struct{})}
		d.paths[path] = st
	}
	st.subs[sub] = struct{}{}
	sub.push(Snapshot{Path: path, Exists: exists, Data: data, At: time.Now()})
	d.markDirtyLocked(path, st)
	d.mu.Unlock()

	return sub, nil
}

func (d *Dispatcher) unsubscribe(sub *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if st, ok := d.paths[sub.path]; ok {
		delete(st.subs, sub)
		if len(st.subs) == 0 && !st.running {
			delete(d.paths, sub.path)
		}
	}
}

// HandleDocChange implements the notify bridge sink. It marks the path
// dirty and makes sure its refetch worker runs; the worker re-reads the
// document and delivers the snapshot to every watcher of that path.
func (d *Dispatcher) HandleDocChange(ev ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.paths[ev.Path]
	if !ok || len(st.subs) == 0 {
		return
	}
	d.markDirtyLocked(ev.Path, st)
}

// markDirtyLocked flags a pending refetch and starts the path's worker
// when none is running. Caller holds d.mu.
func (d *Dispatcher) markDirtyLocked(path string, st *pathState) {
	st.dirty = true
	if !st.running {
		st.running = true
		go d.refetchLoop(path)
	}
}

// refetchLoop drains pending changes for one path, one fetch at a time.
// Consecutive changes coalesce into a single refetch, and snapshots are
// delivered in fetch order. A fetch failure terminates the current
// watchers with the error recorded; the caller re-subscribes.
func (d *Dispatcher) refetchLoop(path string) {
	for {
		d.mu.Lock()
		st, ok := d.paths[path]
		if !ok {
			d.mu.Unlock()
			return
		}
		if len(st.subs) == 0 {
			delete(d.paths, path)
			d.mu.Unlock()

			return
		}
		if !st.dirty {
			st.running = false
			d.mu.Unlock()

			return
		}
		st.dirty = false
		targets := make([]*Subscription, 0, len(st.subs))
		for sub := range st.subs {
			targets = append(targets, sub)
		}
		d.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
		data, exists, err := d.fetch(ctx, path)
		cancel()

		if err != nil {
			d.log.WithError(err).WithField("path", path).Warn("watch refetch failed, closing subscriptions")
			for _, sub := range targets {
				d.unsubscribe(sub)
				sub.close(err)
			}

			continue
		}

		snap := Snapshot{Path: path, Exists: exists, Data: data, At: time.Now()}
		for _, sub := range targets {
			sub.push(snap)
		}
	}
}
