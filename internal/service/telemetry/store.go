// Package telemetry holds the process-wide observable state fed by the
// device link. One writer mutates via whole-snapshot replacement; any
// number of readers receive consistent snapshots, never partial writes.
package telemetry

import (
	"sync"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
	"github.com/umutcvc/MySomatra-sub000/internal/event"
)

// History caps. Oldest entries are evicted FIFO at the cap.
const (
	OrientationHistoryCap = 200
	GPSHistoryCap         = 100
)

// Snapshot is an immutable view of the telemetry state. History slices are
// append-only: entries already visible in a snapshot are never mutated.
type Snapshot struct {
	Connected          bool
	Orientation        *domain.OrientationReading
	GPS                *domain.GPSReading
	Battery            *domain.BatteryReading
	OrientationHistory []domain.OrientationReading
	GPSHistory         []domain.GPSReading
}

// Store fans decoded readings out to subscribers and keeps the bounded
// histories. All notifications are synchronous and serialized: listener
// callbacks never run concurrently with each other.
type Store struct {
	mu    sync.Mutex
	state Snapshot

	notifyMu sync.Mutex
	changes  *event.Emitter[Snapshot]
}

// NewStore creates an empty, disconnected store.
func NewStore() *Store {
	return &Store{
		changes: event.NewEmitter[Snapshot](),
	}
}

// Attach subscribes the store to a device link. The returned function
// detaches it again.
func (s *Store) Attach(dev domain.DeviceService) func() {
	unsubs := []func(){
		dev.OnOrientation(s.PushOrientation),
		dev.OnGPS(s.PushGPS),
		dev.OnBattery(s.PushBattery),
		dev.OnConnectionChange(s.SetConnected),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Subscribe registers a listener invoked after every state change with the
// new snapshot. The returned function unsubscribes; other subscribers are
// unaffected.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.changes.Subscribe(fn)
}

// Current returns the latest snapshot.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PushOrientation appends a reading, evicting the oldest past the cap, and
// notifies subscribers. No batching: consumers throttle themselves.
func (s *Store) PushOrientation(r domain.OrientationReading) {
	s.mu.Lock()
	next := s.state
	next.Orientation = &r
	next.OrientationHistory = appendBounded(next.OrientationHistory, r, OrientationHistoryCap)
	s.state = next
	s.mu.Unlock()

	s.notify(next)
}

// PushGPS appends a GPS reading and notifies subscribers. Consumers must
// ignore coordinates unless the fix flag is set.
func (s *Store) PushGPS(r domain.GPSReading) {
	s.mu.Lock()
	next := s.state
	next.GPS = &r
	next.GPSHistory = appendBounded(next.GPSHistory, r, GPSHistoryCap)
	s.state = next
	s.mu.Unlock()

	s.notify(next)
}

// PushBattery updates the battery state and notifies subscribers.
func (s *Store) PushBattery(r domain.BatteryReading) {
	s.mu.Lock()
	next := s.state
	next.Battery = &r
	s.state = next
	s.mu.Unlock()

	s.notify(next)
}

// SetConnected records the link state. Disconnecting clears histories and
// all current values before notifying.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	var next Snapshot
	if connected {
		next = s.state
		next.Connected = true
	} else {
		next = Snapshot{Connected: false}
	}
	s.state = next
	s.mu.Unlock()

	s.notify(next)
}

// PitchHistory extracts the raw pitch sequence from the orientation
// history, oldest first.
func (s *Store) PitchHistory() []float64 {
	snap := s.Current()
	out := make([]float64, len(snap.OrientationHistory))
	for i, r := range snap.OrientationHistory {
		out[i] = r.Pitch
	}
	return out
}

func (s *Store) notify(snap Snapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.changes.Emit(snap)
}

// appendBounded grows a history slice with FIFO eviction at the limit.
// Elements visible through older snapshots are never overwritten.
func appendBounded[T any](hist []T, v T, limit int) []T {
	hist = append(hist, v)
	if len(hist) > limit {
		trimmed := make([]T, limit)
		copy(trimmed, hist[len(hist)-limit:])
		return trimmed
	}
	return hist
}
