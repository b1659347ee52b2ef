package monitor

import (
	"errors"
	"slices"
	"sync"
	"time"

	"stockbot/internal/schedule"
	"stockbot/internal/transport"
)

// ErrInvalidInterval is returned when a refresh interval is not a positive
// integer no larger than schedule.MaxIntervalSeconds.
var ErrInvalidInterval = errors.New("invalid interval")

// Settings is the initial runtime configuration.
type Settings struct {
	Monitoring       bool
	OutOfStockAlerts bool
	RefreshInterval  int // seconds
	Subscribers      []transport.ChatID
}

// State is a point-in-time copy of the runtime configuration.
type State struct {
	Monitoring       bool
	OutOfStockAlerts bool
	RefreshInterval  int
	Subscribers      []transport.ChatID
	Cursor           *int64
}

// Runtime is the configuration shared by the monitoring loop and the command
// listener. Every read and write goes through mu; readers only ever get copies.
type Runtime struct {
	mu          sync.RWMutex
	monitoring  bool
	outOfStock  bool
	interval    int
	subscribers []transport.ChatID
	cursor      *int64
}

func NewRuntime(s Settings) (*Runtime, error) {
	if !schedule.ValidInterval(s.RefreshInterval) {
		return nil, ErrInvalidInterval
	}
	r := &Runtime{
		monitoring: s.Monitoring,
		outOfStock: s.OutOfStockAlerts,
		interval:   s.RefreshInterval,
	}
	for _, id := range s.Subscribers {
		r.addLocked(id)
	}
	return r, nil
}

func (r *Runtime) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := State{
		Monitoring:       r.monitoring,
		OutOfStockAlerts: r.outOfStock,
		RefreshInterval:  r.interval,
		Subscribers:      slices.Clone(r.subscribers),
	}
	if r.cursor != nil {
		c := *r.cursor
		st.Cursor = &c
	}
	return st
}

func (r *Runtime) Monitoring() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.monitoring
}

func (r *Runtime) SetMonitoring(on bool) {
	r.mu.Lock()
	r.monitoring = on
	r.mu.Unlock()
}

func (r *Runtime) OutOfStockAlerts() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.outOfStock
}

func (r *Runtime) SetOutOfStockAlerts(on bool) {
	r.mu.Lock()
	r.outOfStock = on
	r.mu.Unlock()
}

func (r *Runtime) Interval() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Duration(r.interval) * time.Second
}

// SetInterval rejects out-of-range values, leaving the configuration unchanged.
func (r *Runtime) SetInterval(seconds int) error {
	if !schedule.ValidInterval(seconds) {
		return ErrInvalidInterval
	}
	r.mu.Lock()
	r.interval = seconds
	r.mu.Unlock()
	return nil
}

// Subscribers returns a copy of the current subscriber list.
func (r *Runtime) Subscribers() []transport.ChatID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.subscribers)
}

func (r *Runtime) IsSubscriber(id transport.ChatID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.subscribers, id)
}

// AddSubscriber reports whether id was added (false if already present).
func (r *Runtime) AddSubscriber(id transport.ChatID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(id)
}

func (r *Runtime) addLocked(id transport.ChatID) bool {
	if slices.Contains(r.subscribers, id) {
		return false
	}
	r.subscribers = append(r.subscribers, id)
	return true
}

// RemoveSubscriber reports whether id was removed (false if absent).
func (r *Runtime) RemoveSubscriber(id transport.ChatID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.subscribers, id)
	if i < 0 {
		return false
	}
	r.subscribers = slices.Delete(r.subscribers, i, i+1)
	return true
}

// Cursor returns the last processed inbound cursor, nil before the first message.
func (r *Runtime) Cursor() *int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cursor == nil {
		return nil
	}
	c := *r.cursor
	return &c
}

// AdvanceCursor moves the cursor forward; values at or below the current one are ignored.
func (r *Runtime) AdvanceCursor(c int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor != nil && c <= *r.cursor {
		return
	}
	r.cursor = &c
}
