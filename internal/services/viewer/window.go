package viewer

import (
	"sync"

	"github.com/sensorgrid/telemetry-relay/internal/model"
)

// WindowSize is the rolling client-side history a session keeps.
const WindowSize = 100

// Window is a bounded ring of the most recent readings, oldest evicted
// first. It is the session's only state between frames.
type Window struct {
	mu       sync.RWMutex
	buffer   []model.Reading
	capacity int
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = WindowSize
	}
	return &Window{
		buffer:   make([]model.Reading, 0, capacity),
		capacity: capacity,
	}
}

func (w *Window) Append(r model.Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buffer) >= w.capacity {
		w.buffer = w.buffer[1:]
	}
	w.buffer = append(w.buffer, r)
}

// Reset replaces the window contents with the hydrated history, keeping at
// most the newest capacity entries.
func (w *Window) Reset(readings []model.Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(readings) > w.capacity {
		readings = readings[len(readings)-w.capacity:]
	}
	w.buffer = w.buffer[:0]
	w.buffer = append(w.buffer, readings...)
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.buffer)
}

// Latest returns the newest reading, if any.
func (w *Window) Latest() (model.Reading, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.buffer) == 0 {
		return model.Reading{}, false
	}
	return w.buffer[len(w.buffer)-1], true
}

// Snapshot copies the window oldest-first.
func (w *Window) Snapshot() []model.Reading {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.Reading, len(w.buffer))
	copy(out, w.buffer)
	return out
}
