package slot

import (
	"fmt"
	"sync"

	"pipelined.dev/clip/host"
	"pipelined.dev/clip/timeline"
)

// IndexedEvent is an event of a slot in a matrix.
type IndexedEvent struct {
	Slot int
	Event
}

// Matrix is a row of slots that share the timeline and the host. It's
// safe for concurrent use.
type Matrix struct {
	mu    sync.Mutex
	slots []*Slot
}

// NewMatrix returns a matrix of n empty slots.
func NewMatrix(n int, engager host.Engager, tl timeline.Timeline, options ...Option) *Matrix {
	m := &Matrix{
		slots: make([]*Slot, n),
	}
	for i := range m.slots {
		m.slots[i] = New(i, engager, tl, options...)
	}
	return m
}

// Len returns the number of slots.
func (m *Matrix) Len() int {
	return len(m.slots)
}

// Do calls fn with the slot at index. Calls are serialized.
func (m *Matrix) Do(index int, fn func(*Slot) error) error {
	if index < 0 || index >= len(m.slots) {
		return fmt.Errorf("slot %d: %w", index, ErrNoSuchSlot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.slots[index])
}

// Load loads descriptors into the first slots. Events of all slots are
// returned.
func (m *Matrix) Load(descriptors []Descriptor) ([]IndexedEvent, error) {
	if len(descriptors) > len(m.slots) {
		return nil, fmt.Errorf("%d descriptors for %d slots: %w", len(descriptors), len(m.slots), ErrNoSuchSlot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		events []IndexedEvent
		errs   host.Errors
	)
	for i, d := range descriptors {
		loaded, err := m.slots[i].Load(d)
		if err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
			continue
		}
		for _, e := range loaded {
			events = append(events, IndexedEvent{Slot: i, Event: e})
		}
	}
	return events, errs.Ret()
}

// Descriptors returns the descriptors of all slots.
func (m *Matrix) Descriptors() []Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	descriptors := make([]Descriptor, 0, len(m.slots))
	for _, s := range m.slots {
		descriptors = append(descriptors, s.Descriptor())
	}
	return descriptors
}

// ProcessTransportChange forwards the change to every slot.
func (m *Matrix) ProcessTransportChange(change TransportChange) error {
	return m.each(func(s *Slot) error {
		return s.ProcessTransportChange(change)
	})
}

// Poll polls every slot and returns their events.
func (m *Matrix) Poll() []IndexedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []IndexedEvent
	for i, s := range m.slots {
		if e, ok := s.Poll(); ok {
			events = append(events, IndexedEvent{Slot: i, Event: e})
		}
	}
	return events
}

// Close clears every slot.
func (m *Matrix) Close() error {
	return m.each(func(s *Slot) error {
		return s.Clear()
	})
}

func (m *Matrix) each(fn func(*Slot) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs host.Errors
	for i, s := range m.slots {
		if err := fn(s); err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
		}
	}
	return errs.Ret()
}
