package supply

import (
	"gitlab.com/gomidi/midi/v2"
)

const (
	allSoundOff = 120
	allNotesOff = 123
)

// silenceMessages are all-notes-off and all-sound-off for every channel,
// built once so the real-time path doesn't allocate them.
var silenceMessages = func() []midi.Message {
	msgs := make([]midi.Message, 0, 32)
	for ch := uint8(0); ch < 16; ch++ {
		msgs = append(msgs,
			midi.ControlChange(ch, allNotesOff, 0),
			midi.ControlChange(ch, allSoundOff, 0),
		)
	}
	return msgs
}()

// Event is a MIDI message placed on a frame of a block.
type Event struct {
	Frame   int
	Message midi.Message
}

// EventList is a fixed capacity list of events of a single block. Events
// that don't fit are dropped and counted.
type EventList struct {
	events  []Event
	dropped int
}

// NewEventList returns an event list that can hold capacity events.
func NewEventList(capacity int) *EventList {
	return &EventList{
		events: make([]Event, 0, capacity),
	}
}

// Add appends the event. It returns false if list is full.
func (l *EventList) Add(frame int, msg midi.Message) bool {
	if len(l.events) == cap(l.events) {
		l.dropped++
		return false
	}
	l.events = append(l.events, Event{Frame: frame, Message: msg})
	return true
}

// Reset clears the list for the next block.
func (l *EventList) Reset() {
	l.events = l.events[:0]
	l.dropped = 0
}

// Len returns number of events.
func (l *EventList) Len() int {
	return len(l.events)
}

// Events returns the events of current block. The slice is only valid
// until next Reset.
func (l *EventList) Events() []Event {
	return l.events
}

// Dropped returns number of events that didn't fit since last Reset.
func (l *EventList) Dropped() int {
	return l.dropped
}

// SilenceMode defines where silence messages are placed.
type SilenceMode int

const (
	// Append adds silence after existing events.
	Append SilenceMode = iota
	// Prepend inserts silence before existing events.
	Prepend
)

// Silence adds all-notes-off and all-sound-off messages for all 16 channels
// at frame.
func Silence(l *EventList, frame int, mode SilenceMode) {
	if mode == Append {
		for _, msg := range silenceMessages {
			l.Add(frame, msg)
		}
		return
	}
	free := cap(l.events) - len(l.events)
	n := len(silenceMessages)
	if n > free {
		l.dropped += n - free
		n = free
	}
	if n == 0 {
		return
	}
	size := len(l.events)
	l.events = l.events[:size+n]
	copy(l.events[n:], l.events[:size])
	for i := 0; i < n; i++ {
		l.events[i] = Event{Frame: frame, Message: silenceMessages[i]}
	}
}

// IsSilence reports if msg is one of the messages added by Silence.
func IsSilence(msg midi.Message) bool {
	var ch, cc, val uint8
	if !msg.GetControlChange(&ch, &cc, &val) {
		return false
	}
	return cc == allNotesOff || cc == allSoundOff
}
