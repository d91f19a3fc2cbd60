package slot

import (
	"pipelined.dev/clip/timeline"
)

// TransportChange is a change of the host transport a slot follows.
type TransportChange int

const (
	// PlayAfterStop is transport start from stopped or paused state.
	PlayAfterStop TransportChange = iota
	// StopAfterPlay is transport stop while playing.
	StopAfterPlay
	// StopAfterPause is transport stop while paused.
	StopAfterPause
	// PlayCursorJump is a jump of the play cursor.
	PlayCursorJump
)

func (c TransportChange) String() string {
	switch c {
	case StopAfterPlay:
		return "stop after play"
	case StopAfterPause:
		return "stop after pause"
	case PlayCursorJump:
		return "play cursor jump"
	}
	return "play after stop"
}

// TransportState is the play state of the host transport.
type TransportState struct {
	Playing bool
	Paused  bool
}

// ChangeOf returns the transport change between two states. It returns
// false if the change is not relevant for clips. Pausing the transport
// pauses the timeline and needs no action.
func ChangeOf(from, to TransportState) (TransportChange, bool) {
	switch {
	case !from.Paused && !from.Playing && to.Playing:
		return PlayAfterStop, true
	case from.Playing && !to.Playing && !to.Paused:
		return StopAfterPlay, true
	case from.Paused && !to.Playing && !to.Paused:
		return StopAfterPause, true
	}
	return 0, false
}

// ProcessTransportChange keeps the clip in sync with the transport.
// Clips synchronized with the timeline are stopped when transport stops
// and replayed when it starts again. Cursor jumps reschedule them. Clips
// that were never played are not affected.
func (s *Slot) ProcessTransportChange(change TransportChange) error {
	return s.finish(s.processTransportChange(s.start(), change, timeline.MomentOf(s.timeline)))
}

func (s *Slot) processTransportChange(st state, change TransportChange, m timeline.Moment) (state, error) {
	if st.kind != filled || st.filled.lastPlay == nil {
		return st, nil
	}
	opts := *st.filled.lastPlay
	ps := s.PlayState()
	active := ps == ScheduledForPlay || ps == Playing || ps == ScheduledForStop
	switch change {
	case PlayAfterStop:
		if (ps == Stopped || ps == Paused) && st.filled.stoppedByTransport {
			return s.play(st, opts, m)
		}
		// timeline switched, forget the clip
		return s.stop(st, Immediately, false, m)
	case StopAfterPlay:
		return s.stop(st, Immediately, opts.NextBar && active, m)
	case StopAfterPause:
		return s.stop(st, Immediately, false, m)
	case PlayCursorJump:
		if opts.NextBar && active {
			return s.play(st, opts, m)
		}
	}
	return st, nil
}
