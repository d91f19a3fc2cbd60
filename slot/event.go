package slot

import (
	"fmt"

	"pipelined.dev/clip"
)

// ClipPlayState is the play state of a slot as seen by users.
type ClipPlayState int

const (
	// Stopped clip doesn't play.
	Stopped ClipPlayState = iota
	// ScheduledForPlay clip is counting in.
	ScheduledForPlay
	// Playing clip plays its material.
	Playing
	// ScheduledForStop clip stops at the end of current cycle.
	ScheduledForStop
	// Paused clip is resumed from its position.
	Paused
	// Recording clip is overdubbed.
	Recording
)

func (s ClipPlayState) String() string {
	switch s {
	case ScheduledForPlay:
		return "scheduled for play"
	case Playing:
		return "playing"
	case ScheduledForStop:
		return "scheduled for stop"
	case Paused:
		return "paused"
	case Recording:
		return "recording"
	}
	return "stopped"
}

// IsAdvancing reports if clip position moves in this state.
func (s ClipPlayState) IsAdvancing() bool {
	return s == Playing || s == ScheduledForStop || s == Recording
}

// playStateOf derives the play state from the transport state.
func playStateOf(s clip.State) ClipPlayState {
	switch s.Kind {
	case clip.ScheduledOrPlaying:
		p := s.Playing
		switch {
		case p.Overdubbing:
			return Recording
		case p.ScheduledForStop:
			return ScheduledForStop
		case p.Resolved && p.Pos >= 0:
			return Playing
		}
		return ScheduledForPlay
	case clip.Suspending:
		switch s.Suspending.Reason {
		case clip.Retrigger:
			return Playing
		case clip.Pause:
			return Paused
		case clip.PlayWhileSuspending:
			return ScheduledForPlay
		}
		return Stopped
	case clip.Paused:
		return Paused
	}
	return Stopped
}

// EventKind tells which property of a slot changed.
type EventKind int

const (
	// PlayStateChanged carries new play state.
	PlayStateChanged EventKind = iota
	// PositionChanged carries new proportional position.
	PositionChanged
	// VolumeChanged carries new volume.
	VolumeChanged
	// RepeatChanged carries new repeat flag.
	RepeatChanged
)

func (k EventKind) String() string {
	switch k {
	case PositionChanged:
		return "position"
	case VolumeChanged:
		return "volume"
	case RepeatChanged:
		return "repeat"
	}
	return "play state"
}

// Event reports a change of a slot. Only the field of the kind is set.
type Event struct {
	Kind      EventKind
	PlayState ClipPlayState
	Position  float64
	Volume    float64
	Repeat    bool
}

func (e Event) String() string {
	switch e.Kind {
	case PositionChanged:
		return fmt.Sprintf("%v: %.3f", e.Kind, e.Position)
	case VolumeChanged:
		return fmt.Sprintf("%v: %.3f", e.Kind, e.Volume)
	case RepeatChanged:
		return fmt.Sprintf("%v: %t", e.Kind, e.Repeat)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.PlayState)
}

func playStateEvent(s ClipPlayState) Event {
	return Event{Kind: PlayStateChanged, PlayState: s}
}

func positionEvent(pos float64) Event {
	return Event{Kind: PositionChanged, Position: pos}
}

func volumeEvent(v float64) Event {
	return Event{Kind: VolumeChanged, Volume: v}
}

func repeatEvent(r bool) Event {
	return Event{Kind: RepeatChanged, Repeat: r}
}
