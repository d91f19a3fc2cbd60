package clip

import (
	"pipelined.dev/clip/timeline"
)

// StateKind identifies one of the states clip can be in.
type StateKind int

// states
const (
	Stopped StateKind = iota
	ScheduledOrPlaying
	Suspending
	Paused
)

func (k StateKind) String() string {
	switch k {
	case ScheduledOrPlaying:
		return "scheduled or playing"
	case Suspending:
		return "suspending"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// StartTime defines when a play command starts the clip.
type StartTime int

const (
	// Immediately starts at the current timeline position.
	Immediately StartTime = iota
	// NextBar starts at the beginning of the next bar.
	NextBar
)

// StopTime defines when a stop command stops the clip.
type StopTime int

const (
	// StopImmediately fades out and stops.
	StopImmediately StopTime = iota
	// EndOfClip stops at the end of the current cycle.
	EndOfClip
)

// Repetition is the loop policy of a clip.
type Repetition int

const (
	// Once plays until the end of the current cycle.
	Once Repetition = iota
	// Infinitely repeats the clip until it's stopped.
	Infinitely
)

// SuspensionReason defines the state that follows suspension.
type SuspensionReason int

const (
	// Retrigger plays the clip from the start.
	Retrigger SuspensionReason = iota
	// Pause keeps the position and pauses.
	Pause
	// Stop stops the clip.
	Stop
	// PlayWhileSuspending plays the clip with the start time of the last
	// play command.
	PlayWhileSuspending
)

func (r SuspensionReason) String() string {
	switch r {
	case Pause:
		return "pause"
	case Stop:
		return "stop"
	case PlayWhileSuspending:
		return "play"
	}
	return "retrigger"
}

// Instruction is how a clip was asked to play.
type Instruction struct {
	// ScheduledPos is the absolute timeline position the clip starts at.
	ScheduledPos float64
	// InitialTempo is the timeline tempo when play was requested.
	InitialTempo float64
	// StartOffset is the position within the clip in seconds to start from.
	StartOffset float64
}

func instruction(t StartTime, m timeline.Moment, offset float64) Instruction {
	pos := m.Cursor
	if t == NextBar {
		pos = m.NextBar
	}
	return Instruction{
		ScheduledPos: pos,
		InitialTempo: m.Tempo,
		StartOffset:  offset,
	}
}

// PlayingState is the payload of ScheduledOrPlaying.
type PlayingState struct {
	Instruction
	// Resolved is false until the first block after scheduling computes
	// Pos.
	Resolved bool
	// Pos is the next source frame to read. Negative during count-in.
	Pos              int
	ScheduledForStop bool
	Overdubbing      bool
}

// started reports if count-in is over.
func (p PlayingState) started() bool {
	return p.Resolved && p.Pos >= 0
}

// SuspendingState is the payload of Suspending.
type SuspendingState struct {
	Reason SuspensionReason
	// PlayTime is the start time of the play that follows Retrigger and
	// PlayWhileSuspending.
	PlayTime StartTime
	// Pos is the position when suspension began.
	Pos int
	// Cursor is the next source frame to read while fading.
	Cursor int
	// Countdown is the number of frames left to fade.
	Countdown int
	// Length is the fade length in frames.
	Length int
}

// PausedState is the payload of Paused.
type PausedState struct {
	// Pos is the position to resume from in seconds.
	Pos float64
}

// State is the transport state. Only the payload that matches Kind is
// meaningful.
type State struct {
	Kind       StateKind
	Playing    PlayingState
	Suspending SuspendingState
	Paused     PausedState
}

func stopped() State {
	return State{Kind: Stopped}
}

func playing(p PlayingState) State {
	return State{Kind: ScheduledOrPlaying, Playing: p}
}

func suspending(s SuspendingState) State {
	return State{Kind: Suspending, Suspending: s}
}

func paused(pos float64) State {
	return State{Kind: Paused, Paused: PausedState{Pos: max(pos, 0)}}
}

// suspend starts suspension from playing state.
func suspend(reason SuspensionReason, p PlayingState, length int) State {
	return suspending(SuspendingState{
		Reason:    reason,
		Pos:       p.Pos,
		Cursor:    p.Pos,
		Countdown: length,
		Length:    length,
	})
}

// withReason replaces the reason of suspension. Countdown continues.
func (s SuspendingState) withReason(reason SuspensionReason, t StartTime) State {
	s.Reason = reason
	s.PlayTime = t
	return suspending(s)
}

// Started reports if the clip plays material, count-in excluded.
func (s State) Started() bool {
	switch s.Kind {
	case ScheduledOrPlaying:
		return s.Playing.started()
	case Suspending:
		return true
	}
	return false
}
