package supply

import (
	"math"

	"pipelined.dev/clip/signal"
)

// LoopMode defines how a looper repeats material.
type LoopMode int

const (
	// LoopInfinitely repeats material forever.
	LoopInfinitely LoopMode = iota
	// LoopUntilEndOfCycle repeats material until the end of a cycle.
	LoopUntilEndOfCycle
	// LoopDisabled plays material once.
	LoopDisabled
)

// LoopBehavior configures a looper.
type LoopBehavior struct {
	Mode LoopMode
	// Cycle is the last cycle played in LoopUntilEndOfCycle mode.
	Cycle int
}

// Infinitely returns behavior that never stops looping.
func Infinitely() LoopBehavior {
	return LoopBehavior{Mode: LoopInfinitely}
}

// UntilEndOfCycle returns behavior that stops at the end of cycle.
func UntilEndOfCycle(cycle int) LoopBehavior {
	return LoopBehavior{Mode: LoopUntilEndOfCycle, Cycle: cycle}
}

// Disabled returns behavior that doesn't loop.
func Disabled() LoopBehavior {
	return LoopBehavior{Mode: LoopDisabled}
}

// endFrame returns the frame where material ends for this behavior.
func (b LoopBehavior) endFrame(length int) int {
	if b.Mode == LoopUntilEndOfCycle {
		return (b.Cycle + 1) * length
	}
	return math.MaxInt
}

// Looper repeats the material of its inner supplier.
type Looper struct {
	inner    Supplier
	behavior LoopBehavior
	fades    bool
	view     signal.Float64
}

// NewLooper returns looper with infinite behavior and fades disabled.
func NewLooper(inner Supplier) *Looper {
	return &Looper{
		inner: inner,
		view:  make(signal.Float64, 0, inner.NumChannels()),
	}
}

// SetBehavior sets loop behavior.
func (l *Looper) SetBehavior(b LoopBehavior) {
	l.behavior = b
}

// Behavior returns current loop behavior.
func (l *Looper) Behavior() LoopBehavior {
	return l.behavior
}

// SetFades enables fades at cycle boundaries.
func (l *Looper) SetFades(enabled bool) {
	l.fades = enabled
}

// CycleAt returns the cycle the frame belongs to.
func (l *Looper) CycleAt(frame int) int {
	length := l.inner.FrameCount()
	if frame < 0 || length == 0 {
		return 0
	}
	return frame / length
}

// FrameCount returns the length of a single cycle.
func (l *Looper) FrameCount() int {
	return l.inner.FrameCount()
}

// FrameRate returns frame rate of inner supplier.
func (l *Looper) FrameRate() float64 {
	return l.inner.FrameRate()
}

// NumChannels returns the number of channels of inner supplier.
func (l *Looper) NumChannels() int {
	return l.inner.NumChannels()
}

func (l *Looper) bypass() bool {
	return l.behavior.Mode == LoopDisabled || l.inner.FrameCount() == 0
}

// walk splits the frames [start, start+ideal) into segments that don't
// cross cycle boundaries and calls fn for each segment with material.
// Offset is relative to start. It returns the number of consumed frames and
// whether the end of the last cycle was reached.
func (l *Looper) walk(start, ideal int, fn func(inCycle, offset, frames, cycle int)) (int, bool) {
	length := l.inner.FrameCount()
	end := l.behavior.endFrame(length)
	pos := max(start, 0)
	stop := start + ideal
	for pos < stop {
		if pos >= end {
			return pos - start, true
		}
		inCycle := pos % length
		frames := min(stop-pos, length-inCycle, end-pos)
		fn(inCycle, pos-start, frames, pos/length)
		pos += frames
	}
	if stop < 0 {
		return ideal, false
	}
	return pos - start, pos >= end
}

// SupplyAudio fills dst with repeated material.
func (l *Looper) SupplyAudio(req Request, dst signal.Float64) Response {
	if l.bypass() {
		return l.inner.SupplyAudio(req, dst)
	}
	n := dst.Size()
	dst.Clear(0, min(max(-req.StartFrame, 0), n))
	length := l.inner.FrameCount()
	consumed, reached := l.walk(req.StartFrame, n, func(inCycle, offset, frames, cycle int) {
		l.view = dst.FramesInto(l.view, offset, offset+frames)
		l.inner.SupplyAudio(Request{
			StartFrame:     inCycle,
			DestSampleRate: req.DestSampleRate,
		}, l.view)
		if !l.fades {
			return
		}
		if cycle > 0 {
			fadeIn(l.view, inCycle)
		}
		fadeOut(l.view, inCycle, length)
	})
	if reached {
		dst.Clear(consumed, n)
		return Response{Consumed: consumed, Written: consumed, Status: ReachedEnd}
	}
	return Response{Consumed: consumed, Written: n}
}

// SupplyMidi appends repeated events. MIDI is silenced at every cycle
// wrap so notes don't hang across the boundary.
func (l *Looper) SupplyMidi(req Request, events *EventList) Response {
	if l.bypass() {
		return l.inner.SupplyMidi(req, events)
	}
	srcRate := l.inner.FrameRate()
	ideal := signal.ConvertFrames(req.DestFrames, req.DestSampleRate, srcRate)
	consumed, reached := l.walk(req.StartFrame, ideal, func(inCycle, offset, frames, cycle int) {
		destFrom := signal.ConvertFrames(offset, srcRate, req.DestSampleRate)
		destTo := min(signal.ConvertFrames(offset+frames, srcRate, req.DestSampleRate), req.DestFrames)
		if inCycle == 0 && cycle > 0 {
			Silence(events, req.BlockOffset+destFrom, Append)
		}
		l.inner.SupplyMidi(Request{
			StartFrame:     inCycle,
			DestSampleRate: req.DestSampleRate,
			DestFrames:     destTo - destFrom,
			BlockOffset:    req.BlockOffset + destFrom,
		}, events)
	})
	if reached {
		written := min(signal.ConvertFrames(consumed, srcRate, req.DestSampleRate), req.DestFrames)
		return Response{Consumed: consumed, Written: written, Status: ReachedEnd}
	}
	return Response{Consumed: consumed, Written: req.DestFrames}
}
