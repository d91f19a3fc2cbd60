package clip

import (
	"math"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/source"
	"pipelined.dev/clip/supply"
	"pipelined.dev/clip/timeline"
)

// Block is a destination of a single Fill call. Audio material is written
// to Audio, MIDI material is appended to Events.
type Block struct {
	Audio      signal.Float64
	Events     *supply.EventList
	Frames     int
	SampleRate float64
}

// NewBlock allocates a block.
func NewBlock(numChannels, frames int, sampleRate float64, eventCapacity int) *Block {
	return &Block{
		Audio:      signal.EmptyFloat64(numChannels, frames),
		Events:     supply.NewEventList(eventCapacity),
		Frames:     frames,
		SampleRate: sampleRate,
	}
}

// Silence clears audio of the block.
func (b *Block) Silence() {
	b.Audio.Clear(0, b.Audio.Size())
}

// Fill computes the next block. It must be called once per block, before
// the timeline is advanced by the block. Fill never allocates and always
// leaves the clip in a valid state. Blocks are silent while the timeline
// isn't running.
func (c *Clip) Fill(b *Block, tl timeline.Timeline) {
	if b.SampleRate > 0 {
		c.sampleRate = b.SampleRate
	}
	cursor := tl.CursorPos()
	if !tl.IsRunning() {
		b.Silence()
		// nothing sounds while the timeline stands, so fades end at once
		if c.state.Kind == Suspending {
			if c.source.Kind() == source.Midi {
				supply.Silence(b.Events, 0, supply.Append)
			}
			c.state = c.followUp(c.state.Suspending, tl, cursor, b)
		}
		return
	}
	factor := c.combinedTempoFactor(tl.TempoAt(cursor))
	switch c.state.Kind {
	case Suspending:
		c.fillSuspending(b, tl, cursor, factor)
	case ScheduledOrPlaying:
		c.fillPlaying(b, cursor, factor)
	default:
		b.Silence()
	}
}

func (c *Clip) fillSuspending(b *Block, tl timeline.Timeline, cursor, factor float64) {
	s := c.state.Suspending
	if c.source.Kind() == source.Midi {
		b.Silence()
		supply.Silence(b.Events, 0, supply.Append)
		c.state = c.followUp(s, tl, cursor, b)
		return
	}
	c.chain.Stretcher().SetTempoFactor(factor)
	resp := c.chain.Head().SupplyAudio(supply.Request{
		StartFrame:     s.Cursor,
		DestSampleRate: c.sampleRate,
	}, b.Audio)
	n := b.Audio.Size()
	fade := min(n, max(s.Countdown, 0))
	if s.Length > 0 {
		b.Audio.Ramp(0, fade, float64(s.Countdown)/float64(s.Length), float64(s.Countdown-fade)/float64(s.Length))
	}
	b.Audio.Clear(fade, n)
	s.Cursor += resp.Consumed
	s.Countdown -= n
	if s.Countdown > 0 && resp.Status != supply.ReachedEnd {
		c.state = suspending(s)
		return
	}
	c.state = c.followUp(s, tl, cursor, b)
}

// followUp returns the state after suspension. Retrigger and
// PlayWhileSuspending schedule a play at the position following the block,
// so an immediate play starts from the first frame of the next block.
func (c *Clip) followUp(s SuspendingState, tl timeline.Timeline, cursor float64, b *Block) State {
	next := cursor + float64(b.Frames)/c.sampleRate
	m := timeline.Moment{
		Cursor:  next,
		Tempo:   tl.TempoAt(cursor),
		NextBar: tl.NextBarAt(cursor),
	}
	switch s.Reason {
	case Pause:
		return paused(float64(max(s.Pos, 0)) / c.sourceRate())
	case Stop:
		return stopped()
	}
	return playing(PlayingState{Instruction: instruction(s.PlayTime, m, 0)})
}

func (c *Clip) fillPlaying(b *Block, cursor, factor float64) {
	p := c.state.Playing
	if !p.Resolved {
		p.Pos = c.resolve(p.Instruction, cursor, factor)
		p.Resolved = true
	}
	looper := c.chain.Looper()
	if p.ScheduledForStop || c.repetition == Once {
		looper.SetBehavior(supply.UntilEndOfCycle(looper.CycleAt(p.Pos)))
	} else {
		looper.SetBehavior(supply.Infinitely())
	}
	c.chain.Stretcher().SetTempoFactor(factor)

	var resp supply.Response
	if c.source.Kind() == source.Midi {
		b.Silence()
		resp = c.chain.Head().SupplyMidi(supply.Request{
			StartFrame:     p.Pos,
			DestSampleRate: c.sampleRate,
			DestFrames:     b.Frames,
		}, b.Events)
	} else {
		resp = c.chain.Head().SupplyAudio(supply.Request{
			StartFrame:     p.Pos,
			DestSampleRate: c.sampleRate,
		}, b.Audio)
	}
	if resp.Status == supply.ReachedEnd {
		c.state = stopped()
		return
	}
	p.Pos += resp.Consumed
	c.state = playing(p)
}

// resolve computes the first position after scheduling. Timeline distance
// to the scheduled position is scaled by the tempo factor both ways, so
// count-in is consumed in beats and a late start lands where the clip
// would be had it started in time.
func (c *Clip) resolve(in Instruction, cursor, factor float64) int {
	rate := c.sourceRate()
	pos := int(math.Round((cursor - in.ScheduledPos) * rate * factor))
	if pos < 0 {
		return pos
	}
	return pos + int(math.Round(in.StartOffset*rate))
}
