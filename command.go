package clip

import (
	"math"

	"pipelined.dev/clip/timeline"
)

// PlayArgs are arguments of play command.
type PlayArgs struct {
	timeline.Moment
	StartTime  StartTime
	Repetition Repetition
}

// StopArgs are arguments of stop command.
type StopArgs struct {
	timeline.Moment
	StopTime StopTime
}

// SeekArgs are arguments of seek command.
type SeekArgs struct {
	timeline.Moment
	// Position is the proportional position within the clip, between 0
	// and 1.
	Position float64
}

// RecordArgs are arguments of record command.
type RecordArgs struct {
	timeline.Moment
}

// Play schedules the clip. Playing clip is retriggered, clip scheduled for
// stop keeps playing and paused clip is resumed.
func (c *Clip) Play(args PlayArgs) error {
	switch c.state.Kind {
	case Stopped:
		c.repetition = args.Repetition
		c.state = playing(PlayingState{
			Instruction: instruction(args.StartTime, args.Moment, 0),
		})
	case ScheduledOrPlaying:
		p := c.state.Playing
		switch {
		case p.ScheduledForStop:
			p.ScheduledForStop = false
			c.state = playing(p)
		case p.started():
			c.repetition = args.Repetition
			c.state = suspend(Retrigger, p, c.fadeLength()).Suspending.withReason(Retrigger, args.StartTime)
		default:
			c.repetition = args.Repetition
			c.state = playing(PlayingState{
				Instruction: instruction(args.StartTime, args.Moment, 0),
			})
		}
	case Suspending:
		s := c.state.Suspending
		if s.Reason == Stop && args.StartTime != Immediately {
			return nil
		}
		c.repetition = args.Repetition
		if s.Reason == Retrigger && args.StartTime == Immediately {
			return nil
		}
		c.state = s.withReason(PlayWhileSuspending, args.StartTime)
	case Paused:
		c.repetition = args.Repetition
		c.state = playing(PlayingState{
			Instruction: instruction(Immediately, args.Moment, c.state.Paused.Pos),
		})
	}
	return nil
}

// Pause suspends the playing clip. Clips that are counting in are not
// affected.
func (c *Clip) Pause(m timeline.Moment) error {
	switch c.state.Kind {
	case ScheduledOrPlaying:
		if p := c.state.Playing; p.started() {
			c.state = suspend(Pause, p, c.fadeLength())
		}
	case Suspending:
		if s := c.state.Suspending; s.Reason != Stop {
			c.state = s.withReason(Pause, Immediately)
		}
	}
	return nil
}

// Stop stops the clip immediately or at the end of current cycle. Clips
// that are counting in are stopped without fade.
func (c *Clip) Stop(args StopArgs) error {
	switch c.state.Kind {
	case ScheduledOrPlaying:
		p := c.state.Playing
		switch {
		case !p.started():
			c.state = stopped()
		case args.StopTime == StopImmediately:
			c.state = suspend(Stop, p, c.fadeLength())
		default:
			p.ScheduledForStop = true
			c.state = playing(p)
		}
	case Suspending:
		if args.StopTime == StopImmediately {
			c.state = c.state.Suspending.withReason(Stop, Immediately)
		}
	case Paused:
		c.state = stopped()
	}
	return nil
}

// Record starts overdubbing of the playing clip.
func (c *Clip) Record(args RecordArgs) error {
	switch c.state.Kind {
	case ScheduledOrPlaying:
		c.state.Playing.Overdubbing = true
	case Stopped, Paused:
		return ErrNotPlaying
	}
	return nil
}

// SeekTo moves the position of the playing or paused clip. Seeks of a
// suspending clip are ignored.
func (c *Clip) SeekTo(args SeekArgs) error {
	pos := clamp(args.Position) * c.nativeSeconds()
	switch c.state.Kind {
	case ScheduledOrPlaying:
		p := c.state.Playing
		if !p.started() {
			return ErrNotStarted
		}
		p.Instruction = instruction(Immediately, args.Moment, pos)
		p.Resolved = false
		p.Pos = 0
		c.state = playing(p)
	case Paused:
		c.state = paused(pos)
	case Stopped:
		return ErrNotStarted
	}
	return nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}
