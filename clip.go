package clip

import (
	"math"
	"time"

	"pipelined.dev/clip/source"
	"pipelined.dev/clip/supply"
)

const (
	// SuspensionFade is the duration of the fade applied to audio while
	// suspending.
	SuspensionFade = 10 * time.Millisecond
	// DefaultSampleRate is assumed until the first block is filled.
	DefaultSampleRate = 48000.0
)

// Option configures a clip.
type Option func(*options)

type options struct {
	chain []supply.ChainOption
}

// WithStretchMode sets the audio stretch strategy.
func WithStretchMode(m supply.Mode) Option {
	return func(o *options) {
		o.chain = append(o.chain, supply.WithStretcher(supply.WithMode(m)))
	}
}

// WithScratchSize limits the number of source frames read at once. It
// must cover the largest block at the highest tempo factor to avoid
// chunking.
func WithScratchSize(frames int) Option {
	return func(o *options) {
		o.chain = append(o.chain, supply.WithStretcher(supply.WithScratchSize(frames)))
	}
}

// WithLoopFades enables fades at loop boundaries.
func WithLoopFades() Option {
	return func(o *options) {
		o.chain = append(o.chain, supply.WithLoopFades())
	}
}

// Clip is the transport of a single source.
type Clip struct {
	source            source.Source
	chain             *supply.Chain
	state             State
	repetition        Repetition
	manualTempoFactor float64
	sampleRate        float64
}

// New returns stopped clip that plays the source once.
func New(src source.Source, opts ...Option) *Clip {
	var o options
	for _, option := range opts {
		option(&o)
	}
	return &Clip{
		source:            src,
		chain:             supply.NewChain(src, o.chain...),
		manualTempoFactor: 1,
		sampleRate:        DefaultSampleRate,
	}
}

// Source returns the source of the clip.
func (c *Clip) Source() source.Source {
	return c.source
}

// State returns current state.
func (c *Clip) State() State {
	return c.state
}

// Repetition returns the loop policy.
func (c *Clip) Repetition() Repetition {
	return c.repetition
}

// SetRepeated sets the loop policy. It takes effect with the next block.
func (c *Clip) SetRepeated(repeated bool) {
	if repeated {
		c.repetition = Infinitely
		return
	}
	c.repetition = Once
}

// SetTempoFactor sets the factor multiplied into the tempo factor derived
// from the timeline. Non-positive values are clamped.
func (c *Clip) SetTempoFactor(factor float64) {
	if math.IsNaN(factor) {
		factor = 0
	}
	c.manualTempoFactor = max(factor, supply.MinTempoFactor)
}

// TempoFactor returns the manual tempo factor.
func (c *Clip) TempoFactor() float64 {
	return c.manualTempoFactor
}

// SetSection restricts the clip to a part of the source.
func (c *Clip) SetSection(b supply.Boundary) {
	c.chain.Section().SetBoundary(b)
}

// Section returns the part of the source the clip plays.
func (c *Clip) Section() supply.Boundary {
	return c.chain.Section().Boundary()
}

// SetStretchMode sets the audio stretch strategy.
func (c *Clip) SetStretchMode(m supply.Mode) {
	c.chain.Stretcher().SetMode(m)
}

// combinedTempoFactor returns the factor between the timeline tempo and
// the nominal tempo of the source.
func (c *Clip) combinedTempoFactor(tempo float64) float64 {
	factor := c.manualTempoFactor
	if nominal := c.source.Tempo(); nominal > 0 {
		factor *= tempo / nominal
	}
	if math.IsNaN(factor) || factor < supply.MinTempoFactor {
		return supply.MinTempoFactor
	}
	return factor
}

// fadeLength returns the length of suspension fade at the last known
// sample rate.
func (c *Clip) fadeLength() int {
	return int(math.Round(SuspensionFade.Seconds() * c.sampleRate))
}

// sourceRate returns the frame rate of positions.
func (c *Clip) sourceRate() float64 {
	return c.chain.Head().FrameRate()
}

// modulo maps the position to the first cycle. Count-in positions are
// kept.
func (c *Clip) modulo(pos int) int {
	length := c.chain.Looper().FrameCount()
	if pos < 0 || length == 0 {
		return pos
	}
	return pos % length
}

// NativeLength returns the duration of one cycle at the nominal tempo.
func (c *Clip) NativeLength() time.Duration {
	return time.Duration(c.nativeSeconds() * float64(time.Second))
}

func (c *Clip) nativeSeconds() float64 {
	rate := c.sourceRate()
	if rate <= 0 {
		return 0
	}
	return float64(c.chain.Looper().FrameCount()) / rate
}

// EffectiveLength returns the duration of one cycle at the timeline tempo.
func (c *Clip) EffectiveLength(tempo float64) time.Duration {
	return time.Duration(c.nativeSeconds() / c.combinedTempoFactor(tempo) * float64(time.Second))
}

// Position returns the position within the current cycle at the timeline
// tempo. It returns false if the clip has no position. Position is
// negative during count-in.
func (c *Clip) Position(tempo float64) (time.Duration, bool) {
	var seconds float64
	switch c.state.Kind {
	case ScheduledOrPlaying:
		if !c.state.Playing.Resolved {
			return 0, false
		}
		seconds = float64(c.modulo(c.state.Playing.Pos)) / c.sourceRate()
	case Suspending:
		seconds = float64(c.modulo(c.state.Suspending.Pos)) / c.sourceRate()
	case Paused:
		seconds = c.state.Paused.Pos
	default:
		return 0, false
	}
	seconds /= c.combinedTempoFactor(tempo)
	return time.Duration(seconds * float64(time.Second)), true
}

// ProportionalPosition returns the position within the current cycle as
// a value between 0 and 1. Count-in, zero-length clips and clips without
// position return 0.
func (c *Clip) ProportionalPosition(tempo float64) float64 {
	length := c.EffectiveLength(tempo)
	if length <= 0 {
		return 0
	}
	pos, ok := c.Position(tempo)
	if !ok || pos <= 0 {
		return 0
	}
	return min(float64(pos)/float64(length), 1)
}
