package supply

import (
	"math"

	"github.com/mjibson/go-dsp/window"

	"pipelined.dev/clip/signal"
)

// Mode is the audio stretch strategy.
type Mode int

const (
	// Resampling changes time and pitch together.
	Resampling Mode = iota
	// Serious changes time and preserves pitch.
	Serious
)

func (m Mode) String() string {
	if m == Serious {
		return "serious"
	}
	return "resample"
}

const (
	defaultScratchSize = 1 << 15
	defaultGrainSize   = 2048
	// interpolation reads one frame before and two frames after a position.
	interpolationPadding = 4
)

// StretcherOption configures a stretcher.
type StretcherOption func(*Stretcher)

// WithScratchSize sets the number of source frames the stretcher can read
// per inner request. Larger blocks are processed in chunks.
func WithScratchSize(frames int) StretcherOption {
	return func(s *Stretcher) {
		s.scratchSize = frames
	}
}

// WithGrainSize sets the grain length of the serious strategy in
// destination frames.
func WithGrainSize(frames int) StretcherOption {
	return func(s *Stretcher) {
		s.grainSize = frames
	}
}

// WithMode sets the stretch strategy.
func WithMode(m Mode) StretcherOption {
	return func(s *Stretcher) {
		s.mode = m
	}
}

// Stretcher rescales the relation between destination frames and source
// frames by a tempo factor. It also converts the frame rate of the source
// to the destination sample rate.
type Stretcher struct {
	inner       Supplier
	enabled     bool
	factor      float64
	mode        Mode
	scratchSize int
	grainSize   int
	scratch     signal.Float64
	view        signal.Float64
	grain       []float64
}

// NewStretcher returns an enabled stretcher with tempo factor 1.
func NewStretcher(inner Supplier, options ...StretcherOption) *Stretcher {
	s := &Stretcher{
		inner:       inner,
		enabled:     true,
		factor:      1,
		scratchSize: defaultScratchSize,
		grainSize:   defaultGrainSize,
	}
	for _, option := range options {
		option(s)
	}
	s.grainSize = max(s.grainSize-s.grainSize%2, 2)
	s.scratch = signal.EmptyFloat64(inner.NumChannels(), s.scratchSize)
	s.view = make(signal.Float64, 0, inner.NumChannels())
	s.grain = window.Hann(s.grainSize)
	return s
}

// SetEnabled enables or disables stretching. Disabled stretcher passes
// requests through.
func (s *Stretcher) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// SetTempoFactor sets the factor. Values below MinTempoFactor are clamped.
func (s *Stretcher) SetTempoFactor(factor float64) {
	if math.IsNaN(factor) || factor < MinTempoFactor {
		factor = MinTempoFactor
	}
	s.factor = factor
}

// TempoFactor returns current factor.
func (s *Stretcher) TempoFactor() float64 {
	return s.factor
}

// SetMode sets the audio stretch strategy.
func (s *Stretcher) SetMode(m Mode) {
	s.mode = m
}

// Mode returns the audio stretch strategy.
func (s *Stretcher) Mode() Mode {
	return s.mode
}

// FrameCount returns the number of source frames scaled by tempo factor.
func (s *Stretcher) FrameCount() int {
	if !s.enabled {
		return s.inner.FrameCount()
	}
	return int(math.Round(float64(s.inner.FrameCount()) / s.factor))
}

// FrameRate returns the frame rate of inner supplier.
func (s *Stretcher) FrameRate() float64 {
	return s.inner.FrameRate()
}

// NumChannels returns the number of channels of inner supplier.
func (s *Stretcher) NumChannels() int {
	return s.inner.NumChannels()
}

// SupplyMidi stretches the time axis by scaling the destination sample
// rate passed to inner supplier.
func (s *Stretcher) SupplyMidi(req Request, events *EventList) Response {
	if s.enabled {
		req.DestSampleRate = req.DestSampleRate / s.factor
	}
	return s.inner.SupplyMidi(req, events)
}

// SupplyAudio fills dst with stretched material.
func (s *Stretcher) SupplyAudio(req Request, dst signal.Float64) Response {
	if !s.enabled {
		return s.inner.SupplyAudio(req, dst)
	}
	// source frames per destination frame without tempo change
	rate := s.inner.FrameRate() / req.DestSampleRate
	ratio := s.factor * rate
	if ratio == 1 {
		return s.inner.SupplyAudio(req, dst)
	}
	lookahead := interpolationPadding
	if s.mode == Serious {
		lookahead += int(math.Ceil(float64(s.grainSize) * rate))
	}
	serious := s.mode == Serious && lookahead < s.scratchSize/2
	if !serious {
		lookahead = interpolationPadding
	}
	n := dst.Size()
	chunk := max(int(float64(s.scratchSize-lookahead-1)/ratio), 1)
	for done := 0; done < n; done += chunk {
		size := min(chunk, n-done)
		base := int(math.Round(float64(done) * ratio))
		consumed := int(math.Round(float64(done+size)*ratio)) - base
		frames := min(consumed+lookahead, s.scratchSize)
		s.view = s.scratch.FramesInto(s.view, 0, frames)
		inner := s.inner.SupplyAudio(Request{
			StartFrame:     req.StartFrame + base,
			DestSampleRate: s.inner.FrameRate(),
		}, s.view)
		out := dst.Frames(done, done+size)
		// fractional source position of the first frame of chunk
		phase := float64(done)*ratio - float64(base)
		if serious {
			s.overlapAdd(out, phase, ratio, rate)
		} else {
			s.interpolate(out, phase, ratio)
		}
		if inner.Status == ReachedEnd && inner.Consumed <= consumed {
			written := min(int(math.Ceil((float64(inner.Consumed)-phase)/ratio)), size)
			written = max(written, 0)
			dst.Clear(done+written, n)
			return Response{
				Consumed: base + inner.Consumed,
				Written:  done + written,
				Status:   ReachedEnd,
			}
		}
	}
	return Response{
		Consumed: int(math.Round(float64(n) * ratio)),
		Written:  n,
	}
}

// at returns the scratch sample of channel at frame, with edge frames
// repeated.
func (s *Stretcher) at(channel, frame int) float64 {
	data := s.view[channel]
	switch {
	case frame < 0:
		frame = 0
	case frame >= len(data):
		frame = len(data) - 1
	}
	return data[frame]
}

// sample returns the interpolated sample at fractional source position.
func (s *Stretcher) sample(channel int, pos float64) float64 {
	if pos < 0 {
		pos = 0
	}
	i := int(pos)
	x := pos - float64(i)
	return cubic(s.at(channel, i-1), s.at(channel, i), s.at(channel, i+1), s.at(channel, i+2), x)
}

// interpolate resamples the scratch into out. Pitch follows the ratio.
func (s *Stretcher) interpolate(out signal.Float64, phase, ratio float64) {
	for c := range out {
		ch := c % len(s.view)
		for i := range out[c] {
			out[c][i] = s.sample(ch, phase+float64(i)*ratio)
		}
	}
}

// overlapAdd stretches the scratch into out keeping pitch. Grains are read
// at the frame rate ratio and placed with a hop scaled by the tempo factor;
// two grains overlap at any frame and are crossfaded with a Hann window.
func (s *Stretcher) overlapAdd(out signal.Float64, phase, ratio, rate float64) {
	hop := s.grainSize / 2
	for i := 0; i < out.Size(); i++ {
		k := i / hop
		p := i - k*hop
		// grain k starts at frame k*hop, previous grain is in its second half
		pos1 := phase + float64(k*hop)*ratio + float64(p)*rate
		w1 := s.grain[p]
		var pos0, w0 float64
		if k > 0 {
			pos0 = phase + float64((k-1)*hop)*ratio + float64(p+hop)*rate
			w0 = s.grain[p+hop]
		} else {
			w1 = 1
		}
		sum := w0 + w1
		for c := range out {
			ch := c % len(s.view)
			v := w1 * s.sample(ch, pos1)
			if w0 > 0 {
				v += w0 * s.sample(ch, pos0)
			}
			if sum > 1e-9 {
				v /= sum
			} else {
				v = s.sample(ch, pos1)
			}
			out[c][i] = v
		}
	}
}

// cubic performs Catmull-Rom interpolation between y1 and y2, x is the
// fractional position between them.
func cubic(y0, y1, y2, y3, x float64) float64 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1
	return a0*x*x*x + a1*x*x + a2*x + a3
}
