package slot

import (
	"expvar"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"pipelined.dev/clip"
	"pipelined.dev/clip/host"
	"pipelined.dev/clip/metric"
	"pipelined.dev/clip/timeline"
)

// DefaultEventCapacity is the number of MIDI events a register can
// produce in a single block.
const DefaultEventCapacity = 512

// Params are playback parameters owned by the control side. They are
// published as immutable snapshots, so the real-time side reads them
// without locking.
type Params struct {
	Volume float64
	host.Route
}

// Register is the shared playback handle of a slot. It holds the clip
// played by the host and the playback parameters.
//
// The clip is guarded by a mutex. The host acquires it with TryLock and
// produces silence if the control side holds it. Blocks missed this way
// are counted and the next holder of the lock advances the clip over them
// with silent fills, so the clip keeps its place on the timeline.
type Register struct {
	id            string
	eventCapacity int
	params        atomic.Pointer[Params]
	timeline      timeline.Timeline
	behind        atomic.Int64

	mu      sync.Mutex
	clip    *clip.Clip
	format  host.Format
	block   *clip.Block
	scratch *clip.Block
	past    pastTimeline

	lockMisses    *expvar.Int
	droppedEvents *expvar.Int
}

// NewRegister returns an empty register. The timeline is used to advance
// the clip over missed blocks on the control side.
func NewRegister(tl timeline.Timeline, p Params, eventCapacity int) *Register {
	if eventCapacity <= 0 {
		eventCapacity = DefaultEventCapacity
	}
	r := &Register{
		id:            xid.New().String(),
		eventCapacity: eventCapacity,
		timeline:      tl,
	}
	r.params.Store(&p)
	r.lockMisses = metric.Counter(r, metric.LockMissCounter)
	r.droppedEvents = metric.Counter(r, metric.DroppedEventCounter)
	return r
}

// ID implements host.Producer.
func (r *Register) ID() string {
	return r.id
}

// Params returns current playback parameters.
func (r *Register) Params() Params {
	return *r.params.Load()
}

// SetParams publishes new playback parameters.
func (r *Register) SetParams(p Params) {
	r.params.Store(&p)
}

// Set replaces the clip. Nil clip empties the register.
func (r *Register) Set(c *clip.Clip) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clip = c
	r.behind.Store(0)
	r.allocate()
}

// With calls fn with the clip while holding the lock. It returns
// ErrNoSource if register is empty.
func (r *Register) With(fn func(*clip.Clip) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clip == nil {
		return ErrNoSource
	}
	r.catchUp(r.timeline)
	return fn(r.clip)
}

// Loaded reports if register holds a clip.
func (r *Register) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip != nil
}

// Prepare implements host.Producer.
func (r *Register) Prepare(f host.Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.format = f
	r.allocate()
}

// allocate creates the block for current clip and format. Must be called
// with the lock held.
func (r *Register) allocate() {
	if r.clip == nil || r.format.BlockSize == 0 {
		r.block, r.scratch = nil, nil
		return
	}
	numChannels := r.clip.Source().NumChannels()
	r.block = clip.NewBlock(numChannels, r.format.BlockSize, r.format.SampleRate, r.eventCapacity)
	r.scratch = clip.NewBlock(numChannels, r.format.BlockSize, r.format.SampleRate, r.eventCapacity)
}

// catchUp fills the clip over blocks missed since the last fill. Output of
// missed blocks is discarded. Missed blocks are the ones right before the
// cursor. Must be called with the lock held.
func (r *Register) catchUp(tl timeline.Timeline) {
	n := r.behind.Swap(0)
	if n == 0 || r.scratch == nil || tl == nil {
		return
	}
	duration := float64(r.format.BlockSize) / r.format.SampleRate
	cursor := tl.CursorPos()
	r.past.Timeline = tl
	for k := n; k > 0; k-- {
		r.past.cursor = cursor - float64(k)*duration
		r.scratch.Events.Reset()
		r.clip.Fill(r.scratch, &r.past)
	}
}

// Produce implements host.Producer. Blocks are silent while the control
// side holds the lock.
func (r *Register) Produce(tl timeline.Timeline) host.Output {
	p := r.params.Load()
	if !r.mu.TryLock() {
		r.lockMisses.Add(1)
		if tl.IsRunning() {
			r.behind.Add(1)
		}
		return host.Output{Route: p.Route}
	}
	defer r.mu.Unlock()
	if r.clip == nil || r.block == nil {
		return host.Output{Route: p.Route}
	}
	r.catchUp(tl)
	b := r.block
	b.Events.Reset()
	r.clip.Fill(b, tl)
	if dropped := b.Events.Dropped(); dropped > 0 {
		r.droppedEvents.Add(int64(dropped))
	}
	b.Audio.Scale(p.Volume)
	return host.Output{
		Audio:  b.Audio,
		Events: b.Events,
		Route:  p.Route,
	}
}

// pastTimeline is a running timeline seen at an earlier cursor.
type pastTimeline struct {
	timeline.Timeline
	cursor float64
}

func (t *pastTimeline) CursorPos() float64 {
	return t.cursor
}

func (t *pastTimeline) IsRunning() bool {
	return true
}
