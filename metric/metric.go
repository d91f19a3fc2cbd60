package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"pipelined.dev/clip/signal"
)

const componentsLabel = "clip.components"

const (
	// BlockCounter measures number of processed blocks.
	BlockCounter = "Blocks"
	// FrameCounter measures number of processed frames.
	FrameCounter = "Frames"
	// LatencyCounter measures latency between processing calls.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of signal.
	DurationCounter = "Duration"
	// ComponentCounter counts number of metered instances.
	ComponentCounter = "Components"
	// SuspensionCounter counts fades started by transport commands.
	SuspensionCounter = "Suspensions"
	// LockMissCounter counts blocks rendered as silence because the
	// control side was holding the handle.
	LockMissCounter = "LockMisses"
	// DroppedEventCounter counts MIDI events that did not fit into a block.
	DroppedEventCounter = "DroppedEvents"
)

var (
	components = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BlockCounter,
		FrameCounter,
		LatencyCounter,
		DurationCounter,
		ComponentCounter,
		SuspensionCounter,
		LockMissCounter,
		DroppedEventCounter,
	}
)

// Get metrics values for provided component type.
func Get(component interface{}) map[string]string {
	return getCounters(getType(component))
}

// GetAll returns counters for all measured components.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	components.Lock()
	defer components.Unlock()
	for component := range components.m {
		m[component] = getCounters(component)
	}
	return m
}

func getCounters(componentType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(componentType, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns new Measure closure. This closure is needed to postpone metrics
// capture until component is actually running.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when block is processed.
type MeasureFunc func(frames int64)

// Meter creates new meter closure to capture component counters.
func Meter(component interface{}, sampleRate float64) ResetFunc {
	t := getType(component)
	metric := components.get(t)
	metric.components.Add(1)
	return func() MeasureFunc {
		calledAt := time.Now()
		var (
			blockSize     int64
			blockDuration time.Duration
		)
		return func(frames int64) {
			metric.latency.set(time.Since(calledAt))
			metric.blocks.Add(1)
			metric.frames.Add(frames)
			// recalculate block duration only when block size has changed
			if blockSize != frames {
				blockSize = frames
				blockDuration = signal.DurationOf(sampleRate, frames)
			}
			metric.duration.add(blockDuration)
			calledAt = time.Now()
		}
	}
}

// Counter returns the named event counter of component type. The returned
// value is safe to increment from the real-time path.
func Counter(component interface{}, counter string) *expvar.Int {
	m := components.get(getType(component))
	switch counter {
	case SuspensionCounter:
		return m.suspensions
	case LockMissCounter:
		return m.lockMisses
	case DroppedEventCounter:
		return m.droppedEvents
	}
	panic(fmt.Sprintf("metric: %s is not an event counter", counter))
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(componentType string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[componentType]; ok {
		return metric
	}
	metric := newMetric(componentType)
	m.m[componentType] = metric
	return metric
}

type metric struct {
	key           string
	components    *expvar.Int
	blocks        *expvar.Int
	frames        *expvar.Int
	suspensions   *expvar.Int
	lockMisses    *expvar.Int
	droppedEvents *expvar.Int
	latency       *duration
	duration      *duration
}

func newMetric(componentType string) metric {
	m := metric{
		key:           componentType,
		components:    expvar.NewInt(key(componentType, ComponentCounter)),
		blocks:        expvar.NewInt(key(componentType, BlockCounter)),
		frames:        expvar.NewInt(key(componentType, FrameCounter)),
		suspensions:   expvar.NewInt(key(componentType, SuspensionCounter)),
		lockMisses:    expvar.NewInt(key(componentType, LockMissCounter)),
		droppedEvents: expvar.NewInt(key(componentType, DroppedEventCounter)),
		latency:       &duration{},
		duration:      &duration{},
	}
	expvar.Publish(key(componentType, LatencyCounter), m.latency)
	expvar.Publish(key(componentType, DurationCounter), m.duration)
	return m
}

func key(componentType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", componentsLabel, componentType, counter)
}

func getType(component interface{}) string {
	rv := reflect.ValueOf(component)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%v", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
