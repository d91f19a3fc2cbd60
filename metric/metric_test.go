package metric_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/clip/metric"
)

type meteredMixer struct{}

type meteredRegister struct{}

func TestMeter(t *testing.T) {
	sampleRate := 48000.0
	var tests = []struct {
		description        string
		component          interface{}
		routines           int
		blocks             int
		blockSize          int64
		expectedFrames     string
		expectedBlocks     string
		expectedComponents string
	}{
		{
			description:        "value component",
			component:          meteredMixer{},
			routines:           2,
			blocks:             10,
			blockSize:          100,
			expectedFrames:     "2000",
			expectedBlocks:     "20",
			expectedComponents: "2",
		},
		{
			description:        "pointer resolves to the same type",
			component:          &meteredMixer{},
			routines:           2,
			blocks:             10,
			blockSize:          100,
			expectedFrames:     "4000",
			expectedBlocks:     "40",
			expectedComponents: "4",
		},
	}
	testFn := func(fn metric.MeasureFunc, wg *sync.WaitGroup, blocks int, blockSize int64) {
		for i := 0; i < blocks; i++ {
			fn(blockSize)
		}
		wg.Done()
	}

	for _, c := range tests {
		wg := &sync.WaitGroup{}
		wg.Add(c.routines)
		for i := 0; i < c.routines; i++ {
			go testFn(metric.Meter(c.component, sampleRate)(), wg, c.blocks, c.blockSize)
		}
		wg.Wait()
		values := metric.Get(c.component)
		assert.Equal(t, c.expectedFrames, values[metric.FrameCounter], c.description)
		assert.Equal(t, c.expectedBlocks, values[metric.BlockCounter], c.description)
		assert.Equal(t, c.expectedComponents, values[metric.ComponentCounter], c.description)
	}
}

func TestCounter(t *testing.T) {
	misses := metric.Counter(&meteredRegister{}, metric.LockMissCounter)
	misses.Add(1)
	misses.Add(2)
	assert.Equal(t, "3", metric.Get(meteredRegister{})[metric.LockMissCounter])
	assert.Equal(t, "0", metric.Get(meteredRegister{})[metric.SuspensionCounter])
	assert.Contains(t, metric.GetAll(), "metric_test.meteredRegister")

	assert.Panics(t, func() {
		metric.Counter(meteredRegister{}, metric.FrameCounter)
	})
}
