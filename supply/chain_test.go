package supply_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
)

func TestChainLoopExactness(t *testing.T) {
	chain := supply.NewChain(ramp(2000, 48000), supply.WithLoopFades())
	chain.Section().SetBoundary(supply.Boundary{Start: 500, Length: 1000})
	chain.Looper().SetBehavior(supply.UntilEndOfCycle(0))
	assert.Equal(t, 1000, chain.Head().FrameCount())

	dst := signal.EmptyFloat64(1, 480)
	pos, total := 0, 0
	var resp supply.Response
	for i := 0; i < 3; i++ {
		resp = chain.Head().SupplyAudio(supply.Request{StartFrame: pos, DestSampleRate: 48000}, dst)
		pos += resp.Consumed
		total += resp.Consumed
	}
	assert.Equal(t, 1000, total)
	assert.Equal(t, supply.ReachedEnd, resp.Status)
	assert.Equal(t, 40, resp.Written)
}

func TestChainContinuity(t *testing.T) {
	// one big block and many small blocks produce the same material
	chain := supply.NewChain(ramp(2000, 1000))
	chain.Stretcher().SetTempoFactor(2)

	whole := signal.EmptyFloat64(1, 400)
	chain.Head().SupplyAudio(supply.Request{StartFrame: 0, DestSampleRate: 1000}, whole)

	var (
		pos    int
		pieces signal.Float64
	)
	block := signal.EmptyFloat64(1, 40)
	for i := 0; i < 10; i++ {
		resp := chain.Head().SupplyAudio(supply.Request{StartFrame: pos, DestSampleRate: 1000}, block)
		pos += resp.Consumed
		pieces = pieces.Append(block)
	}
	assert.Equal(t, whole, pieces)
}
