package speaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"pipelined.dev/clip/host"
	"pipelined.dev/clip/log"
	"pipelined.dev/clip/mock"
	"pipelined.dev/clip/timeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStream(t *testing.T) {
	tests := []struct {
		description string
		outputs     int
		channels    int
		route       int
		volume      float64
		expected    [2]float64
	}{
		{
			description: "stereo",
			outputs:     2,
			channels:    2,
			expected:    [2]float64{0.25, 0.25},
		},
		{
			description: "mono on both sides",
			outputs:     1,
			channels:    1,
			expected:    [2]float64{0.25, 0.25},
		},
		{
			description: "right only",
			outputs:     2,
			channels:    1,
			route:       1,
			expected:    [2]float64{0, 0.25},
		},
		{
			description: "volume",
			outputs:     2,
			channels:    2,
			volume:      20,
			expected:    [2]float64{2.5, 2.5},
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			tl := timeline.NewSteady()
			tl.Start()
			m, err := host.NewMixer(host.Format{SampleRate: 8, NumChannels: test.outputs, BlockSize: 4}, tl, host.WithLogger(log.Discard()))
			assert.NoError(t, err)
			p := mock.NewProducer("p", 0.25, test.channels)
			p.Route = host.Route{Channel: test.route}
			assert.NoError(t, m.Engage(p))

			player := New(m, test.volume)
			samples := make([][2]float64, 6)
			n, ok := player.volume.Stream(samples)
			assert.True(t, ok)
			assert.Equal(t, 6, n)
			for _, s := range samples {
				assert.InDelta(t, test.expected[0], s[0], 1e-9)
				assert.InDelta(t, test.expected[1], s[1], 1e-9)
			}
			_, produced := p.Counters()
			assert.Equal(t, 2, produced)
			assert.Equal(t, 1.0, tl.CursorPos())
			assert.NoError(t, m.Close())
		})
	}
}
