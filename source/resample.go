package source

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"pipelined.dev/clip/signal"
)

// flushFrames is the silence appended to the input so the resampler
// releases its delayed output.
const flushFrames = 4096

// Resample converts audio material to the sample rate. The result has
// exactly round(frames * sampleRate / rate) frames.
func Resample(p *PCM, sampleRate float64) (*PCM, error) {
	if p.rate == sampleRate || p.FrameCount() == 0 {
		return p, nil
	}
	numChannels := p.NumChannels()
	r, err := resampling.New(&resampling.Config{
		InputRate:  p.rate,
		OutputRate: sampleRate,
		Channels:   numChannels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	frames := p.FrameCount()
	input := make([]float64, (frames+flushFrames)*numChannels)
	for c := range p.data {
		for i, v := range p.data[c] {
			input[i*numChannels+c] = v
		}
	}
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("failed to resample: %w", err)
	}

	size := int(math.Round(float64(frames) * sampleRate / p.rate))
	data := signal.EmptyFloat64(numChannels, size)
	available := min(len(output)/numChannels, size)
	for i := 0; i < available; i++ {
		for c := range data {
			data[c][i] = output[i*numChannels+c]
		}
	}
	return &PCM{
		data:  data,
		rate:  sampleRate,
		tempo: p.tempo,
	}, nil
}
