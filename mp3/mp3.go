// Package mp3 loads mp3 files into sources and encodes rendered blocks
// into mp3 files.
package mp3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/source"
)

// NumChannels is the number of channels decoder provides. It always
// decodes to stereo.
const NumChannels = 2

// Load decodes the whole file into memory.
func Load(path string, options ...source.AudioOption) (*source.PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pcm, err := Decode(f, options...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pcm, nil
}

// Decode decodes the whole mp3 stream into memory.
func Decode(r io.Reader, options ...source.AudioOption) (*source.PCM, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, err
	}
	return source.NewPCM(decode16(raw), float64(d.SampleRate()), options...), nil
}

// decode16 converts little endian 16 bit interleaved stereo bytes.
// Trailing incomplete frame is dropped.
func decode16(raw []byte) signal.Float64 {
	frameBytes := 2 * NumChannels
	samples := make([]int16, len(raw)/frameBytes*NumChannels)
	// reading from memory never fails
	_ = binary.Read(bytes.NewReader(raw), binary.LittleEndian, samples)
	ints := make([]int, len(samples))
	for i := range samples {
		ints[i] = int(samples[i])
	}
	data := signal.InterInt{
		Data:        ints,
		NumChannels: NumChannels,
		BitDepth:    signal.BitDepth16,
	}.AsFloat64()
	if data == nil {
		return signal.EmptyFloat64(NumChannels, 0)
	}
	return data
}
