// Package wav loads wav files into sources and writes rendered blocks to
// wav files.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/source"
)

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")
	// ErrInvalidFile is returned when file is not a valid wav.
	ErrInvalidFile = errors.New("wav is not valid")
)

func supported(bitDepth signal.BitDepth) bool {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
		return true
	}
	return false
}

// Load reads the whole file into memory.
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

// Decode reads the whole wav stream into memory.
func Decode(r io.ReadSeeker, options ...source.AudioOption) (*source.PCM, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidFile
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	numChannels := int(decoder.NumChans)
	data := signal.InterInt{
		Data:        buf.Data,
		NumChannels: numChannels,
		BitDepth:    bitDepth,
	}.AsFloat64()
	if data == nil {
		data = signal.EmptyFloat64(numChannels, 0)
	}
	return source.NewPCM(data, float64(decoder.SampleRate), options...), nil
}

// Sink saves audio to wav file.
type Sink struct {
	bitDepth signal.BitDepth
	file     *os.File
	encoder  *wav.Encoder
	buf      *audio.IntBuffer
}

// NewSink creates the file and writes the header.
func NewSink(path string, sampleRate float64, numChannels int, bitDepth signal.BitDepth) (*Sink, error) {
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	rate := int(sampleRate)
	return &Sink{
		bitDepth: bitDepth,
		file:     f,
		encoder:  wav.NewEncoder(f, rate, int(bitDepth), numChannels, 1),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: numChannels,
				SampleRate:  rate,
			},
			SourceBitDepth: int(bitDepth),
		},
	}, nil
}

// Write appends the block to the file.
func (s *Sink) Write(b signal.Float64) error {
	s.buf.Data = b.AsInterInt(s.bitDepth)
	return s.encoder.Write(s.buf)
}

// Close flushes encoder and closes the file.
func (s *Sink) Close() error {
	err := s.encoder.Close()
	if err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
