// Package vorbis loads ogg vorbis files into sources.
package vorbis

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/source"
)

// ErrNoChannels is returned when stream declares no channels.
var ErrNoChannels = errors.New("vorbis stream has no channels")

const readSize = 4096

// reader is the part of oggvorbis.Reader the loader needs.
type reader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

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

// Decode decodes the whole vorbis stream into memory.
func Decode(r io.Reader, options ...source.AudioOption) (*source.PCM, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decode(dec, options...)
}

func decode(dec reader, options ...source.AudioOption) (*source.PCM, error) {
	numChannels := dec.Channels()
	if numChannels <= 0 {
		return nil, ErrNoChannels
	}
	buf := make([]float32, readSize*numChannels)
	data := signal.EmptyFloat64(numChannels, 0)
	for {
		// n is number of values, not frames
		n, err := dec.Read(buf)
		if n > 0 {
			data = appendInterleaved(data, buf[:n-n%numChannels])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	return source.NewPCM(data, float64(dec.SampleRate()), options...), nil
}

func appendInterleaved(data signal.Float64, values []float32) signal.Float64 {
	numChannels := data.NumChannels()
	for i := 0; i < len(values); i += numChannels {
		for c := range data {
			data[c] = append(data[c], float64(values[i+c]))
		}
	}
	return data
}
