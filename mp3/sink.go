package mp3

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/viert/lame"

	"pipelined.dev/clip/log"
	"pipelined.dev/clip/signal"
)

// Sink encodes audio into mp3 file.
type Sink struct {
	f   *os.File
	wr  *lame.LameWriter
	buf bytes.Buffer
}

// NewSink creates the file and initializes the encoder.
func NewSink(path string, sampleRate float64, numChannels, bitRate, quality int) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := Sink{
		f:  f,
		wr: lame.NewWriter(f),
	}
	s.wr.Encoder.SetBitrate(bitRate)
	s.wr.Encoder.SetQuality(quality)
	s.wr.Encoder.SetNumChannels(numChannels)
	s.wr.Encoder.SetInSamplerate(int(sampleRate))
	s.wr.Encoder.SetMode(lame.JOINT_STEREO)
	s.wr.Encoder.SetVBR(lame.VBR_RH)
	s.wr.Encoder.InitParams()
	log.GetLogger().WithField("path", path).Debugf(
		"mp3 sink: bitrate %d quality %d channels %d sample rate %v",
		bitRate, quality, numChannels, sampleRate,
	)
	return &s, nil
}

// Write encodes the block.
func (s *Sink) Write(b signal.Float64) error {
	ints := b.AsInterInt(signal.BitDepth16)
	samples := make([]int16, len(ints))
	for i := range ints {
		samples[i] = int16(ints[i])
	}
	s.buf.Reset()
	if err := binary.Write(&s.buf, binary.LittleEndian, samples); err != nil {
		return err
	}
	_, err := s.wr.Write(s.buf.Bytes())
	return err
}

// Close flushes the encoder and closes the file.
func (s *Sink) Close() error {
	err := s.wr.Close()
	if err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
