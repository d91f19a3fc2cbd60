// Package signal provides an API to manipulate blocks of audio frames. It allows to:
// 	- convert interleaved int data to non-interleaved floats and back
//	- convert between frames, seconds and durations
//	- clear and ramp regions of a block in place
package signal

import (
	"math"
	"time"
)

// Float64 is a non-interleaved float64 signal.
type Float64 [][]float64

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

func (bitDepth BitDepth) maxValue() float64 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return 1<<23 - 1
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// DurationOf returns time duration of passed frames for this sample rate.
func DurationOf(sampleRate float64, frames int64) time.Duration {
	return time.Duration(float64(frames) / sampleRate * float64(time.Second))
}

// FramesOf returns the number of frames the duration in seconds covers at
// the sample rate. The result is truncated towards zero.
func FramesOf(sampleRate, seconds float64) int {
	return int(seconds * sampleRate)
}

// SecondsOf returns the duration of frames in seconds.
func SecondsOf(sampleRate float64, frames int) float64 {
	if sampleRate == 0 {
		return 0
	}
	return float64(frames) / sampleRate
}

// ConvertFrames converts a frame count from one frame rate to another one,
// rounding to the nearest frame.
func ConvertFrames(frames int, from, to float64) int {
	if from == to {
		return frames
	}
	return int(math.Round(float64(frames) * to / from))
}

// AsFloat64 converts interleaved int signal to float64.
func (ints InterInt) AsFloat64() Float64 {
	if ints.Data == nil || ints.NumChannels == 0 {
		return nil
	}
	floats := make([][]float64, ints.NumChannels)
	size := int(math.Ceil(float64(len(ints.Data)) / float64(ints.NumChannels)))

	max := ints.BitDepth.maxValue()
	for i := range floats {
		floats[i] = make([]float64, size)
		pos := 0
		for j := i; j < len(ints.Data); j = j + ints.NumChannels {
			floats[i][pos] = float64(ints.Data[j]) / max
			pos++
		}
	}
	return floats
}

// AsInterInt converts float64 signal to interleaved int. Values are clipped
// to [-1, 1] before conversion.
func (floats Float64) AsInterInt(bitDepth BitDepth) []int {
	var numChannels int
	if numChannels = len(floats); numChannels == 0 {
		return nil
	}

	max := bitDepth.maxValue()
	if max > 1 {
		max--
	}
	ints := make([]int, len(floats[0])*numChannels)
	for j := range floats {
		for i, v := range floats[j] {
			ints[i*numChannels+j] = int(clip(v) * max)
		}
	}
	return ints
}

// AsInterFloat32 writes float64 signal into interleaved float32 slice. Frames
// that do not fit into dst are ignored.
func (floats Float64) AsInterFloat32(dst []float32) {
	numChannels := floats.NumChannels()
	if numChannels == 0 {
		return
	}
	for j := range floats {
		for i, v := range floats[j] {
			if k := i*numChannels + j; k < len(dst) {
				dst[k] = float32(v)
			}
		}
	}
}

func clip(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// EmptyFloat64 returns an empty buffer of specified dimentions.
func EmptyFloat64(numChannels int, size int) Float64 {
	result := make([][]float64, numChannels)
	for i := range result {
		result[i] = make([]float64, size)
	}
	return result
}

// NumChannels returns number of channels in this sample slice.
func (floats Float64) NumChannels() int {
	return len(floats)
}

// Size returns number of frames in single block in this sample slice.
func (floats Float64) Size() int {
	if floats.NumChannels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Frames returns a view of frames [start, end) without copying. Bounds are
// clamped to the block size.
func (floats Float64) Frames(start, end int) Float64 {
	return floats.FramesInto(nil, start, end)
}

// FramesInto is Frames that reuses view slice header storage, so it can be
// called on the real-time path without allocation when view has enough
// capacity.
func (floats Float64) FramesInto(view Float64, start, end int) Float64 {
	size := floats.Size()
	if start < 0 {
		start = 0
	}
	if end > size {
		end = size
	}
	if start > end {
		start = end
	}
	view = view[:0]
	for i := range floats {
		view = append(view, floats[i][start:end])
	}
	return view
}

// Clear sets frames [start, end) to silence.
func (floats Float64) Clear(start, end int) {
	size := floats.Size()
	if start < 0 {
		start = 0
	}
	if end > size {
		end = size
	}
	for i := range floats {
		for j := start; j < end; j++ {
			floats[i][j] = 0
		}
	}
}

// Copy copies frames of source into the block at offset. Returns number of
// frames copied.
func (floats Float64) Copy(offset int, source Float64) int {
	n := 0
	for i := range floats {
		if i >= len(source) || offset >= len(floats[i]) {
			continue
		}
		n = copy(floats[i][offset:], source[i])
	}
	return n
}

// Ramp multiplies frames [start, end) by a gain linearly moving from gain
// "from" at start to gain "to" at end.
func (floats Float64) Ramp(start, end int, from, to float64) {
	if end <= start {
		return
	}
	step := (to - from) / float64(end-start)
	size := floats.Size()
	for j := start; j < end && j < size; j++ {
		if j < 0 {
			continue
		}
		g := from + step*float64(j-start)
		for i := range floats {
			floats[i][j] *= g
		}
	}
}

// Scale multiplies all frames by gain.
func (floats Float64) Scale(gain float64) {
	if gain == 1 {
		return
	}
	for i := range floats {
		for j := range floats[i] {
			floats[i][j] *= gain
		}
	}
}

// Append buffers set to existing one one
// new buffer is returned if b is nil
func (floats Float64) Append(source Float64) Float64 {
	if floats == nil {
		floats = make([][]float64, source.NumChannels())
		for i := range floats {
			floats[i] = make([]float64, 0, source.Size())
		}
	}
	for i := range source {
		floats[i] = append(floats[i], source[i]...)
	}
	return floats
}
