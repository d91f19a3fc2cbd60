package mp3

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/clip/signal"
)

func TestDecode16(t *testing.T) {
	tests := []struct {
		description string
		samples     []int16
		trailing    []byte
		expected    signal.Float64
	}{
		{
			description: "empty",
			expected:    signal.Float64{{}, {}},
		},
		{
			description: "two frames",
			samples:     []int16{0, 16384, -16384, 32767},
			expected:    signal.Float64{{0, -0.5}, {0.5, 1}},
		},
		{
			description: "trailing bytes dropped",
			samples:     []int16{16384, 0},
			trailing:    []byte{1, 2, 3},
			expected:    signal.Float64{{0.5}, {0}},
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			var raw bytes.Buffer
			require.NoError(t, binary.Write(&raw, binary.LittleEndian, test.samples))
			raw.Write(test.trailing)
			data := decode16(raw.Bytes())
			require.Equal(t, len(test.expected), data.NumChannels())
			require.Equal(t, test.expected.Size(), data.Size())
			for c := range test.expected {
				for i := range test.expected[c] {
					assert.InDelta(t, test.expected[c][i], data[c][i], 1e-4)
				}
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}

func TestSinkInvalidPath(t *testing.T) {
	_, err := NewSink(filepath.Join(t.TempDir(), "missing", "out.mp3"), 44100, 2, 192, 2)
	assert.Error(t, err)
}
